package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// MarketStore implements storage.MarketStore using PostgreSQL.
type MarketStore struct {
	q querier
}

// Compile-time interface check.
var _ storage.MarketStore = (*MarketStore)(nil)

const marketColumns = `
	condition_id, status, tvl::text, genesis_index, promotion_index, genesis_ended_at,
	question, image, slug, end_date, outcome_prices::text, updated_at`

// Get returns a market. Returns ErrNotFound if absent.
func (s *MarketStore) Get(ctx context.Context, conditionID string) (*domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE condition_id = $1`

	m, err := scanMarket(s.q.QueryRow(ctx, query, conditionID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get market: %w", err)
	}
	return m, nil
}

// GetByCampaignIndex resolves a campaign index to its market.
func (s *MarketStore) GetByCampaignIndex(ctx context.Context, family domain.VaultFamily, index int64) (*domain.Market, error) {
	var column string
	switch family {
	case domain.FamilyGenesis:
		column = "genesis_index"
	case domain.FamilyPromotion:
		column = "promotion_index"
	default:
		return nil, storage.ErrNotFound
	}

	query := `SELECT ` + marketColumns + ` FROM markets WHERE ` + column + ` = $1`
	m, err := scanMarket(s.q.QueryRow(ctx, query, index))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get market by %s: %w", column, err)
	}
	return m, nil
}

// Activate raises the market to Active and records its campaign index.
// Returns ErrDuplicateKey if the index already belongs to another market.
func (s *MarketStore) Activate(ctx context.Context, conditionID string, family domain.VaultFamily, index *int64) error {
	if conditionID == "" {
		return storage.ErrInvalidInput
	}

	var genesisIndex, promotionIndex *int64
	switch family {
	case domain.FamilyGenesis:
		genesisIndex = index
	case domain.FamilyPromotion:
		promotionIndex = index
	}

	query := `
		INSERT INTO markets (condition_id, status, genesis_index, promotion_index)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (condition_id) DO UPDATE SET
			status = GREATEST(markets.status, EXCLUDED.status),
			genesis_index = COALESCE(EXCLUDED.genesis_index, markets.genesis_index),
			promotion_index = COALESCE(EXCLUDED.promotion_index, markets.promotion_index),
			updated_at = now()
	`

	_, err := s.q.Exec(ctx, query, conditionID, int(domain.MarketActive), genesisIndex, promotionIndex)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("activate market: %w", err)
	}
	return nil
}

// End raises the market to Unlocked; genesis markets keep their first end time.
func (s *MarketStore) End(ctx context.Context, conditionID string, family domain.VaultFamily, at time.Time) error {
	if conditionID == "" {
		return storage.ErrInvalidInput
	}

	var endedAt *time.Time
	if family == domain.FamilyGenesis {
		t := at.UTC()
		endedAt = &t
	}

	query := `
		INSERT INTO markets (condition_id, status, genesis_ended_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (condition_id) DO UPDATE SET
			status = GREATEST(markets.status, EXCLUDED.status),
			genesis_ended_at = COALESCE(markets.genesis_ended_at, EXCLUDED.genesis_ended_at),
			updated_at = now()
	`

	if _, err := s.q.Exec(ctx, query, conditionID, int(domain.MarketUnlocked), endedAt); err != nil {
		return fmt.Errorf("end market: %w", err)
	}
	return nil
}

// UpdateTVL locks the market row and stores the value produced by fn.
// Must run inside a transaction for the lock to be held.
func (s *MarketStore) UpdateTVL(ctx context.Context, conditionID string, fn func(tvl *uint256.Int) error) error {
	if conditionID == "" {
		return storage.ErrInvalidInput
	}

	if _, err := s.q.Exec(ctx, `
		INSERT INTO markets (condition_id) VALUES ($1)
		ON CONFLICT (condition_id) DO NOTHING
	`, conditionID); err != nil {
		return fmt.Errorf("ensure market: %w", err)
	}

	var raw string
	if err := s.q.QueryRow(ctx,
		`SELECT tvl::text FROM markets WHERE condition_id = $1 FOR UPDATE`, conditionID,
	).Scan(&raw); err != nil {
		return fmt.Errorf("lock market: %w", err)
	}

	tvl, err := parseAmount(raw)
	if err != nil {
		return err
	}
	if err := fn(&tvl); err != nil {
		return err
	}

	if _, err := s.q.Exec(ctx,
		`UPDATE markets SET tvl = $2::text::numeric, updated_at = now() WHERE condition_id = $1`,
		conditionID, tvl.Dec(),
	); err != nil {
		return fmt.Errorf("update market tvl: %w", err)
	}
	return nil
}

// SetMetadata replaces the display metadata.
func (s *MarketStore) SetMetadata(ctx context.Context, conditionID string, meta domain.MarketMetadata) (*domain.Market, error) {
	if conditionID == "" {
		return nil, storage.ErrInvalidInput
	}

	prices := meta.OutcomePrices
	if prices == nil {
		prices = []string{}
	}
	pricesJSON, err := json.Marshal(prices)
	if err != nil {
		return nil, fmt.Errorf("marshal outcome prices: %w", err)
	}

	query := `
		INSERT INTO markets (condition_id, question, image, slug, end_date, outcome_prices)
		VALUES ($1, $2, $3, $4, $5, $6::text::jsonb)
		ON CONFLICT (condition_id) DO UPDATE SET
			question = EXCLUDED.question,
			image = EXCLUDED.image,
			slug = EXCLUDED.slug,
			end_date = EXCLUDED.end_date,
			outcome_prices = EXCLUDED.outcome_prices,
			updated_at = now()
		RETURNING ` + marketColumns

	m, err := scanMarket(s.q.QueryRow(ctx, query,
		conditionID, meta.Question, meta.Image, meta.Slug, meta.EndDate, string(pricesJSON),
	))
	if err != nil {
		return nil, fmt.Errorf("set market metadata: %w", err)
	}
	return m, nil
}

func scanMarket(row pgx.Row) (*domain.Market, error) {
	var m domain.Market
	var status int
	var tvl, prices string

	err := row.Scan(
		&m.ConditionID,
		&status,
		&tvl,
		&m.GenesisIndex,
		&m.PromotionIndex,
		&m.GenesisEndedAt,
		&m.Question,
		&m.Image,
		&m.Slug,
		&m.EndDate,
		&prices,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Status = domain.MarketStatus(status)
	if m.TVL, err = parseAmount(tvl); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prices), &m.OutcomePrices); err != nil {
		return nil, fmt.Errorf("unmarshal outcome prices: %w", err)
	}
	return &m, nil
}
