package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	q querier
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	p.user_address, p.condition_id,
	p.yes_tokens::text, p.no_tokens::text, p.yield_harvested::text, p.usd_redeemed::text,
	p.updated_at`

// endedPredicate mirrors domain.IsEnded.
const endedPredicate = `(COALESCE(m.status, 0) = 3 AND p.yield_harvested > 0 AND p.usd_redeemed > 0)`

// Lock inserts a zeroed row if absent and takes a row lock with FOR UPDATE.
// Must run inside a transaction for the lock to be held.
func (s *PositionStore) Lock(ctx context.Context, user, conditionID string) (*domain.Position, bool, error) {
	if user == "" || conditionID == "" {
		return nil, false, storage.ErrInvalidInput
	}

	tag, err := s.q.Exec(ctx, `
		INSERT INTO positions (user_address, condition_id)
		VALUES ($1, $2)
		ON CONFLICT (user_address, condition_id) DO NOTHING
	`, user, conditionID)
	if err != nil {
		return nil, false, fmt.Errorf("ensure position: %w", err)
	}
	created := tag.RowsAffected() == 1

	query := `
		SELECT ` + positionColumns + `
		FROM positions p
		WHERE p.user_address = $1 AND p.condition_id = $2
		FOR UPDATE
	`
	p, err := scanPosition(s.q.QueryRow(ctx, query, user, conditionID))
	if err != nil {
		return nil, false, fmt.Errorf("lock position: %w", err)
	}
	return p, created, nil
}

// Save upserts the position balances.
func (s *PositionStore) Save(ctx context.Context, p *domain.Position) error {
	if p == nil || p.UserAddress == "" || p.ConditionID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (
			user_address, condition_id, yes_tokens, no_tokens, yield_harvested, usd_redeemed, updated_at
		) VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5::text::numeric, $6::text::numeric, now())
		ON CONFLICT (user_address, condition_id) DO UPDATE SET
			yes_tokens = EXCLUDED.yes_tokens,
			no_tokens = EXCLUDED.no_tokens,
			yield_harvested = EXCLUDED.yield_harvested,
			usd_redeemed = EXCLUDED.usd_redeemed,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at
	`

	err := s.q.QueryRow(ctx, query,
		p.UserAddress,
		p.ConditionID,
		p.YesTokens.Dec(),
		p.NoTokens.Dec(),
		p.YieldHarvested.Dec(),
		p.UsdRedeemed.Dec(),
	).Scan(&p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// Get returns a position. Returns ErrNotFound if absent.
func (s *PositionStore) Get(ctx context.Context, user, conditionID string) (*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions p
		WHERE p.user_address = $1 AND p.condition_id = $2
	`
	p, err := scanPosition(s.q.QueryRow(ctx, query, user, conditionID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

// Sums totals a user's balances.
func (s *PositionStore) Sums(ctx context.Context, user string) (domain.PositionSums, error) {
	query := `
		SELECT
			COALESCE(SUM(yes_tokens), 0)::text,
			COALESCE(SUM(no_tokens), 0)::text,
			COALESCE(SUM(yield_harvested), 0)::text
		FROM positions
		WHERE user_address = $1
	`

	var yes, no, yield string
	if err := s.q.QueryRow(ctx, query, user).Scan(&yes, &no, &yield); err != nil {
		return domain.PositionSums{}, fmt.Errorf("sum positions: %w", err)
	}

	var sums domain.PositionSums
	var err error
	if sums.YesTokens, err = parseAmount(yes); err != nil {
		return domain.PositionSums{}, err
	}
	if sums.NoTokens, err = parseAmount(no); err != nil {
		return domain.PositionSums{}, err
	}
	if sums.YieldHarvested, err = parseAmount(yield); err != nil {
		return domain.PositionSums{}, err
	}
	return sums, nil
}

// List returns one page of positions joined with market display fields.
func (s *PositionStore) List(ctx context.Context, user string, filter domain.PortfolioFilter, page int) ([]*domain.PortfolioEntry, int, error) {
	if page < 1 {
		return nil, 0, storage.ErrInvalidInput
	}

	where := `p.user_address = $1`
	switch filter {
	case domain.PortfolioEnded:
		where += ` AND ` + endedPredicate
	case domain.PortfolioActive:
		where += ` AND NOT ` + endedPredicate
	}

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM positions p
		LEFT JOIN markets m ON m.condition_id = p.condition_id
		WHERE ` + where
	if err := s.q.QueryRow(ctx, countQuery, user).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count positions: %w", err)
	}

	query := `
		SELECT ` + positionColumns + `,
			COALESCE(m.question, ''), COALESCE(m.image, ''), m.end_date,
			COALESCE(m.status, 0), COALESCE(m.slug, '')
		FROM positions p
		LEFT JOIN markets m ON m.condition_id = p.condition_id
		WHERE ` + where + `
		ORDER BY p.updated_at DESC, p.condition_id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.q.Query(ctx, query, user, domain.PortfolioPageSize, (page-1)*domain.PortfolioPageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var entries []*domain.PortfolioEntry
	for rows.Next() {
		var e domain.PortfolioEntry
		var yes, no, yield, usd string
		var status int

		err := rows.Scan(
			&e.UserAddress, &e.ConditionID,
			&yes, &no, &yield, &usd,
			&e.UpdatedAt,
			&e.Market.Question, &e.Market.Image, &e.Market.EndDate,
			&status, &e.Market.Slug,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan portfolio row: %w", err)
		}
		if err := fillPosition(&e.Position, yes, no, yield, usd); err != nil {
			return nil, 0, err
		}
		e.Market.Status = domain.MarketStatus(status)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate portfolio rows: %w", err)
	}

	return entries, total, nil
}

// All returns every position.
func (s *PositionStore) All(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions p
		ORDER BY p.user_address, p.condition_id
	`

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all positions: %w", err)
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}
	return positions, nil
}

func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var yes, no, yield, usd string

	if err := row.Scan(&p.UserAddress, &p.ConditionID, &yes, &no, &yield, &usd, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := fillPosition(&p, yes, no, yield, usd); err != nil {
		return nil, err
	}
	return &p, nil
}

func fillPosition(p *domain.Position, yes, no, yield, usd string) error {
	var err error
	if p.YesTokens, err = parseAmount(yes); err != nil {
		return err
	}
	if p.NoTokens, err = parseAmount(no); err != nil {
		return err
	}
	if p.YieldHarvested, err = parseAmount(yield); err != nil {
		return err
	}
	if p.UsdRedeemed, err = parseAmount(usd); err != nil {
		return err
	}
	return nil
}
