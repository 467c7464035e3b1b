package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// ReferralStore implements storage.ReferralStore using PostgreSQL.
type ReferralStore struct {
	q querier
}

// Compile-time interface check.
var _ storage.ReferralStore = (*ReferralStore)(nil)

const (
	codeColumns  = `id, code, owner_address, owner_name, created_at`
	entryColumns = `id, referral_code_id, user_address, total_tokens::text, realized_value::text,
		timestamp, transaction_hash, type`
)

// CreateCode inserts a code. Returns ErrDuplicateKey if the code exists.
func (s *ReferralStore) CreateCode(ctx context.Context, c *domain.ReferralCode) error {
	if c == nil || c.ID == "" || c.Code == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO referral_codes (id, code, owner_address, owner_name)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := s.q.QueryRow(ctx, query, c.ID, c.Code, c.OwnerAddress, c.OwnerName).Scan(&c.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert referral code: %w", err)
	}
	return nil
}

// GetCode returns a code by id.
func (s *ReferralStore) GetCode(ctx context.Context, id string) (*domain.ReferralCode, error) {
	return s.getCode(ctx, `SELECT `+codeColumns+` FROM referral_codes WHERE id = $1`, id)
}

// GetCodeByCode returns a code by its text.
func (s *ReferralStore) GetCodeByCode(ctx context.Context, code string) (*domain.ReferralCode, error) {
	return s.getCode(ctx, `SELECT `+codeColumns+` FROM referral_codes WHERE code = $1`, code)
}

// GetCodeByOwner returns the owner's oldest code.
func (s *ReferralStore) GetCodeByOwner(ctx context.Context, owner string) (*domain.ReferralCode, error) {
	return s.getCode(ctx, `
		SELECT `+codeColumns+` FROM referral_codes
		WHERE owner_address = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, owner)
}

func (s *ReferralStore) getCode(ctx context.Context, query string, arg string) (*domain.ReferralCode, error) {
	var c domain.ReferralCode
	err := s.q.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Code, &c.OwnerAddress, &c.OwnerName, &c.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get referral code: %w", err)
	}
	return &c, nil
}

// CreateEntry inserts an unrealized entry. Returns ErrNotFound if the code is absent.
func (s *ReferralStore) CreateEntry(ctx context.Context, e *domain.ReferralEntry) error {
	if e == nil || e.ID == "" || e.ReferralCodeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO referral_entries (
			id, referral_code_id, user_address, total_tokens, timestamp, transaction_hash, type
		) VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7)
	`

	_, err := s.q.Exec(ctx, query,
		e.ID,
		e.ReferralCodeID,
		e.UserAddress,
		e.TotalTokens.String(),
		e.Timestamp,
		e.TransactionHash,
		string(e.Type),
	)
	if err != nil {
		if isForeignKeyError(err) {
			return storage.ErrNotFound
		}
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert referral entry: %w", err)
	}
	return nil
}

// Realize sets the entry's realized value in place.
func (s *ReferralStore) Realize(ctx context.Context, entryID string, value decimal.Decimal) (*domain.ReferralEntry, error) {
	query := `
		UPDATE referral_entries SET realized_value = $2::text::numeric
		WHERE id = $1
		RETURNING ` + entryColumns

	e, err := scanEntry(s.q.QueryRow(ctx, query, entryID, value.String()))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("realize referral entry: %w", err)
	}
	return e, nil
}

// RealizedEntries returns the code's realized entries, newest first.
func (s *ReferralStore) RealizedEntries(ctx context.Context, codeID string) ([]*domain.ReferralEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM referral_entries
		WHERE referral_code_id = $1 AND realized_value IS NOT NULL
		ORDER BY timestamp DESC, created_at DESC
	`

	rows, err := s.q.Query(ctx, query, codeID)
	if err != nil {
		return nil, fmt.Errorf("list realized entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ReferralEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan referral entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate referral entry rows: %w", err)
	}
	return entries, nil
}

// TotalRealized sums realized values for a code, or globally for "".
func (s *ReferralStore) TotalRealized(ctx context.Context, codeID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(realized_value), 0)::text
		FROM referral_entries
		WHERE realized_value IS NOT NULL AND ($1 = '' OR referral_code_id = $1)
	`

	var raw string
	if err := s.q.QueryRow(ctx, query, codeID).Scan(&raw); err != nil {
		return decimal.Decimal{}, fmt.Errorf("sum realized value: %w", err)
	}
	return parseDecimal(raw)
}

func scanEntry(row pgx.Row) (*domain.ReferralEntry, error) {
	var e domain.ReferralEntry
	var tokens, typ string
	var realized *string

	err := row.Scan(&e.ID, &e.ReferralCodeID, &e.UserAddress, &tokens, &realized,
		&e.Timestamp, &e.TransactionHash, &typ)
	if err != nil {
		return nil, err
	}

	e.Type = domain.ReferralEntryType(typ)
	if e.TotalTokens, err = parseDecimal(tokens); err != nil {
		return nil, err
	}
	if realized != nil {
		v, err := parseDecimal(*realized)
		if err != nil {
			return nil, err
		}
		e.RealizedValue = &v
	}
	return &e, nil
}
