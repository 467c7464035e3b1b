package postgres

import (
	"context"
	"fmt"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// InterestStore implements storage.InterestStore using PostgreSQL.
type InterestStore struct {
	q querier
}

// Compile-time interface check.
var _ storage.InterestStore = (*InterestStore)(nil)

// Upsert inserts or replaces the (vault, user) snapshot.
func (s *InterestStore) Upsert(ctx context.Context, in *domain.Interest) error {
	if in == nil || in.VaultAddress == "" || in.UserAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO interests (
			vault_address, user_address, total_tokens, total_usd, eligible_usd, snapshot_at
		) VALUES ($1, $2, $3::text::numeric, $4::text::numeric, $5::text::numeric, $6)
		ON CONFLICT (vault_address, user_address) DO UPDATE SET
			total_tokens = EXCLUDED.total_tokens,
			total_usd = EXCLUDED.total_usd,
			eligible_usd = EXCLUDED.eligible_usd,
			snapshot_at = EXCLUDED.snapshot_at,
			updated_at = now()
		RETURNING created_at, updated_at
	`

	err := s.q.QueryRow(ctx, query,
		in.VaultAddress,
		in.UserAddress,
		in.TotalTokens.Dec(),
		in.TotalUsd.Dec(),
		in.EligibleUsd.Dec(),
		in.SnapshotAt,
	).Scan(&in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert interest: %w", err)
	}
	return nil
}

// Get returns the snapshot. Returns ErrNotFound if absent.
func (s *InterestStore) Get(ctx context.Context, vault, user string) (*domain.Interest, error) {
	query := `
		SELECT vault_address, user_address, total_tokens::text, total_usd::text, eligible_usd::text,
			snapshot_at, created_at, updated_at
		FROM interests
		WHERE vault_address = $1 AND user_address = $2
	`

	var in domain.Interest
	var tokens, usd, eligible string
	err := s.q.QueryRow(ctx, query, vault, user).Scan(
		&in.VaultAddress, &in.UserAddress, &tokens, &usd, &eligible,
		&in.SnapshotAt, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get interest: %w", err)
	}

	if in.TotalTokens, err = parseAmount(tokens); err != nil {
		return nil, err
	}
	if in.TotalUsd, err = parseAmount(usd); err != nil {
		return nil, err
	}
	if in.EligibleUsd, err = parseAmount(eligible); err != nil {
		return nil, err
	}
	return &in, nil
}
