package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// RewardStore implements storage.RewardStore using PostgreSQL.
type RewardStore struct {
	q querier
}

// Compile-time interface check.
var _ storage.RewardStore = (*RewardStore)(nil)

const rewardColumns = `id, user_address, points, type, details::text, created_at`

// Insert appends a ledger row.
func (s *RewardStore) Insert(ctx context.Context, r *domain.RewardActivity) error {
	if r == nil || r.ID == "" || r.UserAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO reward_activities (id, user_address, points, type, details)
		VALUES ($1, $2, $3, $4, $5::text::jsonb)
		RETURNING created_at
	`

	err := s.q.QueryRow(ctx, query, r.ID, r.UserAddress, r.Points, r.Type, jsonArg(r.Details)).Scan(&r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert reward activity: %w", err)
	}
	return nil
}

// Update replaces points and, when given, details.
func (s *RewardStore) Update(ctx context.Context, id string, points int64, details json.RawMessage) (*domain.RewardActivity, error) {
	query := `
		UPDATE reward_activities
		SET points = $2, details = COALESCE($3::text::jsonb, details)
		WHERE id = $1
		RETURNING ` + rewardColumns

	r, err := scanReward(s.q.QueryRow(ctx, query, id, points, jsonArg(details)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("update reward activity: %w", err)
	}
	return r, nil
}

// Delete removes a row.
func (s *RewardStore) Delete(ctx context.Context, id string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM reward_activities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reward activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Balance sums the user's points.
func (s *RewardStore) Balance(ctx context.Context, user string) (int64, error) {
	var total int64
	err := s.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(points), 0)::bigint FROM reward_activities WHERE user_address = $1`, user,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum reward points: %w", err)
	}
	return total, nil
}

// History returns the user's rows, newest first.
func (s *RewardStore) History(ctx context.Context, user string) ([]*domain.RewardActivity, error) {
	query := `
		SELECT ` + rewardColumns + `
		FROM reward_activities
		WHERE user_address = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.q.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("list reward activities: %w", err)
	}
	defer rows.Close()

	var result []*domain.RewardActivity
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward rows: %w", err)
	}
	return result, nil
}

func scanReward(row pgx.Row) (*domain.RewardActivity, error) {
	var r domain.RewardActivity
	var details *string

	if err := row.Scan(&r.ID, &r.UserAddress, &r.Points, &r.Type, &details, &r.CreatedAt); err != nil {
		return nil, err
	}
	if details != nil {
		r.Details = json.RawMessage(*details)
	}
	return &r, nil
}

// jsonArg maps an empty payload to SQL NULL.
func jsonArg(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}
