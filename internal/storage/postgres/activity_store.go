package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// ActivityStore implements storage.ActivityStore using PostgreSQL.
type ActivityStore struct {
	q querier
}

// Compile-time interface check.
var _ storage.ActivityStore = (*ActivityStore)(nil)

const activityColumns = `
	seq, id, vault_address, type, user_address, condition_id, market_index,
	yes_amount::text, no_amount::text, yield_amount::text, usd_amount::text,
	tx_hash, log_index, block_number, timestamp, created_at`

// Record inserts the activity; a conflict on (vault_address, id) is a no-op.
func (s *ActivityStore) Record(ctx context.Context, a *domain.Activity) (bool, error) {
	if a == nil || a.VaultAddress == "" || a.ID == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO activities (
			id, vault_address, type, user_address, condition_id, market_index,
			yes_amount, no_amount, yield_amount, usd_amount,
			tx_hash, log_index, block_number, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7::text::numeric, $8::text::numeric, $9::text::numeric, $10::text::numeric,
			$11, $12, $13, $14
		)
		ON CONFLICT (vault_address, id) DO NOTHING
		RETURNING seq, created_at
	`

	err := s.q.QueryRow(ctx, query,
		a.ID,
		a.VaultAddress,
		string(a.Type),
		a.UserAddress,
		a.ConditionID,
		a.MarketIndex,
		a.YesAmount.Dec(),
		a.NoAmount.Dec(),
		a.YieldAmount.Dec(),
		a.UsdAmount.Dec(),
		a.TxHash,
		int64(a.LogIndex),
		int64(a.BlockNumber),
		a.Timestamp,
	).Scan(&a.Seq, &a.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert activity: %w", err)
	}
	return true, nil
}

// List returns one page ordered by timestamp DESC, seq DESC.
func (s *ActivityStore) List(ctx context.Context, q domain.ActivityQuery) ([]*domain.Activity, error) {
	if q.VaultAddress == "" || len(q.Types) == 0 {
		return nil, storage.ErrInvalidInput
	}

	types := make([]string, len(q.Types))
	for i, t := range q.Types {
		types[i] = string(t)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = domain.ActivityPageSize
	}
	offset := q.Skip
	if q.Since != nil || offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE vault_address = $1
		  AND type = ANY($2)
		  AND ($3 = '' OR user_address = $3)
		  AND ($4::bigint IS NULL OR timestamp >= $4)
		ORDER BY timestamp DESC, seq DESC
		LIMIT $5 OFFSET $6
	`

	rows, err := s.q.Query(ctx, query, q.VaultAddress, types, q.UserAddress, q.Since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// HasType reports whether the user has an activity of one of the types.
func (s *ActivityStore) HasType(ctx context.Context, vault, user string, types []domain.ActivityType) (bool, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM activities
			WHERE user_address = $1
			  AND ($2 = '' OR vault_address = $2)
			  AND type = ANY($3)
		)
	`

	var exists bool
	if err := s.q.QueryRow(ctx, query, user, vault, names).Scan(&exists); err != nil {
		return false, fmt.Errorf("check activity type: %w", err)
	}
	return exists, nil
}

// HasDeposit reports whether the user has a non-zero deposit in any vault.
func (s *ActivityStore) HasDeposit(ctx context.Context, user string) (bool, error) {
	names := make([]string, len(domain.DepositTypes))
	for i, t := range domain.DepositTypes {
		names[i] = string(t)
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM activities
			WHERE user_address = $1
			  AND type = ANY($2)
			  AND (yes_amount > 0 OR no_amount > 0)
		)
	`

	var exists bool
	if err := s.q.QueryRow(ctx, query, user, names).Scan(&exists); err != nil {
		return false, fmt.Errorf("check deposits: %w", err)
	}
	return exists, nil
}

// ListForPosition returns a user's activities on a market in timestamp order.
func (s *ActivityStore) ListForPosition(ctx context.Context, user, conditionID string) ([]*domain.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activities
		WHERE user_address = $1 AND condition_id = $2
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := s.q.Query(ctx, query, user, conditionID)
	if err != nil {
		return nil, fmt.Errorf("list activities for position: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// scanActivities scans multiple rows into a slice of Activity.
func scanActivities(rows pgx.Rows) ([]*domain.Activity, error) {
	var activities []*domain.Activity

	for rows.Next() {
		var a domain.Activity
		var typ, yes, no, yield, usd string
		var logIndex, blockNumber int64

		err := rows.Scan(
			&a.Seq,
			&a.ID,
			&a.VaultAddress,
			&typ,
			&a.UserAddress,
			&a.ConditionID,
			&a.MarketIndex,
			&yes, &no, &yield, &usd,
			&a.TxHash,
			&logIndex,
			&blockNumber,
			&a.Timestamp,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}

		a.Type = domain.ActivityType(typ)
		a.LogIndex = uint64(logIndex)
		a.BlockNumber = uint64(blockNumber)
		if a.YesAmount, err = parseAmount(yes); err != nil {
			return nil, err
		}
		if a.NoAmount, err = parseAmount(no); err != nil {
			return nil, err
		}
		if a.YieldAmount, err = parseAmount(yield); err != nil {
			return nil, err
		}
		if a.UsdAmount, err = parseAmount(usd); err != nil {
			return nil, err
		}

		activities = append(activities, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}

	return activities, nil
}
