package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// VolumeStore implements storage.VolumeStore using ClickHouse.
// Rows live in a ReplacingMergeTree ordered by (vault_address, id), so a
// redelivered activity is collapsed on merge and reads use FINAL.
type VolumeStore struct {
	conn *Conn
}

// NewVolumeStore creates a new VolumeStore.
func NewVolumeStore(conn *Conn) *VolumeStore {
	return &VolumeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.VolumeStore = (*VolumeStore)(nil)

// Insert appends activities in one batch.
func (s *VolumeStore) Insert(ctx context.Context, activities []*domain.Activity) error {
	if len(activities) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO activity_volume (
			vault_address, id, type, user_address, condition_id,
			yes_amount, no_amount, yield_amount, usd_amount, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range activities {
		if a == nil || a.VaultAddress == "" || a.ID == "" {
			_ = batch.Abort()
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			a.VaultAddress, a.ID, string(a.Type), a.UserAddress, a.ConditionID,
			a.YesAmount.ToBig(), a.NoAmount.ToBig(), a.YieldAmount.ToBig(), a.UsdAmount.ToBig(),
			time.Unix(a.Timestamp, 0).UTC(),
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Daily returns per-day totals for [from, to), oldest first.
func (s *VolumeStore) Daily(ctx context.Context, vault string, from, to time.Time) ([]*domain.DailyVolume, error) {
	query := `
		SELECT
			toStartOfDay(timestamp, 'UTC') AS day,
			toString(sumIf(yes_amount, type IN ('Deposit', 'BatchDeposit'))),
			toString(sumIf(no_amount, type IN ('Deposit', 'BatchDeposit'))),
			toString(sumIf(yes_amount, type IN ('Withdraw', 'BatchWithdraw'))),
			toString(sumIf(no_amount, type IN ('Withdraw', 'BatchWithdraw'))),
			toString(sumIf(usd_amount, type = 'Claim')),
			count(),
			uniqExactIf(user_address, user_address != '')
		FROM activity_volume FINAL
		WHERE vault_address = ? AND timestamp >= ? AND timestamp < ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := s.conn.Query(ctx, query, vault, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query daily volume: %w", err)
	}
	defer rows.Close()

	return scanDailyVolume(rows)
}

// scanDailyVolume scans multiple rows.
func scanDailyVolume(rows chRows) ([]*domain.DailyVolume, error) {
	var days []*domain.DailyVolume

	for rows.Next() {
		var d domain.DailyVolume
		var depYes, depNo, wdYes, wdNo, claimed string

		err := rows.Scan(&d.Day, &depYes, &depNo, &wdYes, &wdNo, &claimed, &d.Activities, &d.UniqueUsers)
		if err != nil {
			return nil, fmt.Errorf("scan daily volume row: %w", err)
		}

		for _, f := range []struct {
			dst *uint256.Int
			raw string
		}{
			{&d.DepositYes, depYes},
			{&d.DepositNo, depNo},
			{&d.WithdrawYes, wdYes},
			{&d.WithdrawNo, wdNo},
			{&d.ClaimedUsd, claimed},
		} {
			if err := f.dst.SetFromDecimal(f.raw); err != nil {
				return nil, fmt.Errorf("parse volume %q: %w", f.raw, err)
			}
		}
		d.Day = d.Day.UTC()
		days = append(days, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily volume rows: %w", err)
	}

	return days, nil
}
