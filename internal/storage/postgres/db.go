package postgres

import (
	"context"
	"fmt"

	"vault-indexer/internal/storage"
)

// stores binds every store to one querier: the pool, or a transaction.
type stores struct {
	q querier
}

func (s stores) Activities() storage.ActivityStore { return &ActivityStore{q: s.q} }
func (s stores) Positions() storage.PositionStore   { return &PositionStore{q: s.q} }
func (s stores) Markets() storage.MarketStore       { return &MarketStore{q: s.q} }
func (s stores) Interests() storage.InterestStore   { return &InterestStore{q: s.q} }
func (s stores) Referrals() storage.ReferralStore   { return &ReferralStore{q: s.q} }
func (s stores) Rewards() storage.RewardStore       { return &RewardStore{q: s.q} }
func (s stores) Feedback() storage.FeedbackStore    { return &FeedbackStore{q: s.q} }

// DB implements storage.Database on a Postgres pool.
type DB struct {
	stores
	pool *Pool
}

// NewDB creates a DB over an open pool.
func NewDB(pool *Pool) *DB {
	return &DB{stores: stores{q: pool}, pool: pool}
}

// WithinTx runs fn in a read-committed transaction. Row locks taken by
// PositionStore.Lock and MarketStore.UpdateTVL are held until commit.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Stores) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, stores{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Close closes the pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Compile-time interface check.
var _ storage.Database = (*DB)(nil)
