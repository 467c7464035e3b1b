// Package memory provides an in-process storage backend. All stores share
// one state guarded by a single RWMutex; write transactions hold the write
// lock for their whole duration and roll back through an undo journal.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

type state struct {
	mu sync.RWMutex

	activities map[string]*domain.Activity // vault|id
	nextSeq    int64
	positions  map[string]*domain.Position // user|condition
	markets    map[string]*domain.Market   // condition
	interests  map[string]*domain.Interest // vault|user
	codes      map[string]*domain.ReferralCode
	entries    map[string]*domain.ReferralEntry
	rewards    map[string]*domain.RewardActivity
	feedback   map[string]*domain.FeedbackSubmission // user
	nextRowSeq int64                                 // insertion order for ledger rows

	rowSeq map[string]int64 // ledger row id -> insertion order
}

func newState() *state {
	return &state{
		activities: make(map[string]*domain.Activity),
		positions:  make(map[string]*domain.Position),
		markets:    make(map[string]*domain.Market),
		interests:  make(map[string]*domain.Interest),
		codes:      make(map[string]*domain.ReferralCode),
		entries:    make(map[string]*domain.ReferralEntry),
		rewards:    make(map[string]*domain.RewardActivity),
		feedback:   make(map[string]*domain.FeedbackSubmission),
		rowSeq:     make(map[string]int64),
	}
}

func (s *state) order(id string) {
	s.nextRowSeq++
	s.rowSeq[id] = s.nextRowSeq
}

// txn is the undo journal of one write transaction.
type txn struct {
	undo []func()
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// view binds the stores to the shared state and, inside WithinTx, to the
// running transaction.
type view struct {
	st  *state
	tx  *txn
	now func() time.Time
}

// lock takes the write lock unless a transaction already holds it.
func (v *view) lock() func() {
	if v.tx != nil {
		return func() {}
	}
	v.st.mu.Lock()
	return v.st.mu.Unlock
}

func (v *view) rlock() func() {
	if v.tx != nil {
		return func() {}
	}
	v.st.mu.RLock()
	return v.st.mu.RUnlock
}

// journal registers an undo step; outside a transaction writes are final.
func (v *view) journal(fn func()) {
	if v.tx != nil {
		v.tx.undo = append(v.tx.undo, fn)
	}
}

func (v *view) Activities() storage.ActivityStore { return &ActivityStore{v: v} }
func (v *view) Positions() storage.PositionStore   { return &PositionStore{v: v} }
func (v *view) Markets() storage.MarketStore       { return &MarketStore{v: v} }
func (v *view) Interests() storage.InterestStore   { return &InterestStore{v: v} }
func (v *view) Referrals() storage.ReferralStore   { return &ReferralStore{v: v} }
func (v *view) Rewards() storage.RewardStore       { return &RewardStore{v: v} }
func (v *view) Feedback() storage.FeedbackStore    { return &FeedbackStore{v: v} }

// DB is the in-memory implementation of storage.Database.
type DB struct {
	view
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{view: view{st: newState(), now: func() time.Time { return time.Now().UTC() }}}
}

// WithinTx runs fn holding the write lock. Stores obtained from db itself
// must not be used inside fn; use tx.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Stores) error) (err error) {
	db.st.mu.Lock()
	defer db.st.mu.Unlock()

	t := &txn{}
	defer func() {
		if r := recover(); r != nil {
			t.rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, &view{st: db.st, tx: t, now: db.now}); err != nil {
		t.rollback()
		return err
	}
	return nil
}

// Close is a no-op.
func (db *DB) Close() {}

// key builds a composite map key.
func key(parts ...string) string {
	return strings.Join(parts, "|")
}

var _ storage.Database = (*DB)(nil)
