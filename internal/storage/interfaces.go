package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"vault-indexer/internal/domain"
)

// ActivityStore provides access to activities storage.
type ActivityStore interface {
	// Record inserts an activity unless (vault_address, id) already exists.
	// Returns inserted=false on conflict; the existing row is left untouched.
	// On insert Seq and CreatedAt are assigned on a.
	Record(ctx context.Context, a *domain.Activity) (inserted bool, err error)

	// List returns one page ordered by timestamp DESC, seq DESC.
	// q.Types must be non-empty; Since takes precedence over Skip.
	List(ctx context.Context, q domain.ActivityQuery) ([]*domain.Activity, error)

	// HasType reports whether the user has any activity of the given types
	// in the vault. An empty vault matches every vault.
	HasType(ctx context.Context, vault, user string, types []domain.ActivityType) (bool, error)

	// HasDeposit reports whether the user has a deposit activity with a
	// non-zero YES or NO amount in any vault.
	HasDeposit(ctx context.Context, user string) (bool, error)

	// ListForPosition returns a user's activities on one market ordered by
	// timestamp ASC, seq ASC.
	ListForPosition(ctx context.Context, user, conditionID string) ([]*domain.Activity, error)
}

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Lock returns the (user, condition) row, creating a zeroed one if absent,
	// and holds it for the rest of the transaction. created reports whether
	// the row was just created.
	Lock(ctx context.Context, user, conditionID string) (p *domain.Position, created bool, err error)

	// Save writes the balances of a locked position.
	Save(ctx context.Context, p *domain.Position) error

	// Get returns a position. Returns ErrNotFound if absent.
	Get(ctx context.Context, user, conditionID string) (*domain.Position, error)

	// Sums totals a user's balances across all positions.
	Sums(ctx context.Context, user string) (domain.PositionSums, error)

	// List returns one page (1-indexed, page size 10) of a user's positions
	// joined with market display fields, plus the total matching count.
	List(ctx context.Context, user string, filter domain.PortfolioFilter, page int) ([]*domain.PortfolioEntry, int, error)

	// All returns every position, for reconciliation.
	All(ctx context.Context) ([]*domain.Position, error)
}

// MarketStore provides access to markets storage.
type MarketStore interface {
	// Get returns a market. Returns ErrNotFound if absent.
	Get(ctx context.Context, conditionID string) (*domain.Market, error)

	// GetByCampaignIndex resolves a campaign market index. Returns ErrNotFound if absent.
	GetByCampaignIndex(ctx context.Context, family domain.VaultFamily, index int64) (*domain.Market, error)

	// Activate creates the market if needed, raises its status to at least
	// Active and records the campaign index for campaign families.
	// Returns ErrDuplicateKey if the index belongs to another market.
	Activate(ctx context.Context, conditionID string, family domain.VaultFamily, index *int64) error

	// End raises the market status to Unlocked. For genesis markets the
	// first end time is recorded.
	End(ctx context.Context, conditionID string, family domain.VaultFamily, at time.Time) error

	// UpdateTVL locks the market row (creating it if absent) and stores the
	// value produced by fn. An fn error aborts the update.
	UpdateTVL(ctx context.Context, conditionID string, fn func(tvl *uint256.Int) error) error

	// SetMetadata replaces the display metadata, creating the market if absent.
	SetMetadata(ctx context.Context, conditionID string, meta domain.MarketMetadata) (*domain.Market, error)
}

// InterestStore provides access to interests storage.
type InterestStore interface {
	// Upsert inserts or replaces the (vault, user) snapshot.
	Upsert(ctx context.Context, in *domain.Interest) error

	// Get returns the snapshot. Returns ErrNotFound if absent.
	Get(ctx context.Context, vault, user string) (*domain.Interest, error)
}

// ReferralStore provides access to referral codes and entries.
type ReferralStore interface {
	// CreateCode inserts a code. Returns ErrDuplicateKey if the code exists.
	CreateCode(ctx context.Context, c *domain.ReferralCode) error

	// GetCode returns a code by id. Returns ErrNotFound if absent.
	GetCode(ctx context.Context, id string) (*domain.ReferralCode, error)

	// GetCodeByCode returns a code by its text. Returns ErrNotFound if absent.
	GetCodeByCode(ctx context.Context, code string) (*domain.ReferralCode, error)

	// GetCodeByOwner returns the oldest code of an owner. Returns ErrNotFound if absent.
	GetCodeByOwner(ctx context.Context, owner string) (*domain.ReferralCode, error)

	// CreateEntry inserts an unrealized entry.
	CreateEntry(ctx context.Context, e *domain.ReferralEntry) error

	// Realize sets an entry's realized value in place. Returns ErrNotFound if absent.
	Realize(ctx context.Context, entryID string, value decimal.Decimal) (*domain.ReferralEntry, error)

	// RealizedEntries returns a code's realized entries, newest first.
	RealizedEntries(ctx context.Context, codeID string) ([]*domain.ReferralEntry, error)

	// TotalRealized sums realized values of one code, or of all codes when
	// codeID is empty.
	TotalRealized(ctx context.Context, codeID string) (decimal.Decimal, error)
}

// RewardStore provides access to the reward points ledger.
type RewardStore interface {
	// Insert appends a ledger row.
	Insert(ctx context.Context, r *domain.RewardActivity) error

	// Update replaces points and details of a row. Returns ErrNotFound if absent.
	Update(ctx context.Context, id string, points int64, details json.RawMessage) (*domain.RewardActivity, error)

	// Delete removes a row. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Balance sums a user's points.
	Balance(ctx context.Context, user string) (int64, error)

	// History returns a user's rows, newest first.
	History(ctx context.Context, user string) ([]*domain.RewardActivity, error)
}

// FeedbackStore provides access to feedback submissions.
type FeedbackStore interface {
	// Insert adds a submission. Returns ErrDuplicateKey if the user already submitted.
	Insert(ctx context.Context, f *domain.FeedbackSubmission) error

	// Exists reports whether the user submitted feedback.
	Exists(ctx context.Context, user string) (bool, error)

	// List returns all submissions ordered by creation time.
	List(ctx context.Context) ([]*domain.FeedbackSubmission, error)
}

// Stores groups the relational stores. Inside WithinTx every store shares
// the same transaction.
type Stores interface {
	Activities() ActivityStore
	Positions() PositionStore
	Markets() MarketStore
	Interests() InterestStore
	Referrals() ReferralStore
	Rewards() RewardStore
	Feedback() FeedbackStore
}

// Database is a relational backend.
type Database interface {
	Stores

	// WithinTx runs fn in one transaction. fn's error rolls everything back
	// and is returned unchanged.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error

	// Close releases the backend.
	Close()
}

// VolumeStore is the analytics copy of recorded activities.
type VolumeStore interface {
	// Insert appends activities. Redelivered activities converge on (vault_address, id).
	Insert(ctx context.Context, activities []*domain.Activity) error

	// Daily returns per-day totals for [from, to), oldest first.
	Daily(ctx context.Context, vault string, from, to time.Time) ([]*domain.DailyVolume, error)
}
