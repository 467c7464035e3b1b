// Package referral tracks referral codes, referred value and the pro-rata
// distribution of the referral points pool.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// Ledger is the referral service.
type Ledger struct {
	store storage.ReferralStore
	pool  int64
	newID func() string
	now   func() time.Time
}

// NewLedger creates a Ledger distributing pool points. A non-positive pool
// falls back to domain.ReferralPointsPool.
func NewLedger(store storage.ReferralStore, pool int64) *Ledger {
	if pool <= 0 {
		pool = domain.ReferralPointsPool
	}
	return &Ledger{
		store: store,
		pool:  pool,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateCode registers a new code for an owner.
func (l *Ledger) CreateCode(ctx context.Context, code, ownerAddress, ownerName string) (*domain.ReferralCode, error) {
	code = strings.TrimSpace(code)
	ownerAddress = domain.NormalizeAddress(ownerAddress)
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", domain.ErrValidation)
	}
	if ownerAddress == "" {
		return nil, fmt.Errorf("%w: ownerAddress is required", domain.ErrValidation)
	}

	c := &domain.ReferralCode{
		ID:           l.newID(),
		Code:         code,
		OwnerAddress: ownerAddress,
		OwnerName:    strings.TrimSpace(ownerName),
	}
	if err := l.store.CreateCode(ctx, c); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: referral code %q already exists", domain.ErrConflict, code)
		}
		return nil, fmt.Errorf("create referral code: %w", err)
	}
	return c, nil
}

// ResolveCode maps a code string to its id.
func (l *Ledger) ResolveCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: referral code is required", domain.ErrValidation)
	}
	c, err := l.store.GetCodeByCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%w: referral code %q", domain.ErrNotFound, code)
	}
	if err != nil {
		return "", fmt.Errorf("resolve referral code: %w", err)
	}
	return c.ID, nil
}

// EntryInput describes referred value to append.
type EntryInput struct {
	CodeID          string
	UserAddress     string
	TotalTokens     decimal.Decimal
	Type            domain.ReferralEntryType
	Timestamp       time.Time // zero means now
	TransactionHash string
}

// CreateEntry appends an unrealized entry.
func (l *Ledger) CreateEntry(ctx context.Context, in EntryInput) (*domain.ReferralEntry, error) {
	user := domain.NormalizeAddress(in.UserAddress)
	switch {
	case in.CodeID == "":
		return nil, fmt.Errorf("%w: referral code id is required", domain.ErrValidation)
	case user == "":
		return nil, fmt.Errorf("%w: userAddress is required", domain.ErrValidation)
	case in.TotalTokens.IsNegative():
		return nil, fmt.Errorf("%w: totalTokens must not be negative", domain.ErrValidation)
	case in.Type != domain.ReferralDeposit && in.Type != domain.ReferralWithdraw:
		return nil, fmt.Errorf("%w: type must be deposit or withdraw", domain.ErrValidation)
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}

	e := &domain.ReferralEntry{
		ID:              l.newID(),
		ReferralCodeID:  in.CodeID,
		UserAddress:     user,
		TotalTokens:     in.TotalTokens,
		Timestamp:       ts.UTC(),
		TransactionHash: strings.ToLower(strings.TrimSpace(in.TransactionHash)),
		Type:            in.Type,
	}
	if err := l.store.CreateEntry(ctx, e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: referral code id %s", domain.ErrNotFound, in.CodeID)
		}
		return nil, fmt.Errorf("create referral entry: %w", err)
	}
	return e, nil
}

// Track resolves the attributed code and appends an entry for it.
func (l *Ledger) Track(ctx context.Context, code string, in EntryInput) (*domain.ReferralEntry, error) {
	id, err := l.ResolveCode(ctx, code)
	if err != nil {
		return nil, err
	}
	in.CodeID = id
	return l.CreateEntry(ctx, in)
}

// Realize sets an entry's realized value in place.
func (l *Ledger) Realize(ctx context.Context, entryID string, value decimal.Decimal) (*domain.ReferralEntry, error) {
	if entryID == "" {
		return nil, fmt.Errorf("%w: entry id is required", domain.ErrValidation)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("%w: realized value must not be negative", domain.ErrValidation)
	}

	e, err := l.store.Realize(ctx, entryID, value)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: referral entry %s", domain.ErrNotFound, entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("realize referral entry: %w", err)
	}
	return e, nil
}

// OverviewQuery selects a code by id or by owner; CodeID wins when both are set.
type OverviewQuery struct {
	CodeID       string
	OwnerAddress string
}

// Overview reports a code's realized entries and its share of the pool.
func (l *Ledger) Overview(ctx context.Context, q OverviewQuery) (*domain.ReferralOverview, error) {
	var (
		code *domain.ReferralCode
		err  error
	)
	switch {
	case q.CodeID != "":
		code, err = l.store.GetCode(ctx, q.CodeID)
	case domain.NormalizeAddress(q.OwnerAddress) != "":
		code, err = l.store.GetCodeByOwner(ctx, domain.NormalizeAddress(q.OwnerAddress))
	default:
		return nil, fmt.Errorf("%w: codeId or ownerAddress is required", domain.ErrValidation)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: referral code", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load referral code: %w", err)
	}

	entries, err := l.store.RealizedEntries(ctx, code.ID)
	if err != nil {
		return nil, fmt.Errorf("load realized entries: %w", err)
	}

	codeTotal, err := l.store.TotalRealized(ctx, code.ID)
	if err != nil {
		return nil, fmt.Errorf("sum code realized value: %w", err)
	}
	globalTotal, err := l.store.TotalRealized(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("sum global realized value: %w", err)
	}

	return &domain.ReferralOverview{
		Code:               code,
		Entries:            entries,
		TotalRealizedValue: codeTotal,
		Points:             Points(codeTotal, globalTotal, l.pool),
	}, nil
}

// Points returns floor(codeTotal * pool / globalTotal), or 0 when the
// global total is not positive.
func Points(codeTotal, globalTotal decimal.Decimal, pool int64) int64 {
	if !globalTotal.IsPositive() || !codeTotal.IsPositive() {
		return 0
	}
	q, _ := codeTotal.Mul(decimal.NewFromInt(pool)).QuoRem(globalTotal, 0)
	return q.IntPart()
}
