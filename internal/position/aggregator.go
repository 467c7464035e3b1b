// Package position maintains per-(user, market) balances derived from activities.
package position

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// Integrity faults raised while applying an activity.
var (
	ErrInsufficientBalance = fmt.Errorf("%w: withdraw exceeds position balance", domain.ErrIntegrityFault)
	ErrNoPosition          = fmt.Errorf("%w: activity on a position that was never deposited", domain.ErrIntegrityFault)
	ErrOverflow            = fmt.Errorf("%w: amount overflows uint256", domain.ErrIntegrityFault)
	ErrMissingMarket       = fmt.Errorf("%w: activity has no condition id", domain.ErrIntegrityFault)
)

// Aggregator applies deposit, withdraw and claim activities to positions and
// market TVL. Apply must run inside the transaction that recorded the activity.
type Aggregator struct {
	now func() time.Time
}

// NewAggregator creates a new Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{now: func() time.Time { return time.Now().UTC() }}
}

// Apply folds one activity into its position. Lifecycle activities are ignored.
func (g *Aggregator) Apply(ctx context.Context, tx storage.Stores, a *domain.Activity) error {
	if a.Type.IsLifecycle() {
		return nil
	}
	if a.ConditionID == "" {
		return ErrMissingMarket
	}

	p, created, err := tx.Positions().Lock(ctx, a.UserAddress, a.ConditionID)
	if err != nil {
		return fmt.Errorf("lock position: %w", err)
	}
	if created && !a.Type.IsDeposit() {
		return ErrNoPosition
	}

	if err := Step(p, a); err != nil {
		return err
	}
	p.UpdatedAt = g.now()

	if err := tx.Positions().Save(ctx, p); err != nil {
		return fmt.Errorf("save position: %w", err)
	}

	if a.Type.IsDeposit() || a.Type.IsWithdraw() {
		err := tx.Markets().UpdateTVL(ctx, a.ConditionID, func(tvl *uint256.Int) error {
			return adjustTVL(tvl, a)
		})
		if err != nil {
			return fmt.Errorf("update tvl: %w", err)
		}
	}

	return nil
}

// Step applies one activity's delta to p in place using checked arithmetic.
// p is left unchanged on error.
func Step(p *domain.Position, a *domain.Activity) error {
	next := *p
	var overflow bool

	switch {
	case a.Type.IsDeposit():
		_, o1 := next.YesTokens.AddOverflow(&next.YesTokens, &a.YesAmount)
		_, o2 := next.NoTokens.AddOverflow(&next.NoTokens, &a.NoAmount)
		overflow = o1 || o2
	case a.Type.IsWithdraw():
		if next.YesTokens.Lt(&a.YesAmount) || next.NoTokens.Lt(&a.NoAmount) {
			return ErrInsufficientBalance
		}
		next.YesTokens.Sub(&next.YesTokens, &a.YesAmount)
		next.NoTokens.Sub(&next.NoTokens, &a.NoAmount)
	case a.Type == domain.ActivityClaim:
		_, o1 := next.YieldHarvested.AddOverflow(&next.YieldHarvested, &a.YieldAmount)
		_, o2 := next.UsdRedeemed.AddOverflow(&next.UsdRedeemed, &a.UsdAmount)
		overflow = o1 || o2
	default:
		return nil
	}

	if overflow {
		return ErrOverflow
	}
	*p = next
	return nil
}

// Fold computes the net effect of activities starting from zero. The net
// is order independent, so credits are applied before withdraws and a
// withdraw that was delivered ahead of an earlier-timestamped deposit still
// folds to the stored balance.
func Fold(user, conditionID string, activities []*domain.Activity) (*domain.Position, error) {
	p := &domain.Position{UserAddress: user, ConditionID: conditionID}
	for _, pass := range []func(domain.ActivityType) bool{
		func(t domain.ActivityType) bool { return !t.IsWithdraw() },
		domain.ActivityType.IsWithdraw,
	} {
		for _, a := range activities {
			if !pass(a.Type) {
				continue
			}
			if err := Step(p, a); err != nil {
				return nil, fmt.Errorf("activity %s: %w", a.ID, err)
			}
		}
	}
	return p, nil
}

func adjustTVL(tvl *uint256.Int, a *domain.Activity) error {
	var delta uint256.Int
	if _, overflow := delta.AddOverflow(&a.YesAmount, &a.NoAmount); overflow {
		return ErrOverflow
	}

	if a.Type.IsDeposit() {
		if _, overflow := tvl.AddOverflow(tvl, &delta); overflow {
			return ErrOverflow
		}
		return nil
	}

	// TVL tracks the sum of positions, so it cannot drop below a withdraw
	// that the position itself allowed.
	if tvl.Lt(&delta) {
		return fmt.Errorf("%w: market tvl below withdraw amount", domain.ErrIntegrityFault)
	}
	tvl.Sub(tvl, &delta)
	return nil
}
