package position

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/observability"
	"vault-indexer/internal/storage"
)

// Drift is a position whose stored balances differ from its activity history.
type Drift struct {
	Stored   *domain.Position
	Expected *domain.Position
	Err      error // set when the history itself cannot be folded
}

// Report summarizes one reconciliation run.
type Report struct {
	Checked int
	Drifted []Drift
}

// Reconciler re-folds every position from its activities and reports drift.
// It never rewrites positions.
type Reconciler struct {
	db     storage.Stores
	logger *zap.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(db storage.Stores, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{db: db, logger: logger}
}

// Run checks every stored position once.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	positions, err := r.db.Positions().All(ctx)
	if err != nil {
		observability.RecordReconcile("error", 0, time.Since(start).Seconds())
		return nil, fmt.Errorf("load positions: %w", err)
	}

	report := &Report{}
	for _, p := range positions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		activities, err := r.db.Activities().ListForPosition(ctx, p.UserAddress, p.ConditionID)
		if err != nil {
			observability.RecordReconcile("error", len(report.Drifted), time.Since(start).Seconds())
			return nil, fmt.Errorf("load activities for %s/%s: %w", p.UserAddress, p.ConditionID, err)
		}
		report.Checked++

		expected, err := Fold(p.UserAddress, p.ConditionID, activities)
		if err != nil {
			report.Drifted = append(report.Drifted, Drift{Stored: p, Err: err})
			r.logger.Warn("position history does not fold",
				zap.String("user", p.UserAddress),
				zap.String("condition_id", p.ConditionID),
				zap.Error(err),
			)
			continue
		}

		if !sameBalances(p, expected) {
			report.Drifted = append(report.Drifted, Drift{Stored: p, Expected: expected})
			r.logger.Warn("position drift",
				zap.String("user", p.UserAddress),
				zap.String("condition_id", p.ConditionID),
				zap.String("stored_yes", p.YesTokens.Dec()),
				zap.String("expected_yes", expected.YesTokens.Dec()),
				zap.String("stored_no", p.NoTokens.Dec()),
				zap.String("expected_no", expected.NoTokens.Dec()),
			)
		}
	}

	observability.RecordReconcile("ok", len(report.Drifted), time.Since(start).Seconds())
	r.logger.Info("reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("drifted", len(report.Drifted)),
		zap.Duration("took", time.Since(start)),
	)
	return report, nil
}

// Schedule runs the reconciler on a cron spec (seconds field included)
// until ctx is cancelled. The returned stop function waits for a running
// job to finish.
func (r *Reconciler) Schedule(ctx context.Context, spec string) (stop func(), err error) {
	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc(spec, func() {
		if _, err := r.Run(ctx); err != nil {
			r.logger.Error("reconciliation failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reconcile schedule %q: %v", domain.ErrValidation, spec, err)
	}

	c.Start()
	r.logger.Info("reconciler scheduled", zap.String("spec", spec))

	return func() {
		<-c.Stop().Done()
	}, nil
}

func sameBalances(a, b *domain.Position) bool {
	return a.YesTokens.Eq(&b.YesTokens) &&
		a.NoTokens.Eq(&b.NoTokens) &&
		a.YieldHarvested.Eq(&b.YieldHarvested) &&
		a.UsdRedeemed.Eq(&b.UsdRedeemed)
}
