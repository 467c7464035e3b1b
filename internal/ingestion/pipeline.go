// Package ingestion turns stream-delivered log batches into recorded
// activities and their derived effects.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/logfilter"
	"vault-indexer/internal/normalizer"
	"vault-indexer/internal/observability"
	"vault-indexer/internal/position"
	"vault-indexer/internal/storage"
)

// ErrUnknownMarketIndex is raised when a campaign activity references a
// market index that no MarketAdded registered.
var ErrUnknownMarketIndex = fmt.Errorf("%w: unknown campaign market index", domain.ErrIntegrityFault)

// Publisher receives activities after they are committed.
type Publisher interface {
	Publish(a *domain.Activity)
}

// Result counts what one Ingest call did.
type Result struct {
	Logs       int // logs matching a configured vault
	Recorded   int // new activities committed
	Duplicates int // activities already present
	Skipped    int // logs or activities dropped as integrity faults
}

// Pipeline runs filter, normalize and per-activity record-then-apply
// transactions for every configured vault.
type Pipeline struct {
	db          storage.Database
	aggregator  *position.Aggregator
	normalizers map[string]*normalizer.Normalizer // by lowercase vault address
	targets     []string
	volume      storage.VolumeStore
	publisher   Publisher
	logger      *zap.Logger
}

// PipelineOptions contains configuration for creating a Pipeline.
type PipelineOptions struct {
	DB     storage.Database
	Vaults []domain.Vault

	// Optional sinks fed after commit.
	Volume    storage.VolumeStore
	Publisher Publisher

	Logger *zap.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("%w: database is required", domain.ErrValidation)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pipeline{
		db:          opts.DB,
		aggregator:  position.NewAggregator(),
		normalizers: make(map[string]*normalizer.Normalizer, len(opts.Vaults)),
		volume:      opts.Volume,
		publisher:   opts.Publisher,
		logger:      logger,
	}

	for _, v := range opts.Vaults {
		addr := domain.NormalizeAddress(v.Address)
		if addr == "" {
			return nil, fmt.Errorf("%w: vault address is required", domain.ErrValidation)
		}
		if _, dup := p.normalizers[addr]; dup {
			return nil, fmt.Errorf("%w: vault %s configured twice", domain.ErrValidation, addr)
		}
		n, err := normalizer.New(v.Family)
		if err != nil {
			return nil, fmt.Errorf("vault %s: %w", addr, err)
		}
		p.normalizers[addr] = n
		p.targets = append(p.targets, addr)
	}

	return p, nil
}

// Ingest processes one delivered payload. Integrity faults are logged and
// skipped; any other error aborts the batch so the provider redelivers it.
// Activities committed before the abort stay committed and are recognized
// as duplicates on redelivery.
func (p *Pipeline) Ingest(ctx context.Context, payload logfilter.Payload) (Result, error) {
	var res Result
	observability.RecordPayload()

	logs := logfilter.FilterAll(payload, p.targets)
	res.Logs = len(logs)

	perVault := make(map[string]int)
	var activities []*domain.Activity
	for _, l := range logs {
		perVault[l.VaultAddress]++

		decoded, err := p.normalizers[l.VaultAddress].Normalize(l)
		if err != nil {
			res.Skipped++
			p.skip(l.VaultAddress, l.TransactionHash, string(l.LogIndex), err)
			continue
		}
		activities = append(activities, decoded...)
	}
	for vault, n := range perVault {
		observability.RecordLogsFiltered(vault, n)
	}

	SortActivities(activities)

	var committed []*domain.Activity
	for _, a := range activities {
		if err := ctx.Err(); err != nil {
			p.forward(ctx, committed)
			return res, err
		}

		inserted, err := p.process(ctx, a)
		switch {
		case errors.Is(err, domain.ErrIntegrityFault):
			res.Skipped++
			p.skip(a.VaultAddress, a.TxHash, fmt.Sprint(a.LogIndex), err)
		case err != nil:
			p.forward(ctx, committed)
			return res, fmt.Errorf("ingest activity %s: %w", a.ID, err)
		case inserted:
			res.Recorded++
			committed = append(committed, a)
		default:
			res.Duplicates++
		}
	}

	p.forward(ctx, committed)
	observability.MarkIngestion(time.Now().Unix())

	p.logger.Info("payload ingested",
		zap.Int("logs", res.Logs),
		zap.Int("recorded", res.Recorded),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// process records one activity and applies its effects in a single
// transaction. A redelivered activity is detected by Record and nothing
// else is touched.
func (p *Pipeline) process(ctx context.Context, a *domain.Activity) (bool, error) {
	start := time.Now()
	family := p.normalizers[a.VaultAddress].Family()

	var inserted bool
	err := p.db.WithinTx(ctx, func(ctx context.Context, tx storage.Stores) error {
		if err := resolveMarket(ctx, tx, family, a); err != nil {
			return err
		}

		ok, err := tx.Activities().Record(ctx, a)
		if err != nil {
			if errors.Is(err, storage.ErrInvalidInput) {
				return fmt.Errorf("%w: %v", domain.ErrIntegrityFault, err)
			}
			return fmt.Errorf("record activity: %w", err)
		}
		if !ok {
			return nil
		}
		inserted = true

		if a.Type.IsLifecycle() {
			return applyLifecycle(ctx, tx, family, a)
		}
		return p.aggregator.Apply(ctx, tx, a)
	})
	if err != nil {
		return false, err
	}

	observability.RecordActivity(a.VaultAddress, string(a.Type), inserted, time.Since(start).Seconds())
	return inserted, nil
}

// resolveMarket fills the condition id of campaign activities from their
// market index. MarketAdded carries both and registers the mapping instead.
func resolveMarket(ctx context.Context, tx storage.Stores, family domain.VaultFamily, a *domain.Activity) error {
	if !family.IsCampaign() || a.ConditionID != "" {
		return nil
	}
	if a.MarketIndex == nil {
		return fmt.Errorf("%w: campaign activity without market index", domain.ErrIntegrityFault)
	}

	m, err := tx.Markets().GetByCampaignIndex(ctx, family, *a.MarketIndex)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s index %d", ErrUnknownMarketIndex, family, *a.MarketIndex)
	}
	if err != nil {
		return fmt.Errorf("resolve market index: %w", err)
	}
	a.ConditionID = m.ConditionID
	return nil
}

func applyLifecycle(ctx context.Context, tx storage.Stores, family domain.VaultFamily, a *domain.Activity) error {
	switch a.Type {
	case domain.ActivityMarketAdded:
		var index *int64
		if family.IsCampaign() {
			index = a.MarketIndex
		}
		err := tx.Markets().Activate(ctx, a.ConditionID, family, index)
		if errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("%w: %s index already registered to another market", domain.ErrIntegrityFault, family)
		}
		if err != nil {
			return fmt.Errorf("activate market: %w", err)
		}
	case domain.ActivityMarketEnded:
		if err := tx.Markets().End(ctx, a.ConditionID, family, time.Unix(a.Timestamp, 0).UTC()); err != nil {
			return fmt.Errorf("end market: %w", err)
		}
	}
	return nil
}

// forward hands committed activities to the analytics store and the live
// feed. Failures here never fail ingestion.
func (p *Pipeline) forward(ctx context.Context, committed []*domain.Activity) {
	if len(committed) == 0 {
		return
	}

	if p.volume != nil {
		if err := p.volume.Insert(ctx, committed); err != nil {
			observability.RecordVolumeExportError()
			p.logger.Error("volume export failed", zap.Int("activities", len(committed)), zap.Error(err))
		}
	}

	if p.publisher != nil {
		for _, a := range committed {
			p.publisher.Publish(a)
		}
	}
}

func (p *Pipeline) skip(vault, txHash, logIndex string, err error) {
	observability.RecordSkipped(vault, reason(err))
	p.logger.Warn("integrity fault, skipping",
		zap.String("vault", vault),
		zap.String("tx_hash", txHash),
		zap.String("log_index", logIndex),
		zap.String("reason", err.Error()),
	)
}

// reason maps an integrity fault to a low-cardinality metric label.
func reason(err error) string {
	switch {
	case errors.Is(err, normalizer.ErrUnknownEvent):
		return "unknown_event"
	case errors.Is(err, normalizer.ErrMalformedLog):
		return "malformed_log"
	case errors.Is(err, normalizer.ErrRemovedLog):
		return "removed_log"
	case errors.Is(err, normalizer.ErrUnclassified):
		return "unclassified"
	case errors.Is(err, position.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, position.ErrNoPosition):
		return "no_position"
	case errors.Is(err, ErrUnknownMarketIndex):
		return "unknown_market_index"
	default:
		return "other"
	}
}
