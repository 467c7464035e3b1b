package interest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// Service snapshots stake readings into the interests table.
type Service struct {
	store  storage.InterestStore
	reader StakeReader
	vaults map[string]struct{}
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a Service accepting snapshots for the given vaults.
func NewService(store storage.InterestStore, reader StakeReader, vaults []string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]struct{}, len(vaults))
	for _, v := range vaults {
		set[domain.NormalizeAddress(v)] = struct{}{}
	}
	return &Service{
		store:  store,
		reader: reader,
		vaults: set,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

func (s *Service) validate(vault, user string) (string, string, error) {
	vault = domain.NormalizeAddress(vault)
	user = domain.NormalizeAddress(user)
	if vault == "" || user == "" {
		return "", "", fmt.Errorf("%w: vaultAddress and userAddress are required", domain.ErrValidation)
	}
	if _, ok := s.vaults[vault]; !ok {
		return "", "", fmt.Errorf("%w: vault %s is not a campaign vault", domain.ErrValidation, vault)
	}
	return vault, user, nil
}

// Snapshot reads the user's current stake and upserts it. A read failure
// is returned as is; nothing is written.
func (s *Service) Snapshot(ctx context.Context, vault, user string) (*domain.Interest, error) {
	vault, user, err := s.validate(vault, user)
	if err != nil {
		return nil, err
	}
	if s.reader == nil {
		return nil, fmt.Errorf("stake reader not configured")
	}

	stake, err := s.reader.StakeInfo(ctx, vault, user)
	if err != nil {
		s.logger.Error("stake read failed", zap.String("vault", vault), zap.String("user", user), zap.Error(err))
		return nil, fmt.Errorf("read stake: %w", err)
	}

	in := &domain.Interest{
		VaultAddress: vault,
		UserAddress:  user,
		TotalTokens:  stake.TotalTokens,
		TotalUsd:     stake.TotalUsd,
		EligibleUsd:  stake.EligibleUsd,
		SnapshotAt:   s.now(),
	}
	if err := s.store.Upsert(ctx, in); err != nil {
		return nil, fmt.Errorf("upsert interest: %w", err)
	}
	return in, nil
}

// Get returns the latest snapshot.
func (s *Service) Get(ctx context.Context, vault, user string) (*domain.Interest, error) {
	vault, user, err := s.validate(vault, user)
	if err != nil {
		return nil, err
	}

	in, err := s.store.Get(ctx, vault, user)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no interest snapshot for %s", domain.ErrNotFound, user)
	}
	if err != nil {
		return nil, fmt.Errorf("get interest: %w", err)
	}
	return in, nil
}
