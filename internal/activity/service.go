// Package activity answers filtered activity listings for configured vaults.
package activity

import (
	"context"
	"fmt"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// Query is a listing request as received from a client.
type Query struct {
	VaultAddress string
	Types        []string // empty selects the vault family's full taxonomy
	UserAddress  string
	Since        *int64
	Skip         int
}

// Service validates listing requests against the vault taxonomy.
type Service struct {
	store    storage.ActivityStore
	families map[string]domain.VaultFamily
}

// NewService creates a Service for the given vaults.
func NewService(store storage.ActivityStore, vaults []domain.Vault) *Service {
	families := make(map[string]domain.VaultFamily, len(vaults))
	for _, v := range vaults {
		families[domain.NormalizeAddress(v.Address)] = v.Family
	}
	return &Service{store: store, families: families}
}

// Family returns the family of a configured vault.
func (s *Service) Family(vault string) (domain.VaultFamily, bool) {
	f, ok := s.families[domain.NormalizeAddress(vault)]
	return f, ok
}

// List returns one page of activities, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]*domain.Activity, error) {
	vault := domain.NormalizeAddress(q.VaultAddress)
	if vault == "" {
		return nil, fmt.Errorf("%w: vaultAddress is required", domain.ErrValidation)
	}
	family, ok := s.families[vault]
	if !ok {
		return nil, fmt.Errorf("%w: unknown vault %s", domain.ErrValidation, vault)
	}
	if q.Skip < 0 {
		return nil, fmt.Errorf("%w: skip must be >= 0", domain.ErrValidation)
	}

	types, err := resolveTypes(family, q.Types)
	if err != nil {
		return nil, err
	}

	activities, err := s.store.List(ctx, domain.ActivityQuery{
		VaultAddress: vault,
		Types:        types,
		UserAddress:  domain.NormalizeAddress(q.UserAddress),
		Since:        q.Since,
		Skip:         q.Skip,
		Limit:        domain.ActivityPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// resolveTypes maps requested names onto the family's allow-list, dropping
// duplicates. An empty request selects every family type.
func resolveTypes(family domain.VaultFamily, requested []string) ([]domain.ActivityType, error) {
	if len(requested) == 0 {
		return family.Types(), nil
	}
	seen := make(map[domain.ActivityType]struct{}, len(requested))
	types := make([]domain.ActivityType, 0, len(requested))
	for _, name := range requested {
		t := domain.ActivityType(name)
		if !family.Allows(t) {
			return nil, fmt.Errorf("%w: type %q is not valid for %s vaults", domain.ErrValidation, name, family)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		types = append(types, t)
	}
	return types, nil
}
