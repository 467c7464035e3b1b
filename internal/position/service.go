package position

import (
	"context"
	"fmt"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// Portfolio is one page of a user's positions plus their totals.
type Portfolio struct {
	Sums       domain.PositionSums
	Page       int
	PageSize   int
	TotalCount int
	Entries    []*domain.PortfolioEntry
}

// Service answers portfolio queries.
type Service struct {
	positions storage.PositionStore
}

// NewService creates a new Service.
func NewService(positions storage.PositionStore) *Service {
	return &Service{positions: positions}
}

// Portfolio returns the user's sums and one filtered page of positions.
func (s *Service) Portfolio(ctx context.Context, user string, filter domain.PortfolioFilter, page int) (*Portfolio, error) {
	user = domain.NormalizeAddress(user)
	if user == "" {
		return nil, fmt.Errorf("%w: address is required", domain.ErrValidation)
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if _, ok := domain.ParsePortfolioFilter(string(filter)); !ok {
		return nil, fmt.Errorf("%w: unknown filter %q", domain.ErrValidation, filter)
	}

	sums, err := s.positions.Sums(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("sum positions: %w", err)
	}

	entries, total, err := s.positions.List(ctx, user, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	return &Portfolio{
		Sums:       sums,
		Page:       page,
		PageSize:   domain.PortfolioPageSize,
		TotalCount: total,
		Entries:    entries,
	}, nil
}
