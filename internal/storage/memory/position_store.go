package memory

import (
	"context"
	"fmt"
	"sort"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	v *view
}

func clonePosition(p *domain.Position) *domain.Position {
	c := *p
	return &c
}

// Lock returns the position, creating a zeroed row if absent. Row locking
// is implied by the transaction's write lock.
func (s *PositionStore) Lock(_ context.Context, user, conditionID string) (*domain.Position, bool, error) {
	if user == "" || conditionID == "" {
		return nil, false, storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	k := key(user, conditionID)
	if p, ok := s.v.st.positions[k]; ok {
		return clonePosition(p), false, nil
	}

	p := &domain.Position{UserAddress: user, ConditionID: conditionID, UpdatedAt: s.v.now()}
	s.v.st.positions[k] = p
	s.v.journal(func() { delete(s.v.st.positions, k) })
	return clonePosition(p), true, nil
}

// Save writes the position balances.
func (s *PositionStore) Save(_ context.Context, p *domain.Position) error {
	if p == nil || p.UserAddress == "" || p.ConditionID == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	k := key(p.UserAddress, p.ConditionID)
	prev, existed := s.v.st.positions[k]
	c := clonePosition(p)
	c.UpdatedAt = s.v.now()
	s.v.st.positions[k] = c
	p.UpdatedAt = c.UpdatedAt

	s.v.journal(func() {
		if existed {
			s.v.st.positions[k] = prev
		} else {
			delete(s.v.st.positions, k)
		}
	})
	return nil
}

// Get returns a position. Returns ErrNotFound if absent.
func (s *PositionStore) Get(_ context.Context, user, conditionID string) (*domain.Position, error) {
	unlock := s.v.rlock()
	defer unlock()

	p, ok := s.v.st.positions[key(user, conditionID)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clonePosition(p), nil
}

// Sums totals a user's balances.
func (s *PositionStore) Sums(_ context.Context, user string) (domain.PositionSums, error) {
	unlock := s.v.rlock()
	defer unlock()

	var sums domain.PositionSums
	for _, p := range s.v.st.positions {
		if p.UserAddress != user {
			continue
		}
		if _, overflow := sums.YesTokens.AddOverflow(&sums.YesTokens, &p.YesTokens); overflow {
			return domain.PositionSums{}, fmt.Errorf("sum yes tokens: overflow")
		}
		if _, overflow := sums.NoTokens.AddOverflow(&sums.NoTokens, &p.NoTokens); overflow {
			return domain.PositionSums{}, fmt.Errorf("sum no tokens: overflow")
		}
		if _, overflow := sums.YieldHarvested.AddOverflow(&sums.YieldHarvested, &p.YieldHarvested); overflow {
			return domain.PositionSums{}, fmt.Errorf("sum yield harvested: overflow")
		}
	}
	return sums, nil
}

// List returns one page of the user's positions with market display fields,
// ordered by updated_at DESC, condition_id ASC.
func (s *PositionStore) List(_ context.Context, user string, filter domain.PortfolioFilter, page int) ([]*domain.PortfolioEntry, int, error) {
	if page < 1 {
		return nil, 0, storage.ErrInvalidInput
	}

	unlock := s.v.rlock()
	var entries []*domain.PortfolioEntry
	for _, p := range s.v.st.positions {
		if p.UserAddress != user {
			continue
		}
		e := &domain.PortfolioEntry{Position: *p}
		if m, ok := s.v.st.markets[p.ConditionID]; ok {
			e.Market = marketView(m)
		}
		ended := domain.IsEnded(p, e.Market.Status)
		switch filter {
		case domain.PortfolioEnded:
			if !ended {
				continue
			}
		case domain.PortfolioActive:
			if ended {
				continue
			}
		}
		entries = append(entries, e)
	}
	unlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		}
		return entries[i].ConditionID < entries[j].ConditionID
	})

	total := len(entries)
	start := (page - 1) * domain.PortfolioPageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + domain.PortfolioPageSize
	if end > total {
		end = total
	}
	return entries[start:end], total, nil
}

// All returns every position.
func (s *PositionStore) All(_ context.Context) ([]*domain.Position, error) {
	unlock := s.v.rlock()
	defer unlock()

	result := make([]*domain.Position, 0, len(s.v.st.positions))
	for _, p := range s.v.st.positions {
		result = append(result, clonePosition(p))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UserAddress != result[j].UserAddress {
			return result[i].UserAddress < result[j].UserAddress
		}
		return result[i].ConditionID < result[j].ConditionID
	})
	return result, nil
}

func marketView(m *domain.Market) domain.MarketView {
	v := domain.MarketView{
		Question: m.Question,
		Image:    m.Image,
		Status:   m.Status,
		Slug:     m.Slug,
	}
	if m.EndDate != nil {
		end := *m.EndDate
		v.EndDate = &end
	}
	return v
}

var _ storage.PositionStore = (*PositionStore)(nil)
