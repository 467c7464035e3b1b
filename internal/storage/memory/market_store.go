package memory

import (
	"context"
	"time"

	"github.com/holiman/uint256"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// MarketStore is an in-memory implementation of storage.MarketStore.
type MarketStore struct {
	v *view
}

func cloneMarket(m *domain.Market) *domain.Market {
	c := *m
	if m.GenesisIndex != nil {
		idx := *m.GenesisIndex
		c.GenesisIndex = &idx
	}
	if m.PromotionIndex != nil {
		idx := *m.PromotionIndex
		c.PromotionIndex = &idx
	}
	if m.GenesisEndedAt != nil {
		at := *m.GenesisEndedAt
		c.GenesisEndedAt = &at
	}
	if m.EndDate != nil {
		end := *m.EndDate
		c.EndDate = &end
	}
	c.OutcomePrices = append([]string(nil), m.OutcomePrices...)
	return &c
}

// Get returns a market. Returns ErrNotFound if absent.
func (s *MarketStore) Get(_ context.Context, conditionID string) (*domain.Market, error) {
	unlock := s.v.rlock()
	defer unlock()

	m, ok := s.v.st.markets[conditionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneMarket(m), nil
}

// GetByCampaignIndex resolves a campaign index to its market.
func (s *MarketStore) GetByCampaignIndex(_ context.Context, family domain.VaultFamily, index int64) (*domain.Market, error) {
	unlock := s.v.rlock()
	defer unlock()

	for _, m := range s.v.st.markets {
		if idx := m.CampaignIndex(family); idx != nil && *idx == index {
			return cloneMarket(m), nil
		}
	}
	return nil, storage.ErrNotFound
}

// mutate applies fn to the market, creating it if needed, and journals the
// previous value.
func (s *MarketStore) mutate(conditionID string, fn func(m *domain.Market) error) (*domain.Market, error) {
	prev, existed := s.v.st.markets[conditionID]
	var m *domain.Market
	if existed {
		m = cloneMarket(prev)
	} else {
		m = &domain.Market{ConditionID: conditionID}
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	m.UpdatedAt = s.v.now()
	s.v.st.markets[conditionID] = m
	s.v.journal(func() {
		if existed {
			s.v.st.markets[conditionID] = prev
		} else {
			delete(s.v.st.markets, conditionID)
		}
	})
	return cloneMarket(m), nil
}

// Activate raises the market to Active and records its campaign index.
func (s *MarketStore) Activate(_ context.Context, conditionID string, family domain.VaultFamily, index *int64) error {
	if conditionID == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	if index != nil && family.IsCampaign() {
		for cond, other := range s.v.st.markets {
			if idx := other.CampaignIndex(family); cond != conditionID && idx != nil && *idx == *index {
				return storage.ErrDuplicateKey
			}
		}
	}

	_, err := s.mutate(conditionID, func(m *domain.Market) error {
		if m.Status < domain.MarketActive {
			m.Status = domain.MarketActive
		}
		if index != nil {
			idx := *index
			switch family {
			case domain.FamilyGenesis:
				m.GenesisIndex = &idx
			case domain.FamilyPromotion:
				m.PromotionIndex = &idx
			}
		}
		return nil
	})
	return err
}

// End raises the market to Unlocked.
func (s *MarketStore) End(_ context.Context, conditionID string, family domain.VaultFamily, at time.Time) error {
	if conditionID == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	_, err := s.mutate(conditionID, func(m *domain.Market) error {
		m.Status = domain.MarketUnlocked
		if family == domain.FamilyGenesis && m.GenesisEndedAt == nil {
			ended := at.UTC()
			m.GenesisEndedAt = &ended
		}
		return nil
	})
	return err
}

// UpdateTVL stores the TVL produced by fn.
func (s *MarketStore) UpdateTVL(_ context.Context, conditionID string, fn func(tvl *uint256.Int) error) error {
	if conditionID == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	_, err := s.mutate(conditionID, func(m *domain.Market) error {
		return fn(&m.TVL)
	})
	return err
}

// SetMetadata replaces the display metadata.
func (s *MarketStore) SetMetadata(_ context.Context, conditionID string, meta domain.MarketMetadata) (*domain.Market, error) {
	if conditionID == "" {
		return nil, storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	return s.mutate(conditionID, func(m *domain.Market) error {
		m.Question = meta.Question
		m.Image = meta.Image
		m.Slug = meta.Slug
		m.EndDate = nil
		if meta.EndDate != nil {
			end := meta.EndDate.UTC()
			m.EndDate = &end
		}
		m.OutcomePrices = append([]string(nil), meta.OutcomePrices...)
		return nil
	})
}

var _ storage.MarketStore = (*MarketStore)(nil)
