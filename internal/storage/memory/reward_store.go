package memory

import (
	"context"
	"encoding/json"
	"sort"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// RewardStore is an in-memory implementation of storage.RewardStore.
type RewardStore struct {
	v *view
}

func cloneReward(r *domain.RewardActivity) *domain.RewardActivity {
	c := *r
	c.Details = append(json.RawMessage(nil), r.Details...)
	return &c
}

// Insert appends a ledger row.
func (s *RewardStore) Insert(_ context.Context, r *domain.RewardActivity) error {
	if r == nil || r.ID == "" || r.UserAddress == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	if _, exists := s.v.st.rewards[r.ID]; exists {
		return storage.ErrDuplicateKey
	}
	r.CreatedAt = s.v.now()
	s.v.st.rewards[r.ID] = cloneReward(r)
	s.v.st.order(r.ID)
	s.v.journal(func() { delete(s.v.st.rewards, r.ID) })
	return nil
}

// Update replaces points and details.
func (s *RewardStore) Update(_ context.Context, id string, points int64, details json.RawMessage) (*domain.RewardActivity, error) {
	unlock := s.v.lock()
	defer unlock()

	prev, ok := s.v.st.rewards[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	r := cloneReward(prev)
	r.Points = points
	if details != nil {
		r.Details = append(json.RawMessage(nil), details...)
	}
	s.v.st.rewards[id] = r
	s.v.journal(func() { s.v.st.rewards[id] = prev })
	return cloneReward(r), nil
}

// Delete removes a row.
func (s *RewardStore) Delete(_ context.Context, id string) error {
	unlock := s.v.lock()
	defer unlock()

	prev, ok := s.v.st.rewards[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.v.st.rewards, id)
	s.v.journal(func() { s.v.st.rewards[id] = prev })
	return nil
}

// Balance sums the user's points.
func (s *RewardStore) Balance(_ context.Context, user string) (int64, error) {
	unlock := s.v.rlock()
	defer unlock()

	var total int64
	for _, r := range s.v.st.rewards {
		if r.UserAddress == user {
			total += r.Points
		}
	}
	return total, nil
}

// History returns the user's rows, newest first.
func (s *RewardStore) History(_ context.Context, user string) ([]*domain.RewardActivity, error) {
	unlock := s.v.rlock()
	defer unlock()

	var result []*domain.RewardActivity
	for _, r := range s.v.st.rewards {
		if r.UserAddress == user {
			result = append(result, cloneReward(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return s.v.st.rowSeq[result[i].ID] > s.v.st.rowSeq[result[j].ID]
	})
	return result, nil
}

var _ storage.RewardStore = (*RewardStore)(nil)
