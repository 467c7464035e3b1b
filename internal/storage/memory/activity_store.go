package memory

import (
	"context"
	"sort"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// ActivityStore is an in-memory implementation of storage.ActivityStore.
type ActivityStore struct {
	v *view
}

// Record inserts the activity unless (vault, id) exists.
func (s *ActivityStore) Record(_ context.Context, a *domain.Activity) (bool, error) {
	if a == nil || a.VaultAddress == "" || a.ID == "" {
		return false, storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	k := key(a.VaultAddress, a.ID)
	if _, exists := s.v.st.activities[k]; exists {
		return false, nil
	}

	s.v.st.nextSeq++
	a.Seq = s.v.st.nextSeq
	a.CreatedAt = s.v.now()
	s.v.st.activities[k] = a.Clone()
	s.v.journal(func() { delete(s.v.st.activities, k) })
	return true, nil
}

// List returns one page ordered by timestamp DESC, seq DESC.
func (s *ActivityStore) List(_ context.Context, q domain.ActivityQuery) ([]*domain.Activity, error) {
	if q.VaultAddress == "" || len(q.Types) == 0 {
		return nil, storage.ErrInvalidInput
	}

	types := make(map[domain.ActivityType]struct{}, len(q.Types))
	for _, t := range q.Types {
		types[t] = struct{}{}
	}

	unlock := s.v.rlock()
	var result []*domain.Activity
	for _, a := range s.v.st.activities {
		if a.VaultAddress != q.VaultAddress {
			continue
		}
		if _, ok := types[a.Type]; !ok {
			continue
		}
		if q.UserAddress != "" && a.UserAddress != q.UserAddress {
			continue
		}
		if q.Since != nil && a.Timestamp < *q.Since {
			continue
		}
		result = append(result, a.Clone())
	}
	unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].Seq > result[j].Seq
	})

	if q.Since == nil && q.Skip > 0 {
		if q.Skip >= len(result) {
			return nil, nil
		}
		result = result[q.Skip:]
	}
	limit := q.Limit
	if limit <= 0 {
		limit = domain.ActivityPageSize
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// HasType reports whether the user has an activity of one of the types.
func (s *ActivityStore) HasType(_ context.Context, vault, user string, types []domain.ActivityType) (bool, error) {
	unlock := s.v.rlock()
	defer unlock()

	for _, a := range s.v.st.activities {
		if a.UserAddress != user || (vault != "" && a.VaultAddress != vault) {
			continue
		}
		for _, t := range types {
			if a.Type == t {
				return true, nil
			}
		}
	}
	return false, nil
}

// HasDeposit reports whether the user has a non-zero deposit in any vault.
func (s *ActivityStore) HasDeposit(_ context.Context, user string) (bool, error) {
	unlock := s.v.rlock()
	defer unlock()

	for _, a := range s.v.st.activities {
		if a.UserAddress != user || !a.Type.IsDeposit() {
			continue
		}
		if !a.YesAmount.IsZero() || !a.NoAmount.IsZero() {
			return true, nil
		}
	}
	return false, nil
}

// ListForPosition returns a user's activities on a market in timestamp order.
func (s *ActivityStore) ListForPosition(_ context.Context, user, conditionID string) ([]*domain.Activity, error) {
	unlock := s.v.rlock()
	var result []*domain.Activity
	for _, a := range s.v.st.activities {
		if a.UserAddress == user && a.ConditionID == conditionID {
			result = append(result, a.Clone())
		}
	}
	unlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

var _ storage.ActivityStore = (*ActivityStore)(nil)
