package memory

import (
	"context"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// InterestStore is an in-memory implementation of storage.InterestStore.
type InterestStore struct {
	v *view
}

// Upsert inserts or replaces the (vault, user) snapshot. CreatedAt of an
// existing row is preserved.
func (s *InterestStore) Upsert(_ context.Context, in *domain.Interest) error {
	if in == nil || in.VaultAddress == "" || in.UserAddress == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	k := key(in.VaultAddress, in.UserAddress)
	prev, existed := s.v.st.interests[k]

	c := *in
	now := s.v.now()
	c.UpdatedAt = now
	c.CreatedAt = now
	if existed {
		c.CreatedAt = prev.CreatedAt
	}
	s.v.st.interests[k] = &c
	in.CreatedAt, in.UpdatedAt = c.CreatedAt, c.UpdatedAt

	s.v.journal(func() {
		if existed {
			s.v.st.interests[k] = prev
		} else {
			delete(s.v.st.interests, k)
		}
	})
	return nil
}

// Get returns the snapshot. Returns ErrNotFound if absent.
func (s *InterestStore) Get(_ context.Context, vault, user string) (*domain.Interest, error) {
	unlock := s.v.rlock()
	defer unlock()

	in, ok := s.v.st.interests[key(vault, user)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := *in
	return &c, nil
}

var _ storage.InterestStore = (*InterestStore)(nil)
