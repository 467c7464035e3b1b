package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// ReferralStore is an in-memory implementation of storage.ReferralStore.
type ReferralStore struct {
	v *view
}

func cloneEntry(e *domain.ReferralEntry) *domain.ReferralEntry {
	c := *e
	if e.RealizedValue != nil {
		v := *e.RealizedValue
		c.RealizedValue = &v
	}
	return &c
}

// CreateCode inserts a code. Returns ErrDuplicateKey if the code text exists.
func (s *ReferralStore) CreateCode(_ context.Context, c *domain.ReferralCode) error {
	if c == nil || c.ID == "" || c.Code == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	if _, exists := s.v.st.codes[c.ID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.v.st.codes {
		if existing.Code == c.Code {
			return storage.ErrDuplicateKey
		}
	}

	c.CreatedAt = s.v.now()
	cp := *c
	s.v.st.codes[c.ID] = &cp
	s.v.st.order(c.ID)
	s.v.journal(func() { delete(s.v.st.codes, c.ID) })
	return nil
}

// GetCode returns a code by id.
func (s *ReferralStore) GetCode(_ context.Context, id string) (*domain.ReferralCode, error) {
	unlock := s.v.rlock()
	defer unlock()

	c, ok := s.v.st.codes[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// GetCodeByCode returns a code by its text.
func (s *ReferralStore) GetCodeByCode(_ context.Context, code string) (*domain.ReferralCode, error) {
	unlock := s.v.rlock()
	defer unlock()

	for _, c := range s.v.st.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetCodeByOwner returns the owner's oldest code.
func (s *ReferralStore) GetCodeByOwner(_ context.Context, owner string) (*domain.ReferralCode, error) {
	unlock := s.v.rlock()
	defer unlock()

	var found *domain.ReferralCode
	for _, c := range s.v.st.codes {
		if c.OwnerAddress != owner {
			continue
		}
		if found == nil || s.v.st.rowSeq[c.ID] < s.v.st.rowSeq[found.ID] {
			found = c
		}
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

// CreateEntry inserts an unrealized entry. Returns ErrNotFound if the code is absent.
func (s *ReferralStore) CreateEntry(_ context.Context, e *domain.ReferralEntry) error {
	if e == nil || e.ID == "" || e.ReferralCodeID == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	if _, ok := s.v.st.codes[e.ReferralCodeID]; !ok {
		return storage.ErrNotFound
	}
	if _, exists := s.v.st.entries[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.v.st.entries[e.ID] = cloneEntry(e)
	s.v.st.order(e.ID)
	s.v.journal(func() { delete(s.v.st.entries, e.ID) })
	return nil
}

// Realize sets the entry's realized value.
func (s *ReferralStore) Realize(_ context.Context, entryID string, value decimal.Decimal) (*domain.ReferralEntry, error) {
	unlock := s.v.lock()
	defer unlock()

	prev, ok := s.v.st.entries[entryID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	e := cloneEntry(prev)
	e.RealizedValue = &value
	s.v.st.entries[entryID] = e
	s.v.journal(func() { s.v.st.entries[entryID] = prev })
	return cloneEntry(e), nil
}

// RealizedEntries returns the code's realized entries, newest first.
func (s *ReferralStore) RealizedEntries(_ context.Context, codeID string) ([]*domain.ReferralEntry, error) {
	unlock := s.v.rlock()
	defer unlock()

	var result []*domain.ReferralEntry
	for _, e := range s.v.st.entries {
		if e.ReferralCodeID == codeID && e.RealizedValue != nil {
			result = append(result, cloneEntry(e))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return s.v.st.rowSeq[result[i].ID] > s.v.st.rowSeq[result[j].ID]
	})
	return result, nil
}

// TotalRealized sums realized values for a code, or globally for "".
func (s *ReferralStore) TotalRealized(_ context.Context, codeID string) (decimal.Decimal, error) {
	unlock := s.v.rlock()
	defer unlock()

	total := decimal.Zero
	for _, e := range s.v.st.entries {
		if e.RealizedValue == nil || (codeID != "" && e.ReferralCodeID != codeID) {
			continue
		}
		total = total.Add(*e.RealizedValue)
	}
	return total, nil
}

var _ storage.ReferralStore = (*ReferralStore)(nil)
