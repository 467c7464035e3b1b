package memory

import (
	"context"
	"encoding/json"
	"sort"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// FeedbackStore is an in-memory implementation of storage.FeedbackStore.
type FeedbackStore struct {
	v *view
}

// Insert adds a submission. Returns ErrDuplicateKey if the user already submitted.
func (s *FeedbackStore) Insert(_ context.Context, f *domain.FeedbackSubmission) error {
	if f == nil || f.ID == "" || f.UserAddress == "" {
		return storage.ErrInvalidInput
	}

	unlock := s.v.lock()
	defer unlock()

	if _, exists := s.v.st.feedback[f.UserAddress]; exists {
		return storage.ErrDuplicateKey
	}
	f.CreatedAt = s.v.now()
	c := *f
	c.Answers = append(json.RawMessage(nil), f.Answers...)
	s.v.st.feedback[f.UserAddress] = &c
	s.v.st.order(f.ID)
	s.v.journal(func() { delete(s.v.st.feedback, f.UserAddress) })
	return nil
}

// Exists reports whether the user submitted feedback.
func (s *FeedbackStore) Exists(_ context.Context, user string) (bool, error) {
	unlock := s.v.rlock()
	defer unlock()

	_, ok := s.v.st.feedback[user]
	return ok, nil
}

// List returns all submissions in creation order.
func (s *FeedbackStore) List(_ context.Context) ([]*domain.FeedbackSubmission, error) {
	unlock := s.v.rlock()
	defer unlock()

	result := make([]*domain.FeedbackSubmission, 0, len(s.v.st.feedback))
	for _, f := range s.v.st.feedback {
		c := *f
		result = append(result, &c)
	}
	sort.Slice(result, func(i, j int) bool {
		return s.v.st.rowSeq[result[i].ID] < s.v.st.rowSeq[result[j].ID]
	})
	return result, nil
}

var _ storage.FeedbackStore = (*FeedbackStore)(nil)
