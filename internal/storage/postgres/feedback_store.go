package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"vault-indexer/internal/domain"
	"vault-indexer/internal/storage"
)

// FeedbackStore implements storage.FeedbackStore using PostgreSQL.
type FeedbackStore struct {
	q querier
}

// Compile-time interface check.
var _ storage.FeedbackStore = (*FeedbackStore)(nil)

// Insert adds a submission. Returns ErrDuplicateKey if the user already submitted.
func (s *FeedbackStore) Insert(ctx context.Context, f *domain.FeedbackSubmission) error {
	if f == nil || f.ID == "" || f.UserAddress == "" {
		return storage.ErrInvalidInput
	}

	answers := f.Answers
	if len(answers) == 0 {
		answers = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO feedback_submissions (id, user_address, proxy_address, answers)
		VALUES ($1, $2, $3, $4::text::jsonb)
		RETURNING created_at
	`

	err := s.q.QueryRow(ctx, query, f.ID, f.UserAddress, f.ProxyAddress, string(answers)).Scan(&f.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert feedback submission: %w", err)
	}
	return nil
}

// Exists reports whether the user submitted feedback.
func (s *FeedbackStore) Exists(ctx context.Context, user string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM feedback_submissions WHERE user_address = $1)`, user,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check feedback submission: %w", err)
	}
	return exists, nil
}

// List returns all submissions ordered by creation time.
func (s *FeedbackStore) List(ctx context.Context) ([]*domain.FeedbackSubmission, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, user_address, proxy_address, answers::text, created_at
		FROM feedback_submissions
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list feedback submissions: %w", err)
	}
	defer rows.Close()

	var result []*domain.FeedbackSubmission
	for rows.Next() {
		var f domain.FeedbackSubmission
		var answers string
		if err := rows.Scan(&f.ID, &f.UserAddress, &f.ProxyAddress, &answers, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		f.Answers = json.RawMessage(answers)
		result = append(result, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return result, nil
}
