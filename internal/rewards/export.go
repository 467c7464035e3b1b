package rewards

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"vault-indexer/internal/domain"
)

var feedbackCSVHeader = []string{"id", "user_address", "proxy_address", "answers", "created_at"}

// ExportFeedback writes every feedback submission as CSV, oldest first.
func (e *Engine) ExportFeedback(ctx context.Context, w io.Writer) error {
	subs, err := e.db.Feedback().List(ctx)
	if err != nil {
		return fmt.Errorf("list feedback: %w", err)
	}
	return RenderFeedbackCSV(w, subs)
}

// RenderFeedbackCSV renders submissions as CSV. Answers are written as
// their raw JSON text.
func RenderFeedbackCSV(w io.Writer, subs []*domain.FeedbackSubmission) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(feedbackCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range subs {
		record := []string{
			s.ID,
			s.UserAddress,
			s.ProxyAddress,
			string(s.Answers),
			s.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
