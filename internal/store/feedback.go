package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

// RecordFeedback stores the first rating for a message. Later ratings for
// the same message fail with ErrConflict and leave the original intact.
func (s *Store) RecordFeedback(ctx context.Context, fb models.Feedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (message_id, is_helpful, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING`,
		fb.MessageID, fb.Helpful, fb.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting feedback: %w", err)
	}

	ok, err := applied(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: feedback already recorded for message %s", models.ErrConflict, fb.MessageID)
	}
	return nil
}

// GetFeedback returns the rating stored for a message.
func (s *Store) GetFeedback(ctx context.Context, messageID string) (*models.Feedback, error) {
	var (
		fb        models.Feedback
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT message_id, is_helpful, created_at FROM feedback WHERE message_id = ?",
		messageID,
	).Scan(&fb.MessageID, &fb.Helpful, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: feedback for message %s", models.ErrNotFound, messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying feedback: %w", err)
	}
	fb.CreatedAt = time.Unix(0, createdAt).UTC()
	return &fb, nil
}
