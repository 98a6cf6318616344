package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

// RecordQuestion appends an answered question to its document's history.
func (s *Store) RecordQuestion(ctx context.Context, rec models.QARecord) error {
	pages := rec.SourcePages
	if pages == nil {
		pages = []int{}
	}
	pagesJSON, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("marshaling source pages: %w", err)
	}
	if rec.AskedAt.IsZero() {
		rec.AskedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO questions (id, document_id, question, answer, source_pages, cached, asked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DocumentID, rec.Question, rec.Answer, string(pagesJSON), rec.Cached, rec.AskedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}
	return nil
}

// ListQuestions returns a document's history, oldest first.
func (s *Store) ListQuestions(ctx context.Context, documentID string) ([]models.QARecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, question, answer, source_pages, cached, asked_at
		FROM questions
		WHERE document_id = ?
		ORDER BY asked_at, rowid`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	records := []models.QARecord{}
	for rows.Next() {
		var (
			rec       models.QARecord
			pagesJSON string
			askedAt   int64
		)
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.Question, &rec.Answer,
			&pagesJSON, &rec.Cached, &askedAt); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		if err := json.Unmarshal([]byte(pagesJSON), &rec.SourcePages); err != nil {
			return nil, fmt.Errorf("unmarshaling source pages: %w", err)
		}
		rec.AskedAt = time.Unix(0, askedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}
	return records, nil
}

// DeleteQuestions removes a document's history.
func (s *Store) DeleteQuestions(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM questions WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting questions: %w", err)
	}
	return nil
}
