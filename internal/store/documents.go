package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

const documentColumns = `id, filename, status, error, page_count, chunk_count, generation, uploaded_at, updated_at`

// CreateDocument registers a new document in the uploaded state.
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	doc.UpdatedAt = now
	doc.Status = models.StatusUploaded
	doc.Generation = 0

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, '', 0, 0, 0, ?, ?)`,
		doc.ID, doc.Filename, string(doc.Status), doc.UploadedAt.UnixNano(), doc.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	return nil
}

// BeginIngestion moves a live document to processing under a new generation
// and returns that generation. Any in-flight run of an older generation
// becomes stale.
func (s *Store) BeginIngestion(ctx context.Context, id string) (int64, error) {
	var gen int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents
		SET status = ?, error = '', generation = generation + 1, updated_at = ?
		WHERE id = ? AND status != ?
		RETURNING generation`,
		string(models.StatusProcessing), time.Now().UTC().UnixNano(), id, string(models.StatusDeleted),
	).Scan(&gen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("starting ingestion: %w", err)
	}
	return gen, nil
}

// MarkReady records a successful ingestion. It applies only while the
// document is still processing the given generation and reports whether it did.
func (s *Store) MarkReady(ctx context.Context, id string, generation int64, pages, chunks int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, error = '', page_count = ?, chunk_count = ?, updated_at = ?
		WHERE id = ? AND generation = ? AND status = ?`,
		string(models.StatusReady), pages, chunks, time.Now().UTC().UnixNano(),
		id, generation, string(models.StatusProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("marking document ready: %w", err)
	}
	return applied(res)
}

// MarkFailed records a failed ingestion under the same guard as MarkReady.
func (s *Store) MarkFailed(ctx context.Context, id string, generation int64, reason string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, error = ?, updated_at = ?
		WHERE id = ? AND generation = ? AND status = ?`,
		string(models.StatusFailed), reason, time.Now().UTC().UnixNano(),
		id, generation, string(models.StatusProcessing),
	)
	if err != nil {
		return false, fmt.Errorf("marking document failed: %w", err)
	}
	return applied(res)
}

// GetDocument returns a live document. Deleted documents are not found.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE id = ? AND status != ?`,
		id, string(models.StatusDeleted),
	)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns live documents, most recently uploaded first.
func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE status != ?
		ORDER BY uploaded_at DESC, rowid DESC`,
		string(models.StatusDeleted),
	)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument tombstones a document. The generation bump makes any
// in-flight ingestion stale, and the deleted state is terminal.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, generation = generation + 1, updated_at = ?
		WHERE id = ? AND status != ?`,
		string(models.StatusDeleted), time.Now().UTC().UnixNano(), id, string(models.StatusDeleted),
	)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	ok, err := applied(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*models.Document, error) {
	var (
		doc                  models.Document
		status               string
		uploadedAt, updateAt int64
	)
	err := row.Scan(&doc.ID, &doc.Filename, &status, &doc.Error, &doc.PageCount,
		&doc.ChunkCount, &doc.Generation, &uploadedAt, &updateAt)
	if err != nil {
		return nil, err
	}
	doc.Status = models.Status(status)
	doc.UploadedAt = time.Unix(0, uploadedAt).UTC()
	doc.UpdatedAt = time.Unix(0, updateAt).UTC()
	return &doc, nil
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n == 1, nil
}
