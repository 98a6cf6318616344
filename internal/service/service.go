// Package service coordinates the registry, ingestion engine, composer and
// answer cache behind the operations exposed over HTTP, MCP and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/mfenderov/pdf-rag/internal/cache"
	"github.com/mfenderov/pdf-rag/internal/extractor"
	"github.com/mfenderov/pdf-rag/internal/ingestion"
	"github.com/mfenderov/pdf-rag/internal/rag"
	"github.com/mfenderov/pdf-rag/internal/store"
	"github.com/mfenderov/pdf-rag/pkg/models"
)

// DefaultMaxUploadBytes caps accepted PDF uploads.
const DefaultMaxUploadBytes = 50 << 20

// cleanupTimeout bounds best-effort cleanup after a delete.
const cleanupTimeout = 30 * time.Second

// Index is the part of the vector index the service manages directly.
type Index interface {
	DeleteDocument(ctx context.Context, documentID string) error
	Ping(ctx context.Context) bool
}

// BlobStore keeps the raw PDF bytes of each document.
type BlobStore interface {
	PutPDF(ctx context.Context, documentID string, data []byte) error
	GetPDF(ctx context.Context, documentID string) ([]byte, error)
	DeletePDF(ctx context.Context, documentID string) error
}

// Deps are the collaborators the service coordinates. Blobs may be nil,
// which disables PDF download and re-ingestion.
type Deps struct {
	Store     *store.Store
	Index     Index
	Blobs     BlobStore
	Engine    *ingestion.Engine
	Composer  *rag.Composer
	Cache     *cache.Cache
	Extractor *extractor.Extractor
}

// Options tune request validation.
type Options struct {
	MaxUploadBytes int64
}

// AskResult is an answered question.
type AskResult struct {
	MessageID string
	Answer    models.Answer
	Cached    bool
}

// DocumentStatus is the externally visible state of a document.
type DocumentStatus struct {
	ID           string        `json:"id"`
	Exists       bool          `json:"exists"`
	Filename     string        `json:"filename"`
	IsVectorized bool          `json:"is_vectorized"`
	Status       models.Status `json:"status,omitempty"`
	Error        string        `json:"error,omitempty"`
	PageCount    int           `json:"page_count,omitempty"`
}

// DocumentDetail is a document with its question history.
type DocumentDetail struct {
	Document models.Document   `json:"metadata"`
	History  []models.QARecord `json:"qa_history"`
}

// Health reports backend reachability.
type Health struct {
	Database    bool        `json:"database"`
	VectorIndex bool        `json:"vector_index"`
	Cache       cache.Stats `json:"cache"`
}

// Service implements the document and question operations.
type Service struct {
	store     *store.Store
	index     Index
	blobs     BlobStore
	engine    *ingestion.Engine
	composer  *rag.Composer
	cache     *cache.Cache
	extractor *extractor.Extractor
	maxUpload int64
}

// New creates a service.
func New(deps Deps, opts Options) *Service {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.Cache == nil {
		deps.Cache = cache.New(0)
	}
	if deps.Extractor == nil {
		deps.Extractor = extractor.New()
	}
	return &Service{
		store:     deps.Store,
		index:     deps.Index,
		blobs:     deps.Blobs,
		engine:    deps.Engine,
		composer:  deps.Composer,
		cache:     deps.Cache,
		extractor: deps.Extractor,
		maxUpload: opts.MaxUploadBytes,
	}
}

// Upload validates a PDF, registers it and schedules ingestion. It returns
// once the document is processing; ingestion continues in the background.
func (s *Service) Upload(ctx context.Context, filename string, data []byte) (*models.Document, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, fmt.Errorf("%w: filename is required", models.ErrValidation)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", models.ErrValidation)
	}
	if int64(len(data)) > s.maxUpload {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", models.ErrValidation, s.maxUpload)
	}
	if !extractor.HasPDFHeader(data) {
		return nil, fmt.Errorf("%w: %s is not a PDF", models.ErrValidation, filename)
	}
	if err := s.extractor.Validate(data); err != nil {
		return nil, err
	}

	doc := &models.Document{ID: models.NewDocumentID(), Filename: filename}

	if s.blobs != nil {
		if err := s.blobs.PutPDF(ctx, doc.ID, data); err != nil {
			return nil, fmt.Errorf("%w: storing PDF: %v", models.ErrUpstream, err)
		}
	}

	if err := s.store.CreateDocument(ctx, doc); err != nil {
		s.discardPDF(ctx, doc.ID)
		return nil, err
	}
	if err := s.startIngestion(ctx, doc, data); err != nil {
		return nil, err
	}

	slog.Info("document uploaded", "document_id", doc.ID, "filename", filename, "bytes", len(data))
	return doc, nil
}

func (s *Service) discardPDF(ctx context.Context, id string) {
	if s.blobs == nil {
		return
	}
	if err := s.blobs.DeletePDF(context.WithoutCancel(ctx), id); err != nil {
		slog.Warn("failed to delete stored PDF", "document_id", id, "error", err)
	}
}

// Reingest re-runs ingestion from the stored PDF.
func (s *Service) Reingest(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("%w: raw PDF storage is not configured", models.ErrValidation)
	}

	data, err := s.blobs.GetPDF(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: loading PDF: %v", models.ErrUpstream, err)
	}

	if err := s.startIngestion(ctx, doc, data); err != nil {
		return nil, err
	}
	slog.Info("document re-ingestion started", "document_id", id, "generation", doc.Generation)
	return doc, nil
}

func (s *Service) startIngestion(ctx context.Context, doc *models.Document, data []byte) error {
	gen, err := s.store.BeginIngestion(ctx, doc.ID)
	if err != nil {
		return err
	}
	s.cache.Purge(doc.ID)

	doc.Status = models.StatusProcessing
	doc.Generation = gen
	doc.Error = ""
	s.engine.Start(doc.ID, gen, data)
	return nil
}

// Ask answers a question about a ready document and records it in the
// document's history. Repeated questions are served from the cache.
func (s *Service) Ask(ctx context.Context, id, question string) (*AskResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", models.ErrValidation)
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: document_id is required", models.ErrValidation)
	}

	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsReady() {
		return nil, fmt.Errorf("%w: document %s is %s", models.ErrNotFound, id, doc.Status)
	}

	result := &AskResult{MessageID: models.NewMessageID()}
	if answer, ok := s.cache.Get(id, doc.Generation, question); ok {
		result.Answer = answer
		result.Cached = true
	} else {
		answer, err := s.composer.Answer(ctx, *doc, question)
		if err != nil {
			return nil, err
		}
		s.cache.Put(id, doc.Generation, question, *answer)
		result.Answer = *answer
	}

	err = s.store.RecordQuestion(ctx, models.QARecord{
		ID:          result.MessageID,
		DocumentID:  id,
		Question:    strings.TrimSpace(question),
		Answer:      result.Answer.Text,
		SourcePages: result.Answer.SourcePages,
		Cached:      result.Cached,
	})
	if err != nil {
		slog.Warn("failed to record question", "document_id", id, "error", err)
	}

	slog.Debug("question answered", "document_id", id, "cached", result.Cached, "pages", result.Answer.SourcePages)
	return result, nil
}

// Status reports a document's state. Unknown and deleted documents report
// Exists false rather than an error.
func (s *Service) Status(ctx context.Context, id string) (*DocumentStatus, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return &DocumentStatus{ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	return &DocumentStatus{
		ID:           doc.ID,
		Exists:       true,
		Filename:     doc.Filename,
		IsVectorized: doc.IsReady(),
		Status:       doc.Status,
		Error:        doc.Error,
		PageCount:    doc.PageCount,
	}, nil
}

// List returns live documents, newest first.
func (s *Service) List(ctx context.Context) ([]models.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Get returns a document with its question history.
func (s *Service) Get(ctx context.Context, id string) (*DocumentDetail, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{Document: *doc, History: history}, nil
}

// PDF returns the stored PDF bytes of a live document.
func (s *Service) PDF(ctx context.Context, id string) ([]byte, *models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.blobs == nil {
		return nil, nil, fmt.Errorf("%w: raw PDF storage is not configured", models.ErrNotFound)
	}
	data, err := s.blobs.GetPDF(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: loading PDF: %v", models.ErrUpstream, err)
	}
	return data, doc, nil
}

// Delete tombstones a document, stops its ingestion and removes its
// chunks, cached answers, history and stored PDF.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.cache.Purge(id)

	// The registry is authoritative from here on; the rest is cleanup that
	// must not be cut short by the caller going away.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.engine.Cancel(cleanupCtx, id); err != nil {
		slog.Warn("ingestion did not stop in time", "document_id", id, "error", err)
	}
	if err := s.index.DeleteDocument(cleanupCtx, id); err != nil {
		slog.Warn("failed to delete chunks", "document_id", id, "error", err)
	}
	// Answers composed while the delete was in flight are unreachable; drop them too.
	s.cache.Purge(id)

	if err := s.store.DeleteQuestions(cleanupCtx, id); err != nil {
		slog.Warn("failed to delete question history", "document_id", id, "error", err)
	}
	s.discardPDF(cleanupCtx, id)

	slog.Info("document deleted", "document_id", id)
	return nil
}

// Feedback records whether an answer was helpful. Only the first rating
// per message is kept.
func (s *Service) Feedback(ctx context.Context, messageID string, helpful bool) error {
	if strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("%w: message_id is required", models.ErrValidation)
	}
	return s.store.RecordFeedback(ctx, models.Feedback{MessageID: messageID, Helpful: helpful})
}

// Health pings the registry and vector index.
func (s *Service) Health(ctx context.Context) Health {
	return Health{
		Database:    s.store.Ping(ctx) == nil,
		VectorIndex: s.index.Ping(ctx),
		Cache:       s.cache.Stats(),
	}
}

// Shutdown waits for in-flight ingestion until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.engine.Shutdown(ctx)
}
