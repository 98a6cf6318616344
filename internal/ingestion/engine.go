package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mfenderov/pdf-rag/internal/chunker"
	"github.com/mfenderov/pdf-rag/internal/events"
	"github.com/mfenderov/pdf-rag/pkg/models"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of chunks embedded in parallel.
const DefaultConcurrency = 4

// DefaultTimeout bounds a single ingestion run.
const DefaultTimeout = 10 * time.Minute

// TimeoutReason is recorded on documents whose ingestion ran out of time.
const TimeoutReason = "ingestion timed out"

// Extractor turns PDF bytes into per-page text.
type Extractor interface {
	Extract(data []byte) ([]models.Page, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the vector index chunks are written to.
type Index interface {
	UpsertChunk(ctx context.Context, chunk models.Chunk) error
	DeleteDocument(ctx context.Context, documentID string) error
	Refresh(ctx context.Context) error
	Count(ctx context.Context, documentID string) (int, error)
}

// Registry records ingestion outcomes. Both calls apply only while the
// document is processing the given generation.
type Registry interface {
	MarkReady(ctx context.Context, id string, generation int64, pages, chunks int) (bool, error)
	MarkFailed(ctx context.Context, id string, generation int64, reason string) (bool, error)
}

// Config holds ingestion engine configuration.
type Config struct {
	Concurrency int
	Timeout     time.Duration
	OnComplete  func(events.IngestionCompleteEvent) // optional
}

// Result holds ingestion execution results.
type Result struct {
	DocumentID string
	Generation int64
	Status     models.Status // ready or failed; empty when stale
	Pages      int
	Chunks     int
	Duration   time.Duration
	Error      string
	Stale      bool
}

type job struct {
	generation int64
	cancel     context.CancelFunc
	done       chan struct{}
}

// Engine extracts, chunks, embeds and indexes uploaded PDFs. Runs for the
// same document are serialized: starting a new generation cancels the
// previous run and waits for it before touching the index.
type Engine struct {
	config    Config
	extractor Extractor
	chunker   *chunker.Chunker
	embedder  Embedder
	index     Index
	registry  Registry

	baseCtx context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	jobs   map[string]*job
	latest map[string]int64 // newest generation started per document
	wg     sync.WaitGroup
}

// New creates a new ingestion engine.
func New(
	config Config,
	extractor Extractor,
	chunker *chunker.Chunker,
	embedder Embedder,
	index Index,
	registry Registry,
) *Engine {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Engine{
		config:    config,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		registry:  registry,
		baseCtx:   ctx,
		stop:      stop,
		jobs:      make(map[string]*job),
		latest:    make(map[string]int64),
	}
}

// Start ingests a document generation in the background. Any earlier run
// for the same document is cancelled. A generation older than one already
// started is ignored and reported false.
func (e *Engine) Start(documentID string, generation int64, data []byte) bool {
	e.mu.Lock()
	if generation < e.latest[documentID] {
		e.mu.Unlock()
		slog.Info("ignoring outdated ingestion", "document_id", documentID,
			"generation", generation, "latest", e.latest[documentID])
		return false
	}
	e.latest[documentID] = generation
	prev := e.jobs[documentID]
	if prev != nil {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(e.baseCtx)
	j := &job{generation: generation, cancel: cancel, done: make(chan struct{})}
	e.jobs[documentID] = j
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		defer close(j.done)
		defer cancel()

		if prev != nil {
			<-prev.done
		}
		e.Ingest(ctx, documentID, generation, data)

		e.mu.Lock()
		if e.jobs[documentID] == j {
			delete(e.jobs, documentID)
		}
		e.mu.Unlock()
	}()
	return true
}

// Cancel stops the document's in-flight run, if any, and waits for it to
// exit.
func (e *Engine) Cancel(ctx context.Context, documentID string) error {
	e.mu.Lock()
	j := e.jobs[documentID]
	e.mu.Unlock()
	if j == nil {
		return nil
	}

	slog.Debug("cancelling ingestion", "document_id", documentID, "generation", j.generation)
	j.cancel()
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every started run has exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Shutdown waits for in-flight runs until ctx is done, then cancels them.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.Warn("cancelling in-flight ingestion")
		e.stop()
		<-done
		return ctx.Err()
	}
}

// Ingest runs one ingestion synchronously and records its outcome. A run
// cancelled by its caller is stale and writes nothing to the registry.
func (e *Engine) Ingest(ctx context.Context, documentID string, generation int64, data []byte) (*Result, error) {
	start := time.Now()
	result := &Result{DocumentID: documentID, Generation: generation}

	slog.Info("starting ingestion", "document_id", documentID, "generation", generation)

	runCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	err := e.process(runCtx, result, data)
	result.Duration = time.Since(start)

	// Registry writes must land even though runCtx may be done.
	writeCtx := context.WithoutCancel(ctx)

	switch {
	case err == nil:
		applied, werr := e.registry.MarkReady(writeCtx, documentID, generation, result.Pages, result.Chunks)
		if werr != nil {
			err = werr
			break
		}
		result.Status = models.StatusReady
		result.Stale = !applied

	case ctx.Err() != nil && runCtx.Err() == context.Canceled:
		result.Stale = true

	default:
		reason := err.Error()
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			reason = TimeoutReason
		}
		result.Status = models.StatusFailed
		result.Error = reason

		applied, werr := e.registry.MarkFailed(writeCtx, documentID, generation, reason)
		if werr != nil {
			slog.Error("failed to record ingestion failure", "document_id", documentID, "error", werr)
		}
		result.Stale = !applied
		if applied {
			if derr := e.index.DeleteDocument(writeCtx, documentID); derr != nil {
				slog.Warn("failed to remove partial chunks", "document_id", documentID, "error", derr)
			}
		}
	}

	if result.Stale {
		result.Status = ""
		slog.Info("ingestion superseded", "document_id", documentID, "generation", generation)
	} else {
		slog.Info("ingestion complete",
			"document_id", documentID,
			"generation", generation,
			"status", result.Status,
			"pages", result.Pages,
			"chunks", result.Chunks,
			"duration", result.Duration,
			"error", result.Error)
	}

	if e.config.OnComplete != nil {
		e.config.OnComplete(events.IngestionCompleteEvent{
			DocumentID: documentID,
			Generation: generation,
			Status:     string(result.Status),
			Pages:      result.Pages,
			Chunks:     result.Chunks,
			Duration:   result.Duration,
			Error:      result.Error,
			Stale:      result.Stale,
		})
	}

	return result, err
}

// process rebuilds the document's chunks in the index.
func (e *Engine) process(ctx context.Context, result *Result, data []byte) error {
	documentID, generation := result.DocumentID, result.Generation

	// Chunks from earlier generations are never served, but clearing them
	// keeps the index at one generation per document.
	if err := e.index.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("%w: clearing previous chunks: %v", models.ErrUpstream, err)
	}

	pages, err := e.extractor.Extract(data)
	if err != nil {
		return err
	}
	result.Pages = len(pages)

	chunks := e.chunker.Chunk(pages)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no extractable text", models.ErrExtraction)
	}
	slog.Debug("document chunked", "document_id", documentID, "pages", len(pages), "chunks", len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)
	for _, chunk := range chunks {
		chunk.ID = models.ChunkID(documentID, chunk.Sequence)
		chunk.DocumentID = documentID
		chunk.Generation = generation

		g.Go(func() error {
			vec, err := e.embedder.Embed(gctx, chunk.Text)
			if err != nil {
				return fmt.Errorf("%w: embedding chunk %d: %v", models.ErrUpstream, chunk.Sequence, err)
			}
			chunk.Embedding = vec
			if err := e.index.UpsertChunk(gctx, chunk); err != nil {
				return fmt.Errorf("%w: indexing chunk %d: %v", models.ErrUpstream, chunk.Sequence, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := e.index.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: refreshing index: %v", models.ErrUpstream, err)
	}

	n, err := e.index.Count(ctx, documentID)
	if err != nil {
		return fmt.Errorf("%w: counting chunks: %v", models.ErrUpstream, err)
	}
	if n != len(chunks) {
		return fmt.Errorf("%w: indexed %d of %d chunks", models.ErrUpstream, n, len(chunks))
	}
	result.Chunks = len(chunks)

	return ctx.Err()
}
