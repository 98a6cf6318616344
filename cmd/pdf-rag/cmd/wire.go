package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mfenderov/pdf-rag/internal/cache"
	"github.com/mfenderov/pdf-rag/internal/chunker"
	"github.com/mfenderov/pdf-rag/internal/config"
	"github.com/mfenderov/pdf-rag/internal/elasticsearch"
	"github.com/mfenderov/pdf-rag/internal/embeddings"
	"github.com/mfenderov/pdf-rag/internal/events"
	"github.com/mfenderov/pdf-rag/internal/extractor"
	"github.com/mfenderov/pdf-rag/internal/ingestion"
	"github.com/mfenderov/pdf-rag/internal/llm"
	"github.com/mfenderov/pdf-rag/internal/rag"
	"github.com/mfenderov/pdf-rag/internal/service"
	"github.com/mfenderov/pdf-rag/internal/storage"
	"github.com/mfenderov/pdf-rag/internal/store"
	"github.com/mfenderov/pdf-rag/internal/vectorstore/memory"
	"github.com/mfenderov/pdf-rag/internal/vertex"
)

// chunkIndex is what every vector index backend provides.
type chunkIndex interface {
	ingestion.Index
	rag.Searcher
	service.Index
}

// app is a fully wired service plus the resources it holds open.
type app struct {
	svc     *service.Service
	closers []func() error
}

// Close releases the registry and client connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newApp builds the service from configuration. onComplete, if set,
// receives every finished ingestion.
func newApp(ctx context.Context, cfg config.Config, onComplete func(events.IngestionCompleteEvent)) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	registry, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	a.closers = append(a.closers, registry.Close)

	embedClient, err := embeddings.New(embeddings.Config{
		SocketPath:        cfg.Embeddings.SocketPath,
		BaseURL:           cfg.Embeddings.BaseURL,
		Model:             cfg.Embeddings.Model,
		RequestsPerSecond: cfg.Embeddings.RequestsPerSecond,
		Burst:             cfg.Embeddings.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	dims := cfg.Embeddings.Dimensions
	if dims == 0 {
		dims = embeddings.Dimensions(cfg.Embeddings.Model)
	}

	index, err := newIndex(ctx, cfg, dims)
	if err != nil {
		return nil, err
	}

	generator, closeGenerator, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeGenerator != nil {
		a.closers = append(a.closers, closeGenerator)
	}

	ext := extractor.New()
	engine := ingestion.New(
		ingestion.Config{
			Concurrency: cfg.Ingestion.Concurrency,
			Timeout:     cfg.Ingestion.Timeout,
			OnComplete:  onComplete,
		},
		ext,
		chunker.New(
			chunker.WithMaxChars(cfg.Chunker.MaxChars),
			chunker.WithOverlap(cfg.Chunker.Overlap),
		),
		embedClient,
		index,
		registry,
	)

	deps := service.Deps{
		Store:     registry,
		Index:     index,
		Engine:    engine,
		Composer:  rag.New(embedClient, generator, index, cfg.Retrieval.TopK),
		Cache:     cache.New(cfg.Cache.MaxEntries),
		Extractor: ext,
	}

	if cfg.Storage.Endpoint != "" {
		blobs, err := storage.New(storage.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UseSSL:          cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		if err := blobs.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}
		deps.Blobs = blobs
		slog.Info("raw PDF storage enabled", "bucket", blobs.Bucket())
	}

	a.svc = service.New(deps, service.Options{MaxUploadBytes: cfg.Server.MaxUploadBytes})
	ok = true
	return a, nil
}

func newIndex(ctx context.Context, cfg config.Config, dims int) (chunkIndex, error) {
	if cfg.VectorStore.Type == "memory" {
		slog.Info("using in-memory vector store", "dimensions", dims)
		return memory.New(dims), nil
	}

	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses:  cfg.Elasticsearch.Addresses,
		Index:      cfg.Elasticsearch.Index,
		Username:   cfg.Elasticsearch.Username,
		Password:   cfg.Elasticsearch.Password,
		Dimensions: dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	if err := esClient.CreateIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return esClient, nil
}

func newGenerator(ctx context.Context, cfg config.Config) (rag.Generator, func() error, error) {
	if cfg.LLM.Provider == "vertex" {
		client, err := vertex.New(ctx, vertex.Config{
			ProjectID:       cfg.Vertex.ProjectID,
			Location:        cfg.Vertex.Location,
			Model:           cfg.Vertex.Model,
			CredentialsFile: cfg.Vertex.CredentialsFile,
			Temperature:     cfg.Vertex.Temperature,
			MaxOutputTokens: int32(cfg.LLM.MaxTokens),
			SystemPrompt:    cfg.LLM.SystemPrompt,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		slog.Info("answer generation via vertex", "model", cfg.Vertex.Model)
		return client, client.Close, nil
	}

	client, err := llm.New(llm.Config{
		SocketPath:   cfg.LLM.SocketPath,
		BaseURL:      cfg.LLM.BaseURL,
		APIKey:       cfg.LLM.APIKey,
		Model:        cfg.LLM.Model,
		MaxTokens:    cfg.LLM.MaxTokens,
		SystemPrompt: cfg.LLM.SystemPrompt,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	slog.Info("answer generation via model runner", "model", cfg.LLM.Model)
	return client, nil, nil
}
