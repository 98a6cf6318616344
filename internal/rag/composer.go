// Package rag answers questions about one document from its indexed chunks.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// NoContentAnswer is returned when retrieval finds nothing to ground an answer on.
const NoContentAnswer = "No relevant content was found in this document to answer the question."

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator completes a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Searcher returns the chunks of one document generation closest to a vector.
type Searcher interface {
	Search(ctx context.Context, documentID string, generation int64, vector []float32, k int) ([]models.ScoredChunk, error)
}

// Composer retrieves context and asks the generator for a cited answer.
type Composer struct {
	embedder  Embedder
	generator Generator
	searcher  Searcher
	topK      int
}

// New creates a composer. topK <= 0 selects DefaultTopK.
func New(embedder Embedder, generator Generator, searcher Searcher, topK int) *Composer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Composer{
		embedder:  embedder,
		generator: generator,
		searcher:  searcher,
		topK:      topK,
	}
}

// Answer answers question from the ready document's current generation.
func (c *Composer) Answer(ctx context.Context, doc models.Document, question string) (*models.Answer, error) {
	if !doc.IsReady() {
		return nil, fmt.Errorf("%w: document %s is %s", models.ErrNotFound, doc.ID, doc.Status)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", models.ErrValidation)
	}

	vec, err := c.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding question: %v", models.ErrUpstream, err)
	}

	hits, err := c.searcher.Search(ctx, doc.ID, doc.Generation, vec, c.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: searching chunks: %v", models.ErrUpstream, err)
	}
	hits = rank(hits, c.topK)

	if len(hits) == 0 {
		// A ready document with no chunks is inconsistent; never ask the
		// generator without context.
		slog.Warn("no chunks retrieved", "document_id", doc.ID, "generation", doc.Generation)
		return &models.Answer{
			Text:        NoContentAnswer,
			SourcePages: []int{},
			Snippets:    []models.Snippet{},
			CreatedAt:   time.Now().UTC(),
		}, nil
	}

	text, err := c.generator.Complete(ctx, BuildPrompt(question, hits))
	if err != nil {
		return nil, fmt.Errorf("%w: generating answer: %v", models.ErrUpstream, err)
	}

	slog.Debug("answer composed", "document_id", doc.ID, "chunks", len(hits))

	return &models.Answer{
		Text:        strings.TrimSpace(text),
		SourcePages: sourcePages(hits),
		Snippets:    snippets(hits),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// rank orders hits by score, breaking ties by document order, and keeps k.
func rank(hits []models.ScoredChunk, k int) []models.ScoredChunk {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Sequence < hits[j].Sequence
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func sourcePages(hits []models.ScoredChunk) []int {
	seen := make(map[int]bool, len(hits))
	pages := make([]int, 0, len(hits))
	for _, h := range hits {
		if !seen[h.Page] {
			seen[h.Page] = true
			pages = append(pages, h.Page)
		}
	}
	sort.Ints(pages)
	return pages
}

func snippets(hits []models.ScoredChunk) []models.Snippet {
	out := make([]models.Snippet, len(hits))
	for i, h := range hits {
		out[i] = models.Snippet{Page: h.Page, Text: h.Text}
	}
	return out
}
