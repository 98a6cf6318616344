// Package memory is an in-process vector index using brute-force cosine
// similarity. It suits tests and single-node deployments without
// Elasticsearch; contents do not survive a restart.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

// Store keeps chunks grouped by document and keyed by chunk ID.
type Store struct {
	mu        sync.RWMutex
	dimension int // 0 accepts any size
	docs      map[string]map[string]models.Chunk
}

// New creates an empty store. dimension 0 disables the size check.
func New(dimension int) *Store {
	return &Store{
		dimension: dimension,
		docs:      make(map[string]map[string]models.Chunk),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) bool { return true }

// UpsertChunk stores a chunk, replacing any chunk with the same ID.
func (s *Store) UpsertChunk(ctx context.Context, chunk models.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.dimension > 0 && len(chunk.Embedding) != s.dimension {
		return fmt.Errorf("chunk %s has %d dimensions, store expects %d", chunk.ID, len(chunk.Embedding), s.dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, ok := s.docs[chunk.DocumentID]
	if !ok {
		chunks = make(map[string]models.Chunk)
		s.docs[chunk.DocumentID] = chunks
	}
	chunk.Embedding = append([]float32(nil), chunk.Embedding...)
	chunks[chunk.ID] = chunk
	return nil
}

// DeleteDocument drops every chunk of a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, documentID)
	return nil
}

// Refresh is a no-op; writes are visible immediately.
func (s *Store) Refresh(ctx context.Context) error { return ctx.Err() }

// Count returns the number of chunks stored for a document.
func (s *Store) Count(ctx context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs[documentID]), nil
}

// Search returns the k chunks of one document generation most similar to vector,
// ordered by score then sequence.
func (s *Store) Search(ctx context.Context, documentID string, generation int64, vector []float32, k int) ([]models.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	var results []models.ScoredChunk
	for _, chunk := range s.docs[documentID] {
		if chunk.Generation != generation {
			continue
		}
		hit := chunk
		hit.Embedding = nil
		results = append(results, models.ScoredChunk{Chunk: hit, Score: cosine(chunk.Embedding, vector)})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Sequence < results[j].Sequence
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
