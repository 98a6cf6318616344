package testutil

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

// HashEmbedder produces bag-of-words vectors by hashing lowercase tokens
// into a fixed number of buckets. Texts sharing words score high under
// cosine similarity, which is enough to make retrieval deterministic.
type HashEmbedder struct {
	Dims  int
	Err   error         // returned by Embed when set
	Gate  chan struct{} // when non-nil, Embed blocks until it is closed
	calls atomic.Int64
}

// Embed implements the embedder interface.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h.calls.Add(1)

	if h.Gate != nil {
		select {
		case <-h.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if h.Err != nil {
		return nil, h.Err
	}

	dims := h.Dims
	if dims <= 0 {
		dims = 64
	}
	vec := make([]float32, dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		hash := fnv.New32a()
		hash.Write([]byte(w))
		vec[hash.Sum32()%uint32(dims)]++
	}
	return vec, nil
}

// Calls returns how many times Embed was invoked.
func (h *HashEmbedder) Calls() int {
	return int(h.calls.Load())
}

var excerptPattern = regexp.MustCompile(`(?m)^\[page (\d+)\] (.*)$`)

// EchoGenerator answers with the first context excerpt found in the prompt.
type EchoGenerator struct {
	Err   error
	calls atomic.Int64
}

// Complete implements the generator interface.
func (g *EchoGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	if g.Err != nil {
		return "", g.Err
	}
	if m := excerptPattern.FindStringSubmatch(prompt); m != nil {
		return fmt.Sprintf("%s (page %s)", m[2], m[1]), nil
	}
	return "I could not find that in the document.", nil
}

// Calls returns how many times Complete was invoked.
func (g *EchoGenerator) Calls() int {
	return int(g.calls.Load())
}

// MemoryBlobs is an in-memory raw PDF store.
type MemoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	PutErr  error
}

// NewMemoryBlobs creates an empty store.
func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{objects: make(map[string][]byte)}
}

func (m *MemoryBlobs) PutPDF(ctx context.Context, documentID string, data []byte) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[documentID] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryBlobs) GetPDF(ctx context.Context, documentID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: no stored PDF for %s", models.ErrNotFound, documentID)
	}
	return data, nil
}

func (m *MemoryBlobs) DeletePDF(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, documentID)
	return nil
}

// Has reports whether a PDF is stored for documentID.
func (m *MemoryBlobs) Has(documentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[documentID]
	return ok
}

// ErrBackendDown is a canned upstream failure for tests.
var ErrBackendDown = errors.New("backend unavailable")
