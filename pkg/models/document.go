package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of an uploaded document.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
	StatusDeleted    Status = "deleted"
)

// Document represents an uploaded PDF and its ingestion state.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"` // Failure reason when Status is failed
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
	Generation int64     `json:"generation"` // Bumped on every ingestion start and on delete
}

// IsReady reports whether the document can answer questions.
func (d Document) IsReady() bool {
	return d.Status == StatusReady
}

// Page is the extracted text of a single PDF page.
type Page struct {
	Number int    `json:"number"` // 1-based
	Text   string `json:"text"`
}

// Chunk is a bounded span of page text stored in the vector index.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Generation int64     `json:"generation"`
	Page       int       `json:"page"`
	Sequence   int       `json:"sequence"` // 0-based position in document order
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// ScoredChunk is a chunk returned by similarity search.
type ScoredChunk struct {
	Chunk
	Score float64 `json:"score"`
}

// NewDocumentID returns a random 32-character hex identifier.
func NewDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewMessageID returns a random identifier for an answered question.
func NewMessageID() string {
	return uuid.NewString()
}

// ChunkID builds the index key for a chunk. Re-indexing the same
// (document, sequence) pair overwrites the previous entry.
func ChunkID(documentID string, sequence int) string {
	return fmt.Sprintf("%s-%05d", documentID, sequence)
}
