package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNewDocumentID(t *testing.T) {
	id := NewDocumentID()

	if len(id) != 32 {
		t.Errorf("NewDocumentID() length = %d, want 32", len(id))
	}
	if strings.Contains(id, "-") {
		t.Errorf("NewDocumentID() = %q, should not contain dashes", id)
	}
	if other := NewDocumentID(); other == id {
		t.Error("NewDocumentID() should return distinct identifiers")
	}
}

func TestChunkID(t *testing.T) {
	tests := []struct {
		docID    string
		sequence int
		want     string
	}{
		{"abc", 0, "abc-00000"},
		{"abc", 42, "abc-00042"},
		{"doc", 123456, "doc-123456"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ChunkID(tt.docID, tt.sequence); got != tt.want {
				t.Errorf("ChunkID(%q, %d) = %q, want %q", tt.docID, tt.sequence, got, tt.want)
			}
		})
	}
}

func TestDocument_IsReady(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusUploaded, false},
		{StatusProcessing, false},
		{StatusReady, true},
		{StatusFailed, false},
		{StatusDeleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := (Document{Status: tt.status}).IsReady(); got != tt.want {
				t.Errorf("IsReady() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnswer_JSONFieldNames(t *testing.T) {
	answer := Answer{
		Text:        "Paris",
		SourcePages: []int{2},
		Snippets:    []Snippet{{Page: 2, Text: "The capital of France is Paris."}},
		CreatedAt:   time.Date(2025, 12, 4, 10, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(answer)
	if err != nil {
		t.Fatalf("failed to marshal Answer: %v", err)
	}

	jsonStr := string(data)
	for _, field := range []string{`"answer"`, `"source_pages"`, `"context_snippets"`} {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("JSON should contain %s field, got %s", field, jsonStr)
		}
	}
}

func TestChunk_EmbeddingOmittedWhenEmpty(t *testing.T) {
	chunk := Chunk{ID: "doc-00000", DocumentID: "doc", Page: 1, Text: "hello"}

	data, err := json.Marshal(chunk)
	if err != nil {
		t.Fatalf("failed to marshal Chunk: %v", err)
	}

	if strings.Contains(string(data), "embedding") {
		t.Errorf("JSON should omit empty embedding, got %s", data)
	}
}
