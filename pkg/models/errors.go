package models

import "errors"

// Error taxonomy shared by every layer. Adapters wrap these with %w and
// the HTTP/MCP surfaces classify with errors.Is.
var (
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation error")

	// ErrExtraction indicates the uploaded file is not a readable PDF
	// or contains no extractable text.
	ErrExtraction = errors.New("extraction error")

	// ErrNotFound indicates an unknown, deleted, or not yet ready document.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a write that would violate a uniqueness rule.
	ErrConflict = errors.New("conflict")

	// ErrUpstream indicates a failure in an external dependency
	// (embedding, generation, vector index).
	ErrUpstream = errors.New("upstream error")
)
