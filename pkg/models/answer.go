package models

import "time"

// Snippet is a retrieved chunk excerpt shown alongside an answer.
type Snippet struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Answer is a generated response grounded in document chunks.
type Answer struct {
	Text        string    `json:"answer"`
	SourcePages []int     `json:"source_pages"`
	Snippets    []Snippet `json:"context_snippets"`
	CreatedAt   time.Time `json:"created_at"`
}

// QARecord is one answered question in a document's history.
type QARecord struct {
	ID          string    `json:"message_id"`
	DocumentID  string    `json:"document_id"`
	Question    string    `json:"question"`
	Answer      string    `json:"answer"`
	SourcePages []int     `json:"source_pages"`
	Cached      bool      `json:"cached"`
	AskedAt     time.Time `json:"asked_at"`
}

// Feedback is a binary helpfulness rating for an answer.
type Feedback struct {
	MessageID string    `json:"message_id"`
	Helpful   bool      `json:"is_helpful"`
	CreatedAt time.Time `json:"created_at"`
}
