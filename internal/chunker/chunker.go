// Package chunker splits extracted page text into overlapping windows.
package chunker

import (
	"strings"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

// DefaultMaxChars is the default maximum number of characters per chunk.
const DefaultMaxChars = 1000

// DefaultOverlap is the default number of characters shared by consecutive chunks.
const DefaultOverlap = 200

// Chunker produces page-scoped chunks of at most maxChars runes.
type Chunker struct {
	maxChars int
	overlap  int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChars sets the chunk size in characters.
func WithMaxChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks of a page.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.overlap >= c.maxChars {
		c.overlap = c.maxChars / 4
	}
	return c
}

// Chunk splits pages into chunks. Windows never cross a page boundary,
// whitespace-only pages are skipped, and Sequence numbers run across the
// whole document starting at 0. Only Page, Sequence and Text are set.
func (c *Chunker) Chunk(pages []models.Page) []models.Chunk {
	var chunks []models.Chunk
	seq := 0

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for _, text := range c.split(page.Text) {
			chunks = append(chunks, models.Chunk{
				Page:     page.Number,
				Sequence: seq,
				Text:     text,
			})
			seq++
		}
	}
	return chunks
}

// split windows text by runes. Each window starts overlap runes before the
// previous window's end.
func (c *Chunker) split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n <= c.maxChars {
		return []string{text}
	}

	var out []string
	start := 0
	for {
		end := min(start+c.maxChars, n)
		out = append(out, string(runes[start:end]))
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return out
}
