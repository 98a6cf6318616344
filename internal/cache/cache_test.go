package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What is the capital?", "what is the capital?"},
		{"  What   is\tthe\ncapital? ", "what is the capital?"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCache_GetPut(t *testing.T) {
	c := New(10)
	answer := models.Answer{Text: "Paris", SourcePages: []int{2}}

	if _, ok := c.Get("doc1", 1, "capital?"); ok {
		t.Fatal("Get() on empty cache should miss")
	}

	c.Put("doc1", 1, "What is the capital?", answer)

	got, ok := c.Get("doc1", 1, "  what is THE capital? ")
	if !ok {
		t.Fatal("Get() with equivalent question should hit")
	}
	if got.Text != "Paris" {
		t.Errorf("Get() = %q, want %q", got.Text, "Paris")
	}

	if _, ok := c.Get("doc1", 2, "What is the capital?"); ok {
		t.Error("Get() for another generation should miss")
	}
	if _, ok := c.Get("doc2", 1, "What is the capital?"); ok {
		t.Error("Get() for another document should miss")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 3 || stats.Entries != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 3 misses, 1 entry", stats)
	}
}

func TestCache_Purge(t *testing.T) {
	c := New(10)
	c.Put("doc1", 1, "q1", models.Answer{Text: "a1"})
	c.Put("doc1", 2, "q2", models.Answer{Text: "a2"})
	c.Put("doc2", 1, "q1", models.Answer{Text: "b1"})

	c.Purge("doc1")

	if _, ok := c.Get("doc1", 1, "q1"); ok {
		t.Error("Get() after Purge should miss")
	}
	if _, ok := c.Get("doc1", 2, "q2"); ok {
		t.Error("Get() after Purge should miss for every generation")
	}
	if _, ok := c.Get("doc2", 1, "q1"); !ok {
		t.Error("Purge should not touch other documents")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	c.Purge("unknown")
}

func TestCache_EvictionKeepsIndexConsistent(t *testing.T) {
	c := New(2)
	c.Put("doc1", 1, "q1", models.Answer{Text: "a1"})
	c.Put("doc1", 1, "q2", models.Answer{Text: "a2"})
	c.Put("doc2", 1, "q1", models.Answer{Text: "b1"})

	if _, ok := c.Get("doc1", 1, "q1"); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	c.Purge("doc1")
	if c.Len() != 1 {
		t.Errorf("Len() after Purge = %d, want 1", c.Len())
	}
	if len(c.byDoc["doc1"]) != 0 {
		t.Errorf("document index still holds %d keys for purged document", len(c.byDoc["doc1"]))
	}
}

func TestCache_DefaultSize(t *testing.T) {
	c := New(0)
	for i := range DefaultMaxEntries + 10 {
		c.Put("doc", 1, fmt.Sprintf("q%d", i), models.Answer{})
	}
	if c.Len() != DefaultMaxEntries {
		t.Errorf("Len() = %d, want %d", c.Len(), DefaultMaxEntries)
	}
}

func TestCache_Concurrent(t *testing.T) {
	c := New(100)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			doc := fmt.Sprintf("doc%d", n%3)
			for j := range 50 {
				q := fmt.Sprintf("q%d", j)
				c.Put(doc, 1, q, models.Answer{Text: q})
				c.Get(doc, 1, q)
				if j%10 == 0 {
					c.Purge(doc)
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d, exceeds capacity", c.Len())
	}
}
