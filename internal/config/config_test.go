package config

import (
	"strings"
	"testing"
)

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults().Validate() error = %v", err)
	}
	if cfg.Chunker.Overlap >= cfg.Chunker.MaxChars {
		t.Errorf("default overlap %d should be below max chars %d", cfg.Chunker.Overlap, cfg.Chunker.MaxChars)
	}
	if cfg.Storage.Endpoint != "" {
		t.Error("raw PDF storage should be disabled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory store", func(c *Config) { c.VectorStore.Type = "memory"; c.Elasticsearch.Addresses = nil }, ""},
		{"unknown store", func(c *Config) { c.VectorStore.Type = "qdrant" }, "vector_store.type"},
		{"es without addresses", func(c *Config) { c.Elasticsearch.Addresses = nil }, "elasticsearch.addresses"},
		{"vertex without project", func(c *Config) { c.LLM.Provider = "vertex" }, "vertex.project_id"},
		{"vertex with project", func(c *Config) { c.LLM.Provider = "vertex"; c.Vertex.ProjectID = "p" }, ""},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }, "llm.provider"},
		{"zero chunk size", func(c *Config) { c.Chunker.MaxChars = 0 }, "chunker.max_chars"},
		{"negative overlap", func(c *Config) { c.Chunker.Overlap = -1 }, "chunker.overlap"},
		{"no database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
