package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfenderov/pdf-rag/internal/config"
	"github.com/mfenderov/pdf-rag/internal/events"
	"github.com/mfenderov/pdf-rag/internal/testutil"
)

// newModelServer fakes the OpenAI-compatible model runner endpoints.
func newModelServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 0, 0, 0}}},
		})
	})
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": answer}}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	c := config.Defaults()
	c.Database.Path = filepath.Join(t.TempDir(), "pdf-rag.db")
	c.VectorStore.Type = "memory"
	c.Embeddings.BaseURL = baseURL
	c.Embeddings.Dimensions = 4
	c.LLM.BaseURL = baseURL
	return c
}

func TestNewApp_UploadAndAsk(t *testing.T) {
	srv := newModelServer(t, "Paris (page 1)")
	ctx := t.Context()

	completed := make(chan events.IngestionCompleteEvent, 1)
	a, err := newApp(ctx, testConfig(t, srv.URL+"/v1"), func(e events.IngestionCompleteEvent) {
		completed <- e
	})
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	doc, err := a.svc.Upload(ctx, "france.pdf", testutil.BuildPDF("The capital of France is Paris."))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	select {
	case e := <-completed:
		if e.Status != "ready" {
			t.Fatalf("ingestion status = %q (%s), want ready", e.Status, e.Error)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("ingestion did not complete")
	}

	result, err := a.svc.Ask(ctx, doc.ID, "What is the capital of France?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if result.Answer.Text != "Paris (page 1)" {
		t.Errorf("Answer.Text = %q, want %q", result.Answer.Text, "Paris (page 1)")
	}
	if len(result.Answer.SourcePages) != 1 || result.Answer.SourcePages[0] != 1 {
		t.Errorf("Answer.SourcePages = %v, want [1]", result.Answer.SourcePages)
	}
}

func TestNewGenerator_SystemPrompt(t *testing.T) {
	var got []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []map[string]string `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		got = req.Messages
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	c := testConfig(t, srv.URL+"/v1")
	c.LLM.SystemPrompt = "Answer only from the document."

	gen, closeGen, err := newGenerator(t.Context(), c)
	if err != nil {
		t.Fatalf("newGenerator() error = %v", err)
	}
	if closeGen != nil {
		defer closeGen()
	}

	if _, err := gen.Complete(t.Context(), "question"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if len(got) != 2 || got[0]["role"] != "system" || got[0]["content"] != c.LLM.SystemPrompt {
		t.Errorf("messages = %v, want system prompt first", got)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name:   "unknown vector store",
			mutate: func(c *config.Config) { c.VectorStore.Type = "faiss" },
		},
		{
			name:   "no embeddings endpoint",
			mutate: func(c *config.Config) { c.Embeddings.BaseURL = "" },
		},
		{
			name:   "vertex without project",
			mutate: func(c *config.Config) { c.LLM.Provider = "vertex" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig(t, "http://127.0.0.1:1/v1")
			tt.mutate(&c)
			if _, err := newApp(t.Context(), c, nil); err == nil {
				t.Error("newApp() error = nil, want error")
			}
		})
	}
}

func TestFetchURLs(t *testing.T) {
	sources := []config.Source{
		{Name: "papers", URL: "https://example.com/papers"},
		{Name: "manuals", URL: "https://example.com/manuals"},
	}

	tests := []struct {
		name      string
		url       string
		source    string
		sources   []config.Source
		haveFiles bool
		want      []string
		wantErr   bool
	}{
		{name: "explicit url", url: "https://a.test/x", sources: sources, want: []string{"https://a.test/x"}},
		{name: "files only", haveFiles: true, sources: sources, want: nil},
		{name: "all sources", sources: sources, want: []string{"https://example.com/papers", "https://example.com/manuals"}},
		{name: "named source", source: "manuals", sources: sources, want: []string{"https://example.com/manuals"}},
		{name: "named source with files", source: "papers", haveFiles: true, sources: sources, want: []string{"https://example.com/papers"}},
		{name: "unknown source", source: "blog", sources: sources, wantErr: true},
		{name: "nothing to do", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingestURL, ingestSource = tt.url, tt.source
			t.Cleanup(func() { ingestURL, ingestSource = "", "" })

			got, err := fetchURLs(config.Config{Sources: tt.sources}, tt.haveFiles)
			if (err != nil) != tt.wantErr {
				t.Fatalf("fetchURLs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("fetchURLs() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("fetchURLs()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo wörld", 5); got != "héllo..." {
		t.Errorf("truncate() = %q, want %q", got, "héllo...")
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q, want %q", got, "short")
	}
}
