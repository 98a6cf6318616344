package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mfenderov/pdf-rag/pkg/models"
)

const testDims = 4

func skipIfNoES(t *testing.T) {
	if os.Getenv("SKIP_ES_TESTS") == "1" {
		t.Skip("Skipping ES tests (SKIP_ES_TESTS=1)")
	}

	client, err := New(Config{
		Addresses:  []string{"http://localhost:9200"},
		Index:      "test-skip-check",
		Dimensions: testDims,
	})
	if err != nil {
		t.Skipf("Skipping ES tests: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !client.Ping(ctx) {
		t.Skip("Skipping ES tests: Elasticsearch not available")
	}
}

// fakeES records request bodies and replies with canned JSON.
func fakeES(t *testing.T, reply func(path string, body map[string]interface{}) string) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()
	var bodies []map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			if err := json.Unmarshal(data, &body); err != nil {
				t.Errorf("request body is not JSON: %s", data)
			}
		}
		bodies = append(bodies, body)

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(reply(r.URL.Path, body)))
	}))
	t.Cleanup(server.Close)
	return server, &bodies
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"missing index", Config{Dimensions: 768}, true},
		{"missing dimensions", Config{Index: "chunks"}, true},
		{"valid", Config{Index: "chunks", Dimensions: 768}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSearch_QueryShape(t *testing.T) {
	server, bodies := fakeES(t, func(path string, body map[string]interface{}) string {
		return `{"hits":{"hits":[
			{"_score":0.9,"_source":{"id":"doc-00001","document_id":"doc","generation":2,"page":2,"sequence":1,"text":"The capital of France is Paris."}},
			{"_score":0.4,"_source":{"id":"doc-00000","document_id":"doc","generation":2,"page":1,"sequence":0,"text":"Intro."}}
		]}}`
	})

	client, err := New(Config{Addresses: []string{server.URL}, Index: "chunks", Dimensions: testDims})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	hits, err := client.Search(t.Context(), "doc", 2, []float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2", len(hits))
	}
	if hits[0].Page != 2 || hits[0].Score != 0.9 {
		t.Errorf("hits[0] = %+v, want page 2 score 0.9", hits[0])
	}

	knn, ok := (*bodies)[0]["knn"].(map[string]interface{})
	if !ok {
		t.Fatalf("request has no knn clause: %v", (*bodies)[0])
	}
	if knn["k"] != float64(3) {
		t.Errorf("knn.k = %v, want 3", knn["k"])
	}

	filter, _ := json.Marshal(knn["filter"])
	for _, want := range []string{`"document_id":"doc"`, `"generation":2`} {
		if !strings.Contains(string(filter), want) {
			t.Errorf("knn filter %s should contain %s", filter, want)
		}
	}
}

func TestSearch_ZeroK(t *testing.T) {
	client, err := New(Config{Addresses: []string{"http://127.0.0.1:1"}, Index: "chunks", Dimensions: testDims})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	hits, err := client.Search(t.Context(), "doc", 1, []float32{1, 0, 0, 0}, 0)
	if err != nil || hits != nil {
		t.Errorf("Search(k=0) = %v, %v; want nil, nil", hits, err)
	}
}

func TestUpsertChunk_DimensionMismatch(t *testing.T) {
	client, err := New(Config{Addresses: []string{"http://127.0.0.1:1"}, Index: "chunks", Dimensions: testDims})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = client.UpsertChunk(t.Context(), models.Chunk{ID: "doc-00000", Embedding: []float32{1, 2}})
	if err == nil {
		t.Error("UpsertChunk() expected error for wrong dimensions")
	}
}

func TestDeleteDocument_TermQuery(t *testing.T) {
	server, bodies := fakeES(t, func(path string, body map[string]interface{}) string {
		if !strings.HasSuffix(path, "/_delete_by_query") {
			t.Errorf("unexpected path %s", path)
		}
		return `{"deleted":3}`
	})

	client, err := New(Config{Addresses: []string{server.URL}, Index: "chunks", Dimensions: testDims})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := client.DeleteDocument(t.Context(), "doc-1"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	query, _ := json.Marshal((*bodies)[0])
	if !strings.Contains(string(query), `"document_id":"doc-1"`) {
		t.Errorf("delete query = %s, want term on document_id", query)
	}
}

func TestClient_Connect(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses:  []string{"http://localhost:9200"},
		Index:      "pdf-rag-test",
		Dimensions: testDims,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if !client.Ping(t.Context()) {
		t.Error("Ping() should return true for running ES")
	}
}

func TestClient_UpsertSearchDelete(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses:  []string{"http://localhost:9200"},
		Index:      "pdf-rag-test-chunks",
		Dimensions: testDims,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := t.Context()
	client.DeleteIndex(ctx)
	defer client.DeleteIndex(context.Background())

	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() error = %v", err)
	}
	// Second call is a no-op.
	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() second call error = %v", err)
	}

	chunks := []models.Chunk{
		{DocumentID: "doc-a", Generation: 1, Page: 1, Sequence: 0, Text: "geography", Embedding: []float32{0, 1, 0, 0}},
		{DocumentID: "doc-a", Generation: 1, Page: 2, Sequence: 1, Text: "Paris", Embedding: []float32{1, 0, 0, 0}},
		{DocumentID: "doc-a", Generation: 0, Page: 2, Sequence: 1, Text: "stale", Embedding: []float32{1, 0, 0, 0}},
		{DocumentID: "doc-b", Generation: 1, Page: 1, Sequence: 0, Text: "other", Embedding: []float32{1, 0, 0, 0}},
	}
	for i, ch := range chunks {
		ch.ID = models.ChunkID(ch.DocumentID, ch.Sequence)
		if ch.Generation == 0 {
			ch.ID += "-old"
		}
		if err := client.UpsertChunk(ctx, ch); err != nil {
			t.Fatalf("UpsertChunk(%d) error = %v", i, err)
		}
	}
	if err := client.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	hits, err := client.Search(ctx, "doc-a", 1, []float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2 (document and generation scoped)", len(hits))
	}
	if hits[0].Text != "Paris" {
		t.Errorf("top hit = %q, want %q", hits[0].Text, "Paris")
	}
	if hits[0].Embedding != nil {
		t.Error("Search() should not return embeddings")
	}

	if err := client.DeleteDocument(ctx, "doc-a"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}

	n, err := client.Count(ctx, "doc-a")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() after delete = %d, want 0", n)
	}

	n, err = client.Count(ctx, "doc-b")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count(doc-b) = %d, want 1", n)
	}
}
