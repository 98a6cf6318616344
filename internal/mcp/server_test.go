package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mfenderov/pdf-rag/internal/service"
	"github.com/mfenderov/pdf-rag/pkg/models"
)

type stubService struct {
	err error
}

func (s *stubService) Ask(ctx context.Context, id, question string) (*service.AskResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.AskResult{
		MessageID: "m1",
		Answer: models.Answer{
			Text:        "Paris (page 2)",
			SourcePages: []int{2},
			Snippets:    []models.Snippet{{Page: 2, Text: "The capital of France is Paris."}},
		},
	}, nil
}

func (s *stubService) List(ctx context.Context) ([]models.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []models.Document{{ID: "doc1", Filename: "a.pdf", Status: models.StatusReady}}, nil
}

func (s *stubService) Status(ctx context.Context, id string) (*service.DocumentStatus, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.DocumentStatus{ID: id, Exists: true, IsVectorized: true}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("tool result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	return text.Text
}

func TestServer_Creation(t *testing.T) {
	s := NewServer(Config{Name: "pdf-rag", Version: "1.0.0"}, &stubService{})
	if s.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
}

func TestServer_AskTool(t *testing.T) {
	s := NewServer(Config{Name: "pdf-rag", Version: "1.0.0"}, &stubService{})

	res, err := s.askHandler(t.Context(), callRequest("ask_question", map[string]any{
		"document_id": "doc1",
		"question":    "What is the capital of France?",
	}))
	if err != nil {
		t.Fatalf("askHandler() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("askHandler() returned tool error: %s", resultText(t, res))
	}

	var body struct {
		Answer      string `json:"answer"`
		SourcePages []int  `json:"source_pages"`
		MessageID   string `json:"message_id"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &body); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if body.Answer != "Paris (page 2)" || len(body.SourcePages) != 1 || body.MessageID != "m1" {
		t.Errorf("result = %+v", body)
	}
}

func TestServer_AskTool_Errors(t *testing.T) {
	tests := []struct {
		name     string
		svc      *stubService
		args     map[string]any
		wantText string
	}{
		{
			name:     "missing document id",
			svc:      &stubService{},
			args:     map[string]any{"question": "q"},
			wantText: "document_id",
		},
		{
			name:     "missing question",
			svc:      &stubService{},
			args:     map[string]any{"document_id": "doc1"},
			wantText: "question",
		},
		{
			name:     "document not ready",
			svc:      &stubService{err: fmt.Errorf("%w: document doc1 is processing", models.ErrNotFound)},
			args:     map[string]any{"document_id": "doc1", "question": "q"},
			wantText: "processing",
		},
		{
			name:     "upstream failure",
			svc:      &stubService{err: fmt.Errorf("%w: generating answer", models.ErrUpstream)},
			args:     map[string]any{"document_id": "doc1", "question": "q"},
			wantText: "ask question failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Config{Name: "pdf-rag", Version: "1.0.0"}, tt.svc)
			res, err := s.askHandler(t.Context(), callRequest("ask_question", tt.args))
			if err != nil {
				t.Fatalf("askHandler() error = %v", err)
			}
			if !res.IsError {
				t.Fatal("askHandler() should return a tool error")
			}
			if text := resultText(t, res); !strings.Contains(text, tt.wantText) {
				t.Errorf("error text = %q, want it to contain %q", text, tt.wantText)
			}
		})
	}
}

func TestServer_ListAndStatusTools(t *testing.T) {
	s := NewServer(Config{Name: "pdf-rag", Version: "1.0.0"}, &stubService{})

	res, err := s.listHandler(t.Context(), callRequest("list_documents", nil))
	if err != nil || res.IsError {
		t.Fatalf("listHandler() = %v, %v", res, err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"filename":"a.pdf"`) {
		t.Errorf("list result = %s", text)
	}

	res, err = s.statusHandler(t.Context(), callRequest("document_status", map[string]any{"document_id": "doc1"}))
	if err != nil || res.IsError {
		t.Fatalf("statusHandler() = %v, %v", res, err)
	}
	if text := resultText(t, res); !strings.Contains(text, `"is_vectorized":true`) {
		t.Errorf("status result = %s", text)
	}

	res, _ = s.statusHandler(t.Context(), callRequest("document_status", map[string]any{}))
	if !res.IsError {
		t.Error("statusHandler() without document_id should return a tool error")
	}
}
