package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/pdf-rag/internal/service"
	"github.com/mfenderov/pdf-rag/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Service is the subset of the document service exposed as tools.
type Service interface {
	Ask(ctx context.Context, id, question string) (*service.AskResult, error)
	List(ctx context.Context) ([]models.Document, error)
	Status(ctx context.Context, id string) (*service.DocumentStatus, error)
}

// Server exposes document Q&A as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	svc       Service
}

// NewServer creates a new MCP server with the document tools registered.
func NewServer(config Config, svc Service) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		svc:       svc,
	}

	askTool := mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a question about one uploaded PDF. Returns the answer, the cited page numbers and the supporting excerpts."),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("ID of a document whose status is ready"),
		),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question to answer from the document"),
		),
	)
	mcpServer.AddTool(askTool, s.askHandler)

	listTool := mcp.NewTool("list_documents",
		mcp.WithDescription("List uploaded PDFs, newest first, with their processing status"),
	)
	mcpServer.AddTool(listTool, s.listHandler)

	statusTool := mcp.NewTool("document_status",
		mcp.WithDescription("Report whether a document exists and is ready for questions"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID to check"),
		),
	)
	mcpServer.AddTool(statusTool, s.statusHandler)

	return s
}

// askHandler handles the ask_question tool call.
func (s *Server) askHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id parameter is required"), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	res, err := s.svc.Ask(ctx, id, question)
	if err != nil {
		return mcp.NewToolResultError(toolError("ask question", err)), nil
	}

	return jsonResult(map[string]any{
		"answer":           res.Answer.Text,
		"source_pages":     res.Answer.SourcePages,
		"context_snippets": res.Answer.Snippets,
		"message_id":       res.MessageID,
	})
}

// listHandler handles the list_documents tool call.
func (s *Server) listHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(toolError("list documents", err)), nil
	}
	return jsonResult(docs)
}

// statusHandler handles the document_status tool call.
func (s *Server) statusHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id parameter is required"), nil
	}

	st, err := s.svc.Status(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(toolError("document status", err)), nil
	}
	return jsonResult(st)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// toolError renders an error for the calling model. Not-found and
// validation errors are the caller's to fix, so they keep their detail.
func toolError(op string, err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrValidation):
		return err.Error()
	default:
		return fmt.Sprintf("%s failed: %v", op, err)
	}
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
