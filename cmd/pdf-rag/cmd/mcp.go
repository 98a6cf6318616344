package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfenderov/pdf-rag/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the MCP server for document Q&A.

The server communicates via stdio and provides three tools:
  - ask_question: Answer a question about a ready document
  - list_documents: List registered documents
  - document_status: Report a document's ingestion status

Example:
  pdf-rag mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, a.svc)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	serveErr := server.ServeStdio()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.svc.Shutdown(shutdownCtx); err != nil {
		slog.Warn("ingestion did not finish before shutdown", "error", err)
	}

	return serveErr
}
