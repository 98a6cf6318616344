package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfenderov/pdf-rag/internal/api"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API for uploading PDFs and asking questions about them.

Endpoints:
  POST   /upload_pdf                 Upload a PDF (multipart field "file")
  POST   /ask_question               Ask a question about a ready document
  GET    /document_status/:doc_id    Check ingestion status
  GET    /documents                  List documents
  GET    /document/:doc_id           Document metadata and Q&A history
  GET    /document/:doc_id/pdf       Download the stored PDF
  POST   /document/:doc_id/reingest  Re-run ingestion from the stored PDF
  DELETE /document/:doc_id           Delete a document
  POST   /feedback                   Rate an answer
  GET    /health                     Backend health

Example:
  pdf-rag serve --addr :8000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.New(api.Config{
		Addr:           cfg.Server.Addr,
		Mode:           cfg.Server.Mode,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, a.svc)

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting HTTP server on %s...\n", cfg.Server.Addr)

	runErr := server.Run(ctx)

	// Give in-flight ingestion a chance to record its outcome.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.svc.Shutdown(shutdownCtx); err != nil {
		slog.Warn("ingestion did not finish before shutdown", "error", err)
	}

	return runErr
}
