// Package api exposes the document service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/pdf-rag/internal/service"
	"github.com/mfenderov/pdf-rag/pkg/models"
)

// Service is the document service the handlers call.
type Service interface {
	Upload(ctx context.Context, filename string, data []byte) (*models.Document, error)
	Reingest(ctx context.Context, id string) (*models.Document, error)
	Ask(ctx context.Context, id, question string) (*service.AskResult, error)
	Status(ctx context.Context, id string) (*service.DocumentStatus, error)
	List(ctx context.Context) ([]models.Document, error)
	Get(ctx context.Context, id string) (*service.DocumentDetail, error)
	PDF(ctx context.Context, id string) ([]byte, *models.Document, error)
	Delete(ctx context.Context, id string) error
	Feedback(ctx context.Context, messageID string, helpful bool) error
	Health(ctx context.Context) service.Health
}

// Config holds HTTP server configuration.
type Config struct {
	Addr           string // ":8000"
	Mode           string // gin mode: "release", "debug" or "test"
	MaxUploadBytes int64
}

// Server serves the HTTP API.
type Server struct {
	config Config
	svc    Service
	router *gin.Engine
}

// New creates a server with its routes registered.
func New(config Config, svc Service) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = service.DefaultMaxUploadBytes
	}

	s := &Server{
		config: config,
		svc:    svc,
		router: gin.New(),
	}
	s.router.Use(gin.Recovery(), requestIDMiddleware(), loggingMiddleware())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.GET("/health", s.health)

	r.POST("/upload_pdf", s.uploadPDF)
	r.POST("/ask_question", s.askQuestion)
	r.POST("/feedback", s.feedback)

	r.GET("/documents", s.listDocuments)
	r.GET("/document_status/:doc_id", s.documentStatus)

	doc := r.Group("/document/:doc_id")
	{
		doc.GET("", s.getDocument)
		doc.GET("/pdf", s.downloadPDF)
		doc.POST("/reingest", s.reingest)
		doc.DELETE("", s.deleteDocument)
	}
}

// Handler returns the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
