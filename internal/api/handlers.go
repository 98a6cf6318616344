package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfenderov/pdf-rag/pkg/models"
)

type askRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Question   string `json:"question" binding:"required"`
}

type askResponse struct {
	Answer          string           `json:"answer"`
	SourcePages     []int            `json:"source_pages"`
	ContextSnippets []models.Snippet `json:"context_snippets"`
	MessageID       string           `json:"message_id"`
	Cached          bool             `json:"cached"`
}

type feedbackRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	IsHelpful *bool  `json:"is_helpful" binding:"required"`
}

type documentSummary struct {
	ID         string        `json:"id"`
	Filename   string        `json:"filename"`
	UploadedAt time.Time     `json:"uploaded_at"`
	Status     models.Status `json:"status"`
}

func (s *Server) uploadPDF(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" is required")
		return
	}
	if fh.Size > s.config.MaxUploadBytes {
		badRequest(c, fmt.Sprintf("file exceeds %d bytes", s.config.MaxUploadBytes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "failed to read uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.config.MaxUploadBytes+1))
	if err != nil {
		badRequest(c, "failed to read uploaded file")
		return
	}

	doc, err := s.svc.Upload(c.Request.Context(), fh.Filename, data)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"message":     "PDF uploaded; processing started",
	})
}

func (s *Server) askQuestion(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := s.svc.Ask(c.Request.Context(), req.DocumentID, req.Question)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, askResponse{
		Answer:          res.Answer.Text,
		SourcePages:     res.Answer.SourcePages,
		ContextSnippets: res.Answer.Snippets,
		MessageID:       res.MessageID,
		Cached:          res.Cached,
	})
}

func (s *Server) documentStatus(c *gin.Context) {
	st, err := s.svc.Status(c.Request.Context(), c.Param("doc_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.svc.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]documentSummary, len(docs))
	for i, d := range docs {
		out[i] = documentSummary{ID: d.ID, Filename: d.Filename, UploadedAt: d.UploadedAt, Status: d.Status}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getDocument(c *gin.Context) {
	detail, err := s.svc.Get(c.Request.Context(), c.Param("doc_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) downloadPDF(c *gin.Context) {
	data, doc, err := s.svc.PDF(c.Request.Context(), c.Param("doc_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) reingest(c *gin.Context) {
	doc, err := s.svc.Reingest(c.Request.Context(), c.Param("doc_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"document_id": doc.ID,
		"status":      doc.Status,
		"message":     "re-ingestion started",
	})
}

func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("doc_id")
	if err := s.svc.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("document %s deleted", id)})
}

func (s *Server) feedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := s.svc.Feedback(c.Request.Context(), req.MessageID, *req.IsHelpful); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "feedback recorded"})
}

func (s *Server) health(c *gin.Context) {
	h := s.svc.Health(c.Request.Context())

	status, code := "ok", http.StatusOK
	if !h.Database || !h.VectorIndex {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       status,
		"database":     h.Database,
		"vector_index": h.VectorIndex,
		"cache":        h.Cache,
	})
}
