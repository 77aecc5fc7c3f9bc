package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/queue"
)

var mimeTypes = map[string]string{
	".txt": "text/plain",
	".md":  "text/markdown",
	".pdf": "application/pdf",
}

type uploadRequest struct {
	tenantScope
	FileName      string `json:"fileName"`
	ContentBase64 string `json:"contentBase64"`
}

// validateUpload checks the file name and size and returns the MIME type
// and decoded content.
func validateUpload(req *uploadRequest) (string, []byte, error) {
	name := strings.TrimSpace(req.FileName)
	if name == "" {
		return "", nil, fmt.Errorf("%w: filename required", core.ErrValidation)
	}
	mimeType, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", nil, fmt.Errorf("%w: %w", core.ErrValidation, ErrUnsupportedFileType)
	}
	if len(req.ContentBase64) > MaxUploadBytes {
		return "", nil, ErrPayloadTooLarge
	}
	content, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		return "", nil, fmt.Errorf("%w: content is not valid base64", core.ErrValidation)
	}
	return mimeType, content, nil
}

// uploadDocument stores a PENDING document and queues it for ingestion.
func (s *Server) uploadDocument(c *gin.Context) {
	var req uploadRequest
	if !s.bindJSON(c, &req) || !s.authorize(c, req.tenantScope) {
		return
	}

	mimeType, content, err := validateUpload(&req)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	doc, err := s.deps.Documents.CreateDocument(ctx, &core.Document{
		ID:       core.NewID(),
		TenantID: req.TenantID,
		Title:    strings.TrimSpace(req.FileName),
		MimeType: mimeType,
		Status:   core.DocumentStatusPending,
	})
	if err != nil {
		s.abortWithError(c, fmt.Errorf("failed to create document: %w", err))
		return
	}

	if err := s.deps.Jobs.Enqueue(ctx, queue.NewIngestionJob(doc.TenantID, doc.ID, content)); err != nil {
		// Nothing will ever pick the document up, so it must not stay PENDING.
		if _, serr := s.deps.Documents.UpdateDocumentStatus(context.WithoutCancel(ctx), doc.ID, core.DocumentStatusError); serr != nil {
			s.logger.Error("failed to mark unqueued document", "document", doc.ID, "err", serr)
		}
		s.abortWithError(c, fmt.Errorf("failed to enqueue document %s: %w", doc.ID, err))
		return
	}

	// The job is already queued, so a failed audit write must not fail the upload.
	err = s.deps.Audit.RecordEvent(ctx, &core.AuditEvent{
		TenantID: doc.TenantID,
		UserID:   req.UserID,
		Type:     core.AuditDocumentUpload,
		Metadata: map[string]string{"documentId": doc.ID, "fileName": doc.Title},
	})
	if err != nil {
		s.logger.Error("failed to record upload event", "document", doc.ID, "err", err)
	}

	s.logger.Info("document queued", "tenant", doc.TenantID, "document", doc.ID, "bytes", len(content))
	c.JSON(http.StatusAccepted, gin.H{"id": doc.ID})
}

func (s *Server) listDocuments(c *gin.Context) {
	scope, ok := s.bindQuery(c)
	if !ok || !s.authorize(c, scope) {
		return
	}

	docs, err := s.deps.Documents.ListDocuments(c.Request.Context(), scope.TenantID, DocumentListLimit)
	if err != nil {
		s.abortWithError(c, fmt.Errorf("failed to list documents: %w", err))
		return
	}
	c.JSON(http.StatusOK, mapSlice(docs, toDocumentResponse))
}

func (s *Server) getDocument(c *gin.Context) {
	scope, ok := s.bindQuery(c)
	if !ok || !s.authorize(c, scope) {
		return
	}

	doc, err := s.deps.Documents.GetDocument(c.Request.Context(), scope.TenantID, c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(doc))
}
