package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/lumina/chat"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/queue"
	"github.com/poiesic/lumina/storage"
)

const (
	// MaxFileBytes is the largest accepted decoded upload.
	MaxFileBytes = 10 * 1024 * 1024

	// MaxUploadBytes bounds the base64 text of an upload, which is about
	// 4/3 the size of the decoded file.
	MaxUploadBytes = MaxFileBytes * 137 / 100

	// DocumentListLimit is the number of documents returned by a listing.
	DocumentListLimit = 50

	shutdownTimeout = 10 * time.Second
)

// JobPublisher hands ingestion jobs to the workers.
type JobPublisher interface {
	Enqueue(ctx context.Context, job *queue.IngestionJob) error
}

// ChatStreamer answers chat requests.
type ChatStreamer interface {
	Stream(ctx context.Context, req chat.Request, sink chat.Sink) (*core.Message, error)
}

var (
	_ JobPublisher = (queue.Queue)(nil)
	_ ChatStreamer = (*chat.Streamer)(nil)
)

// Dependencies are the collaborators the handlers use.
type Dependencies struct {
	Documents   storage.DocumentRepository
	Chats       storage.ChatRepository
	Memberships storage.MembershipRepository
	Audit       storage.AuditRepository
	Jobs        JobPublisher
	Streamer    ChatStreamer
}

func (d Dependencies) validate() error {
	switch {
	case d.Documents == nil:
		return errors.New("server: document repository is required")
	case d.Chats == nil:
		return errors.New("server: chat repository is required")
	case d.Memberships == nil:
		return errors.New("server: membership repository is required")
	case d.Audit == nil:
		return errors.New("server: audit repository is required")
	case d.Jobs == nil:
		return errors.New("server: job publisher is required")
	case d.Streamer == nil:
		return errors.New("server: chat streamer is required")
	}
	return nil
}

// Server routes HTTP requests to the pipeline.
type Server struct {
	deps   Dependencies
	engine *gin.Engine
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a server with every route registered.
func New(deps Dependencies, opts ...Option) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidConfiguration, err)
	}

	s := &Server{
		deps:   deps,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "http-server")

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(recovery(s), requestLogger(s.logger))
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	s.engine.NoRoute(func(c *gin.Context) {
		s.abortWithError(c, core.ErrNotFound)
	})

	api := s.engine.Group("/api")
	api.POST("/chat/stream", s.chatStream)

	api.POST("/documents", s.uploadDocument)
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:id", s.getDocument)

	api.POST("/sessions", s.createSession)
	api.GET("/sessions", s.listSessions)
	api.GET("/sessions/:id/messages", s.listMessages)
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// tenantScope identifies the caller of a tenant endpoint.
type tenantScope struct {
	TenantID string `form:"organizationId" json:"organizationId"`
	UserID   string `form:"userId" json:"userId"`
}

// authorize checks that the caller belongs to the tenant, rendering the
// error and returning false otherwise.
func (s *Server) authorize(c *gin.Context, scope tenantScope) bool {
	if scope.TenantID == "" {
		s.abortWithError(c, fmt.Errorf("%w: %w", core.ErrValidation, core.ErrMissingTenant))
		return false
	}
	if scope.UserID == "" {
		s.abortWithError(c, fmt.Errorf("%w: user id required", core.ErrValidation))
		return false
	}

	ok, err := s.deps.Memberships.IsMember(c.Request.Context(), scope.TenantID, scope.UserID)
	if err != nil {
		s.abortWithError(c, fmt.Errorf("failed to check membership: %w", err))
		return false
	}
	if !ok {
		s.abortWithError(c, core.ErrForbidden)
		return false
	}
	return true
}

// bindJSON decodes the request body, rendering a validation error on failure.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: invalid request body: %w", core.ErrValidation, err))
		return false
	}
	return true
}

// bindQuery decodes the tenant scope from query parameters.
func (s *Server) bindQuery(c *gin.Context) (tenantScope, bool) {
	var scope tenantScope
	if err := c.ShouldBindQuery(&scope); err != nil {
		s.abortWithError(c, fmt.Errorf("%w: invalid query: %w", core.ErrValidation, err))
		return scope, false
	}
	return scope, true
}
