package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/lumina/core"
)

func (s *Server) createSession(c *gin.Context) {
	var scope tenantScope
	if !s.bindJSON(c, &scope) || !s.authorize(c, scope) {
		return
	}

	session, err := s.deps.Chats.CreateSession(c.Request.Context(), &core.ChatSession{
		ID:       core.NewID(),
		TenantID: scope.TenantID,
		UserID:   scope.UserID,
	})
	if err != nil {
		s.abortWithError(c, fmt.Errorf("failed to create session: %w", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": session.ID})
}

func (s *Server) listSessions(c *gin.Context) {
	scope, ok := s.bindQuery(c)
	if !ok || !s.authorize(c, scope) {
		return
	}

	sessions, err := s.deps.Chats.ListSessions(c.Request.Context(), scope.TenantID, scope.UserID)
	if err != nil {
		s.abortWithError(c, fmt.Errorf("failed to list sessions: %w", err))
		return
	}
	c.JSON(http.StatusOK, mapSlice(sessions, toSessionResponse))
}

// listMessages returns the full history of a session owned by the caller.
func (s *Server) listMessages(c *gin.Context) {
	scope, ok := s.bindQuery(c)
	if !ok || !s.authorize(c, scope) {
		return
	}

	ctx := c.Request.Context()
	session, err := s.deps.Chats.GetSession(ctx, scope.TenantID, c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if session.UserID != scope.UserID {
		s.abortWithError(c, core.ErrNotFound)
		return
	}

	messages, err := s.deps.Chats.GetMessages(ctx, session.ID)
	if err != nil {
		s.abortWithError(c, fmt.Errorf("failed to load messages: %w", err))
		return
	}
	c.JSON(http.StatusOK, mapSlice(messages, toMessageResponse))
}
