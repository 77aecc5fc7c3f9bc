package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/lumina/chat"
)

// streamSink writes raw fragments to the response, committing the
// event-stream headers on the first write.
type streamSink struct {
	c         *gin.Context
	committed bool
}

func (w *streamSink) commit() {
	if w.committed {
		return
	}
	h := w.c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.c.Status(http.StatusOK)
	w.c.Writer.WriteHeaderNow()
	w.committed = true
}

func (w *streamSink) WriteFragment(fragment string) error {
	w.commit()
	if _, err := w.c.Writer.WriteString(fragment); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}

var _ chat.Sink = (*streamSink)(nil)

func (s *Server) chatStream(c *gin.Context) {
	var req chat.Request
	if !s.bindJSON(c, &req) {
		return
	}

	sink := &streamSink{c: c}
	msg, err := s.deps.Streamer.Stream(c.Request.Context(), req, sink)
	switch {
	case err == nil:
		sink.commit()
		s.logger.Debug("answer streamed", "session", req.SessionID, "message", msg.ID)
	case !sink.committed:
		s.abortWithError(c, err)
	case errors.Is(err, chat.ErrStreamInterrupted):
		s.logger.Warn("answer interrupted", "session", req.SessionID, "err", err)
	default:
		s.logger.Info("stream ended early", "session", req.SessionID, "err", err)
	}
}
