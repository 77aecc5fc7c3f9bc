package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/lumina/ai"
	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/storage"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 5

	// DefaultHistoryLimit is the number of prior messages given to the model.
	DefaultHistoryLimit = 20

	// InterruptedMarker is appended to a response that failed mid-stream.
	InterruptedMarker = "\n[System Error: Response interrupted]"
)

// Retriever finds the context for a question.
type Retriever interface {
	FindRelevant(ctx context.Context, tenantID, query string, k int) ([]core.ContextChunk, error)
}

// Streamer answers chat requests.
type Streamer struct {
	chats        storage.ChatRepository
	members      storage.MembershipRepository
	retriever    Retriever
	generator    ai.Generator
	topK         int
	historyLimit int
	genTimeout   time.Duration
	logger       *slog.Logger
}

// Option configures a Streamer.
type Option func(*Streamer) error

// WithTopK sets how many chunks are retrieved per question.
func WithTopK(k int) Option {
	return func(s *Streamer) error {
		if k <= 0 {
			return fmt.Errorf("%w: top k must be positive, got %d", core.ErrInvalidConfiguration, k)
		}
		s.topK = k
		return nil
	}
}

// WithHistoryLimit sets how many prior messages are passed to the model.
// Zero sends no history.
func WithHistoryLimit(n int) Option {
	return func(s *Streamer) error {
		if n < 0 {
			return fmt.Errorf("%w: history limit must not be negative, got %d", core.ErrInvalidConfiguration, n)
		}
		s.historyLimit = n
		return nil
	}
}

// WithGenerationTimeout bounds the whole answer, from the model call to the
// last fragment. Zero means no bound beyond the caller's context.
func WithGenerationTimeout(d time.Duration) Option {
	return func(s *Streamer) error {
		if d < 0 {
			return fmt.Errorf("%w: generation timeout must not be negative", core.ErrInvalidConfiguration)
		}
		s.genTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Streamer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewStreamer creates a Streamer.
func NewStreamer(
	chats storage.ChatRepository,
	members storage.MembershipRepository,
	retriever Retriever,
	generator ai.Generator,
	opts ...Option,
) (*Streamer, error) {
	if chats == nil {
		return nil, ErrChatRepositoryRequired
	}
	if members == nil {
		return nil, ErrMembershipRepositoryRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	s := &Streamer{
		chats:        chats,
		members:      members,
		retriever:    retriever,
		generator:    generator,
		topK:         DefaultTopK,
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "chat-streamer")
	return s, nil
}

// Authorize checks that req is well formed, that its user belongs to its
// tenant, and that the session exists for that user. It writes nothing.
func (s *Streamer) Authorize(ctx context.Context, req Request) (*core.ChatSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ok, err := s.members.IsMember(ctx, req.TenantID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s is not a member of %s", core.ErrForbidden, req.UserID, req.TenantID)
	}

	session, err := s.chats.GetSession(ctx, req.TenantID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != req.UserID {
		return nil, fmt.Errorf("%w: session %s", storage.ErrNotFound, req.SessionID)
	}
	return session, nil
}

// Stream answers req, forwarding fragments to sink as they are produced,
// and returns the stored assistant message.
//
// Errors returned before anything was written to sink leave the response
// uncommitted. ErrStreamInterrupted means sink already received fragments
// followed by InterruptedMarker. A cancelled ctx returns its error and
// stores no answer.
func (s *Streamer) Stream(ctx context.Context, req Request, sink Sink) (*core.Message, error) {
	if _, err := s.Authorize(ctx, req); err != nil {
		return nil, err
	}
	logger := s.logger.With("tenant", req.TenantID, "session", req.SessionID)

	question, err := s.chats.AppendMessage(ctx, &core.Message{
		SessionID: req.SessionID,
		Role:      core.RoleUser,
		Content:   req.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store question: %w", err)
	}

	contextChunks, err := s.retriever.FindRelevant(ctx, req.TenantID, req.Message, s.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	history, err := s.history(ctx, req.SessionID, question.ID)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.genTimeout > 0 {
		genCtx, cancel = context.WithTimeout(ctx, s.genTimeout)
	}
	defer cancel()

	stream, err := s.generator.Generate(genCtx, req.Message, contextChunks, history)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, asGenerationError(err)
	}
	defer stream.Close()

	var answer strings.Builder
	written := 0
	for {
		fragment, err := stream.Next(genCtx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				logger.Info("caller went away, discarding answer", "fragments", written)
				return nil, ctxErr
			}
			err = asGenerationError(err)
			if written == 0 {
				return nil, err
			}
			logger.Error("answer interrupted", "fragments", written, "err", err)
			if werr := sink.WriteFragment(InterruptedMarker); werr != nil {
				logger.Warn("failed to write interruption marker", "err", werr)
			}
			return nil, fmt.Errorf("%w: %w", ErrStreamInterrupted, err)
		}
		if fragment == "" {
			continue
		}
		if err := sink.WriteFragment(fragment); err != nil {
			logger.Info("failed to forward fragment, discarding answer", "fragments", written, "err", err)
			return nil, fmt.Errorf("failed to write fragment: %w", err)
		}
		answer.WriteString(fragment)
		written++
	}

	reply, err := s.chats.AppendMessage(ctx, &core.Message{
		SessionID: req.SessionID,
		Role:      core.RoleAssistant,
		Content:   answer.String(),
	})
	if err != nil {
		logger.Error("failed to store answer", "err", err)
		return nil, fmt.Errorf("failed to store answer: %w", err)
	}

	logger.Debug("answer complete", "fragments", written, "contextChunks", len(contextChunks))
	return reply, nil
}

// history returns up to historyLimit turns preceding the message with id
// exclude, oldest first.
func (s *Streamer) history(ctx context.Context, sessionID, exclude string) ([]core.Turn, error) {
	if s.historyLimit == 0 {
		return []core.Turn{}, nil
	}
	msgs, err := s.chats.GetRecentMessages(ctx, sessionID, s.historyLimit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	turns := make([]core.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == exclude {
			continue
		}
		turns = append(turns, core.Turn{Role: m.Role, Content: m.Content})
	}
	if len(turns) > s.historyLimit {
		turns = turns[len(turns)-s.historyLimit:]
	}
	return turns, nil
}

func asGenerationError(err error) error {
	if errors.Is(err, core.ErrGeneration) {
		return err
	}
	return fmt.Errorf("%w: %w", core.ErrGeneration, err)
}
