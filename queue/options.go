package queue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/retry"
)

type settings struct {
	backoff     retry.Policy
	prefix      string
	pollTimeout time.Duration
	capacity    int
	logger      *slog.Logger
}

func defaultSettings() settings {
	return settings{
		backoff:     defaultBackoff,
		prefix:      DefaultKeyPrefix,
		pollTimeout: time.Second,
		capacity:    1024,
		logger:      slog.Default(),
	}
}

func applyOptions(opts []Option) (settings, error) {
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(&s); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Option configures a queue.
type Option func(*settings) error

// WithMaxAttempts sets how many deliveries a job gets before it is
// dead-lettered.
func WithMaxAttempts(n int) Option {
	return func(s *settings) error {
		if n <= 0 {
			return fmt.Errorf("%w: max attempts must be positive, got %d", core.ErrInvalidConfiguration, n)
		}
		s.backoff.MaxAttempts = n
		return nil
	}
}

// WithRetryDelay sets the first redelivery delay and its cap.
func WithRetryDelay(base, max time.Duration) Option {
	return func(s *settings) error {
		if base < 0 || max < 0 {
			return fmt.Errorf("%w: retry delays must not be negative", core.ErrInvalidConfiguration)
		}
		s.backoff.BaseDelay = base
		s.backoff.MaxDelay = max
		return nil
	}
}

// WithKeyPrefix sets the Redis key namespace. Ignored by MemoryQueue.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) error {
		if prefix == "" {
			return fmt.Errorf("%w: key prefix must not be empty", core.ErrInvalidConfiguration)
		}
		s.prefix = prefix
		return nil
	}
}

// WithPollTimeout sets how long a single blocking pop waits before Dequeue
// re-checks its context and the delayed set. Redis rounds it up to one
// second. Ignored by MemoryQueue.
func WithPollTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d <= 0 {
			return fmt.Errorf("%w: poll timeout must be positive", core.ErrInvalidConfiguration)
		}
		s.pollTimeout = d
		return nil
	}
}

// WithCapacity bounds the number of ready jobs a MemoryQueue buffers.
// Ignored by RedisQueue.
func WithCapacity(n int) Option {
	return func(s *settings) error {
		if n <= 0 {
			return fmt.Errorf("%w: capacity must be positive", core.ErrInvalidConfiguration)
		}
		s.capacity = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}
