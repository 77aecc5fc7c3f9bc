package queue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/lumina/retry"
)

// MemoryQueue is an in-process Queue. Jobs do not survive a restart.
type MemoryQueue struct {
	ready   chan *IngestionJob
	done    chan struct{}
	backoff retry.Policy
	logger  *slog.Logger

	mu       sync.Mutex
	inflight map[*Delivery]struct{}
	dead     []*IngestionJob
	timers   map[*time.Timer]struct{}
	closed   atomic.Bool
}

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue(opts ...Option) (*MemoryQueue, error) {
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &MemoryQueue{
		ready:    make(chan *IngestionJob, s.capacity),
		done:     make(chan struct{}),
		backoff:  s.backoff,
		logger:   s.logger.With("component", "memory-queue"),
		inflight: make(map[*Delivery]struct{}),
		timers:   make(map[*time.Timer]struct{}),
	}, nil
}

// Enqueue validates the job and blocks while the queue is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job *IngestionJob) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	if err := job.Validate(); err != nil {
		return err
	}
	copied := *job
	select {
	case q.ready <- &copied:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until a job is ready, the queue closes, or ctx ends.
func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	select {
	case job := <-q.ready:
		d := &Delivery{Job: job, Attempt: job.Attempt + 1}
		q.mu.Lock()
		q.inflight[d] = struct{}{}
		q.mu.Unlock()
		return d, nil
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) release(d *Delivery) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inflight[d]; !ok {
		return false
	}
	delete(q.inflight, d)
	return true
}

// Ack forgets the delivery.
func (q *MemoryQueue) Ack(ctx context.Context, d *Delivery) error {
	if !q.release(d) {
		return ErrUnknownDelivery
	}
	return nil
}

// Nack schedules a redelivery or dead-letters the job.
func (q *MemoryQueue) Nack(ctx context.Context, d *Delivery, cause error) error {
	if !q.release(d) {
		return ErrUnknownDelivery
	}

	next := *d.Job
	next.Attempt++

	if isPermanent(cause) || next.Attempt >= q.backoff.MaxAttempts {
		q.logger.Warn("dead-lettering job", "document", next.DocumentID, "attempts", next.Attempt, "err", cause)
		q.mu.Lock()
		q.dead = append(q.dead, &next)
		q.mu.Unlock()
		return nil
	}

	delay := q.backoff.Delay(next.Attempt)
	q.logger.Info("job scheduled for retry", "document", next.DocumentID, "attempt", next.Attempt, "delay", delay, "err", cause)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed.Load() {
		return ErrQueueClosed
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		select {
		case q.ready <- &next:
		case <-q.done:
		}
	})
	q.timers[timer] = struct{}{}
	return nil
}

// DeadLetters returns copies of the dead-lettered jobs, oldest first.
func (q *MemoryQueue) DeadLetters() []IngestionJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]IngestionJob, len(q.dead))
	for i, job := range q.dead {
		out[i] = *job
	}
	return out
}

// Stats reports queue depth.
func (q *MemoryQueue) Stats(ctx context.Context) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Ready:      int64(len(q.ready)),
		Processing: int64(len(q.inflight)),
		Delayed:    int64(len(q.timers)),
		Dead:       int64(len(q.dead)),
	}, nil
}

// Close wakes blocked callers and drops pending retries.
func (q *MemoryQueue) Close() error {
	if !q.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(q.done)
	q.mu.Lock()
	defer q.mu.Unlock()
	for timer := range q.timers {
		timer.Stop()
		delete(q.timers, timer)
	}
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
