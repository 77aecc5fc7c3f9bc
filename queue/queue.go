package queue

import (
	"context"
	"errors"
	"time"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/retry"
)

// DefaultMaxAttempts is the number of deliveries before a job is dead-lettered.
const DefaultMaxAttempts = 5

// Delivery is a dequeued job awaiting Ack or Nack.
type Delivery struct {
	Job *IngestionJob
	// Attempt is 1 for the first delivery of a job.
	Attempt int

	raw string
}

// Stats reports queue depth.
type Stats struct {
	Ready      int64
	Processing int64
	Delayed    int64
	Dead       int64
}

// Queue transports ingestion jobs with at-least-once delivery.
type Queue interface {
	// Enqueue validates and publishes a job.
	Enqueue(ctx context.Context, job *IngestionJob) error
	// Dequeue blocks until a job is available or ctx ends.
	Dequeue(ctx context.Context) (*Delivery, error)
	// Ack removes a successfully processed delivery.
	Ack(ctx context.Context, d *Delivery) error
	// Nack reports a failed delivery. The job is redelivered after a backoff
	// delay, or dead-lettered once attempts are exhausted or the cause is
	// permanent.
	Nack(ctx context.Context, d *Delivery, cause error) error
	// Stats reports the current queue depth.
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// defaultBackoff spaces redeliveries 1s, 2s, 4s... capped at one minute.
var defaultBackoff = retry.Policy{
	MaxAttempts: DefaultMaxAttempts,
	BaseDelay:   time.Second,
	MaxDelay:    time.Minute,
}

// isPermanent reports whether a failure cannot be fixed by redelivery.
func isPermanent(cause error) bool {
	return retry.IsPermanent(cause) ||
		errors.Is(cause, core.ErrValidation) ||
		errors.Is(cause, core.ErrForbidden) ||
		errors.Is(cause, core.ErrNotFound)
}
