package queue

import "errors"

var (
	// ErrInvalidJob indicates a job payload that fails validation.
	ErrInvalidJob = errors.New("invalid ingestion job")

	// ErrQueueClosed is returned by operations on a closed queue.
	ErrQueueClosed = errors.New("queue closed")

	// ErrUnknownDelivery is returned when acking or nacking a delivery the
	// queue no longer tracks, e.g. one that was already acknowledged.
	ErrUnknownDelivery = errors.New("unknown delivery")
)
