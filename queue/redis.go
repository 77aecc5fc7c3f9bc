// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/poiesic/lumina/core"
	"github.com/poiesic/lumina/retry"
)

// DefaultKeyPrefix namespaces the Redis keys of a queue.
const DefaultKeyPrefix = "lumina:ingest"

// RedisQueue is a Redis-backed Queue.
//
// Jobs move between four keys: a ready list, a processing list holding
// in-flight deliveries, a sorted set of delayed retries scored by due time,
// and a dead-letter list. Dequeue uses BRPOPLPUSH so a crashed worker leaves
// its job in the processing list, where Recover finds it.
type RedisQueue struct {
	client      redis.UniversalClient
	ownsClient  bool
	prefix      string
	backoff     retry.Policy
	pollTimeout time.Duration
	closed      atomic.Bool
	logger      *slog.Logger
}

// DialRedis connects to the Redis server at url (redis://host:port/db) and
// returns a queue that closes the connection on Close.
func DialRedis(ctx context.Context, url string, opts ...Option) (*RedisQueue, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", redisOpts.Addr, err)
	}
	q, err := NewRedisQueue(client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	q.ownsClient = true
	return q, nil
}

// NewRedisQueue wraps an existing client. The caller keeps ownership of it.
func NewRedisQueue(client redis.UniversalClient, opts ...Option) (*RedisQueue, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", core.ErrInvalidConfiguration)
	}
	s, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &RedisQueue{
		client:      client,
		prefix:      s.prefix,
		backoff:     s.backoff,
		pollTimeout: s.pollTimeout,
		logger:      s.logger.With("component", "redis-queue", "prefix", s.prefix),
	}, nil
}

func (q *RedisQueue) key(name string) string {
	return q.prefix + ":" + name
}

// Enqueue validates and publishes a job.
func (q *RedisQueue) Enqueue(ctx context.Context, job *IngestionJob) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	data, err := job.Encode()
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key("ready"), data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	q.logger.Debug("job enqueued", "document", job.DocumentID, "tenant", job.TenantID)
	return nil
}

// Dequeue blocks until a job is ready or ctx ends. Payloads that fail to
// decode are dead-lettered and skipped.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		if q.closed.Load() {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := q.promoteDue(ctx); err != nil {
			return nil, err
		}

		raw, err := q.client.BRPopLPush(ctx, q.key("ready"), q.key("processing"), q.pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to dequeue job: %w", err)
		}

		job, err := DecodeJob([]byte(raw))
		if err != nil {
			q.logger.Warn("dead-lettering undecodable payload", "err", err)
			if err := q.moveToDead(ctx, raw, raw); err != nil {
				return nil, err
			}
			continue
		}
		return &Delivery{Job: job, Attempt: job.Attempt + 1, raw: raw}, nil
	}
}

// Ack removes the delivery from the processing list.
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	n, err := q.client.LRem(ctx, q.key("processing"), 1, d.raw).Result()
	if err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	if n == 0 {
		return ErrUnknownDelivery
	}
	return nil
}

// Nack schedules a redelivery or dead-letters the job.
func (q *RedisQueue) Nack(ctx context.Context, d *Delivery, cause error) error {
	next := *d.Job
	next.Attempt++

	data, err := next.Encode()
	if err != nil {
		return err
	}

	if isPermanent(cause) || next.Attempt >= q.backoff.MaxAttempts {
		q.logger.Warn("dead-lettering job",
			"document", d.Job.DocumentID,
			"attempts", next.Attempt,
			"err", cause)
		return q.moveToDead(ctx, d.raw, string(data))
	}

	delay := q.backoff.Delay(next.Attempt)
	due := time.Now().Add(delay)
	var removed *redis.IntCmd
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.LRem(ctx, q.key("processing"), 1, d.raw)
		pipe.ZAdd(ctx, q.key("delayed"), redis.Z{Score: float64(due.UnixMilli()), Member: string(data)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to nack job: %w", err)
	}
	if removed.Val() == 0 {
		q.logger.Warn("nacked delivery was not in flight", "document", d.Job.DocumentID)
	}
	q.logger.Info("job scheduled for retry",
		"document", d.Job.DocumentID,
		"attempt", next.Attempt,
		"delay", delay,
		"err", cause)
	return nil
}

func (q *RedisQueue) moveToDead(ctx context.Context, raw, payload string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.key("processing"), 1, raw)
		pipe.LPush(ctx, q.key("dead"), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to dead-letter job: %w", err)
	}
	return nil
}

// promoteDue moves delayed jobs whose time has come onto the ready list.
func (q *RedisQueue) promoteDue(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.client.ZRangeByScore(ctx, q.key("delayed"), &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delayed jobs: %w", err)
	}

	promoted := 0
	for _, member := range due {
		// Only the worker that removes the member promotes it.
		n, err := q.client.ZRem(ctx, q.key("delayed"), member).Result()
		if err != nil {
			return promoted, fmt.Errorf("failed to promote delayed job: %w", err)
		}
		if n == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.key("ready"), member).Err(); err != nil {
			return promoted, fmt.Errorf("failed to promote delayed job: %w", err)
		}
		promoted++
	}
	return promoted, nil
}

// Recover returns in-flight deliveries left by crashed workers to the ready
// list. Call it before starting workers.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.RPopLPush(ctx, q.key("processing"), q.key("ready")).Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover in-flight jobs: %w", err)
		}
		moved++
	}
	if moved > 0 {
		q.logger.Info("recovered in-flight jobs", "count", moved)
	}
	return moved, nil
}

// DeadLetters returns up to limit dead-lettered payloads, newest first.
func (q *RedisQueue) DeadLetters(ctx context.Context, limit int64) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	return q.client.LRange(ctx, q.key("dead"), 0, limit-1).Result()
}

// Stats reports the length of each list.
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.key("ready"))
	processing := pipe.LLen(ctx, q.key("processing"))
	delayed := pipe.ZCard(ctx, q.key("delayed"))
	dead := pipe.LLen(ctx, q.key("dead"))
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return Stats{
		Ready:      ready.Val(),
		Processing: processing.Val(),
		Delayed:    delayed.Val(),
		Dead:       dead.Val(),
	}, nil
}

// Close stops the queue. The Redis connection is closed only if the queue
// dialed it.
func (q *RedisQueue) Close() error {
	if !q.closed.CompareAndSwap(false, true) {
		return nil
	}
	if q.ownsClient {
		return q.client.Close()
	}
	return nil
}

var _ Queue = (*RedisQueue)(nil)
