// Package queue provides the Redis-backed job queue that connects the API
// server to the analysis workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the Redis list the queue operates on.
const DefaultKey = "patchpilot:tasks"

// Job is one queued analysis request. It carries only identifiers; the
// task row in storage is the source of truth for status and results.
type Job struct {
	TaskID   string `json:"task_id"`
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	PRNumber int    `json:"pr_number"`
}

// Queue is a FIFO job queue backed by a Redis list.
type Queue struct {
	client *redis.Client
	key    string
}

// New creates a queue on an existing Redis client. An empty key selects
// DefaultKey.
func New(client *redis.Client, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{client: client, key: key}
}

// NewFromURL connects to Redis at the given URL (redis:// or rediss://)
// and verifies connectivity before returning the queue.
func NewFromURL(ctx context.Context, url, key string) (*Queue, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(client, key), nil
}

// Enqueue appends a job to the queue.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}

// Dequeue pops the oldest job, blocking up to timeout. It returns nil with
// no error when the queue stays empty for the whole timeout, so callers
// can poll in a loop and observe shutdown between calls.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	values, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	// BLPOP replies with [key, value].
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply length: %d", len(values))
	}

	var job Job
	if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to decode job: %w", err)
	}

	return &job, nil
}

// Len reports how many jobs are waiting.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}

// Close releases the underlying Redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
