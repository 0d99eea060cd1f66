// Package queue moves simulation jobs and their results through Redis.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/wilds-engine/pkg/queue"
)

const (
	jobsKey      = "sim-jobs"
	resultPrefix = "sim-result:"
)

// ErrNoResult is returned when a job has not finished (or never existed).
var ErrNoResult = errors.New("no result for job")

// NewClient connects to redisURL and checks the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// JobQueue is a FIFO of simulation jobs.
type JobQueue struct {
	rdb       *redis.Client
	resultTTL time.Duration
	logger    *slog.Logger
}

func NewJobQueue(rdb *redis.Client, resultTTL time.Duration, logger *slog.Logger) *JobQueue {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &JobQueue{rdb: rdb, resultTTL: resultTTL, logger: logger}
}

// Enqueue adds job to the end of the queue, filling in its id and
// timestamp when unset.
func (q *JobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	data, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}
	if err := q.rdb.RPush(ctx, jobsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	q.logger.Debug("Job enqueued", "job_id", job.JobID, "session_id", job.SessionID.String())
	return nil
}

// Dequeue blocks up to timeout for the next job. It returns nil, nil when
// the wait times out.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	result, err := q.rdb.BLPop(ctx, timeout, jobsKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}
	// result[0] is the key, result[1] is the value
	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected BLPOP result length: %d", len(result))
	}
	job, err := queue.JobFromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	return job, nil
}

// Depth returns the number of jobs waiting.
func (q *JobQueue) Depth(ctx context.Context) (int, error) {
	n, err := q.rdb.LLen(ctx, jobsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(n), nil
}

// PublishResult stores res under its job id.
func (q *JobQueue) PublishResult(ctx context.Context, res *queue.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}
	if err := q.rdb.Set(ctx, resultPrefix+res.JobID, data, q.resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}

// Result returns the stored result for jobID.
func (q *JobQueue) Result(ctx context.Context, jobID string) (*queue.Result, error) {
	data, err := q.rdb.Get(ctx, resultPrefix+jobID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNoResult, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	var res queue.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}
	return &res, nil
}
