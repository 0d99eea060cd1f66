// Package worker runs queued simulation jobs headlessly.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/wilds-engine/internal/queue"
	"github.com/jwebster45206/wilds-engine/internal/sim"
	"github.com/jwebster45206/wilds-engine/internal/storage"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
	queuePkg "github.com/jwebster45206/wilds-engine/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
	maxJobTicks   = 96 * 365
)

// ErrSessionLocked is returned when another worker holds the session.
var ErrSessionLocked = errors.New("session is locked by another worker")

// RunFactory builds a runner for seed, resuming sess when it is not nil.
type RunFactory func(seed int64, sess *engine.Session) (*sim.Runner, error)

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker pulls jobs from the queue, plays them out and publishes results.
type Worker struct {
	id     string
	queue  *queue.JobQueue
	rdb    *redis.Client
	store  storage.Store
	newRun RunFactory
	log    *slog.Logger
}

// New creates a worker. An empty workerID gets a random one.
func New(q *queue.JobQueue, rdb *redis.Client, store storage.Store, newRun RunFactory, log *slog.Logger, workerID string) *Worker {
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		id:     workerID,
		queue:  q,
		rdb:    rdb,
		store:  store,
		newRun: newRun,
		log:    log,
	}
}

// ID returns the worker id.
func (w *Worker) ID() string { return w.id }

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Worker starting", "worker_id", w.id)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if _, err := w.ProcessNext(ctx); err != nil {
				w.log.Error("Error processing job", "error", err, "worker_id", w.id)
				// Keep going after a bad job.
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// ProcessNext waits for one job and runs it. It returns nil, nil when the
// queue stayed empty or the job was re-queued behind a locked session.
func (w *Worker) ProcessNext(ctx context.Context) (*queuePkg.Result, error) {
	job, err := w.queue.Dequeue(ctx, workerTimeout)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	w.log.Info("Received job from queue",
		"worker_id", w.id,
		"job_id", job.JobID,
		"session_id", job.SessionID.String(),
		"ticks", job.Ticks)

	res, err := w.Process(ctx, job)
	if errors.Is(err, ErrSessionLocked) {
		w.log.Info("Session already locked, re-queueing job",
			"worker_id", w.id,
			"job_id", job.JobID,
			"session_id", job.SessionID.String())
		if err := w.queue.Enqueue(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to re-queue job: %w", err)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := w.queue.PublishResult(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// Process runs job and returns its result. Simulation failures are
// reported in Result.Error; only lock and infrastructure failures are
// returned as errors.
func (w *Worker) Process(ctx context.Context, job *queuePkg.Job) (*queuePkg.Result, error) {
	start := time.Now()
	res := &queuePkg.Result{
		JobID:     job.JobID,
		SessionID: job.SessionID,
		WorkerID:  w.id,
	}

	var sess *engine.Session
	if job.SessionID != uuid.Nil {
		locked, err := w.acquireLock(ctx, job.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire session lock: %w", err)
		}
		if !locked {
			return nil, ErrSessionLocked
		}
		defer w.releaseLock(job.SessionID)

		sess, err = w.store.LoadSession(ctx, job.SessionID)
		if err != nil {
			return w.fail(res, err), nil
		}
	}

	ticks := job.Ticks
	if ticks <= 0 || ticks > maxJobTicks {
		return w.fail(res, fmt.Errorf("ticks must be between 1 and %d, got %d", maxJobTicks, job.Ticks)), nil
	}

	run, err := w.newRun(job.Seed, sess)
	if err != nil {
		return w.fail(res, err), nil
	}
	res.SessionID = run.Session().ID

	if err := run.Play(ctx, ticks, func(*engine.Encounter, *engine.Resolution) {
		res.Encounters++
	}); err != nil {
		return w.fail(res, err), nil
	}
	if err := w.store.SaveSession(ctx, run.Session()); err != nil {
		return w.fail(res, err), nil
	}

	res.Ticks = run.World().Tick()
	res.Alive = run.Survivor().Alive()
	res.Health = run.Survivor().Health()
	for _, t := range run.Session().Tensions.Active() {
		res.Tensions = append(res.Tensions, t.TypeKey)
	}
	res.FinishedAt = time.Now()

	w.log.Info("Job processed successfully",
		"worker_id", w.id,
		"job_id", job.JobID,
		"session_id", res.SessionID.String(),
		"encounters", res.Encounters,
		"alive", res.Alive,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (w *Worker) fail(res *queuePkg.Result, err error) *queuePkg.Result {
	w.log.Error("Job failed", "worker_id", w.id, "job_id", res.JobID, "error", err)
	res.Error = err.Error()
	res.FinishedAt = time.Now()
	return res
}

func lockKey(id uuid.UUID) string {
	return "session-lock:" + id.String()
}

// acquireLock returns false when another worker already holds the session.
func (w *Worker) acquireLock(ctx context.Context, id uuid.UUID) (bool, error) {
	return w.rdb.SetNX(ctx, lockKey(id), w.id, lockTTL).Result()
}

func (w *Worker) releaseLock(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
	defer cancel()
	if err := releaseScript.Run(ctx, w.rdb, []string{lockKey(id)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release session lock", "error", err, "session_id", id.String())
	}
}
