package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/internal/queue"
	"github.com/jwebster45206/wilds-engine/internal/sim"
	"github.com/jwebster45206/wilds-engine/internal/storage"
	"github.com/jwebster45206/wilds-engine/internal/survivor"
	"github.com/jwebster45206/wilds-engine/pkg/content"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
	queuePkg "github.com/jwebster45206/wilds-engine/pkg/queue"
)

type fixture struct {
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	queue *queue.JobQueue
	store *storage.MemoryStore
	w     *Worker
}

func setup(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	bundle, err := content.Default(nil)
	require.NoError(t, err)
	newRun := func(seed int64, sess *engine.Session) (*sim.Runner, error) {
		s, err := survivor.New(survivor.DefaultSpec(), survivor.DefaultRewards(), nil)
		if err != nil {
			return nil, err
		}
		return sim.New(sim.Options{Bundle: bundle, Survivor: s, Session: sess, Seed: seed})
	}

	q := queue.NewJobQueue(rdb, time.Hour, nil)
	store := storage.NewMemoryStore()
	return &fixture{
		mr:    mr,
		rdb:   rdb,
		queue: q,
		store: store,
		w:     New(q, rdb, store, newRun, nil, "worker-test"),
	}
}

func TestNew_GeneratesID(t *testing.T) {
	w := New(nil, nil, nil, nil, nil, "")
	assert.Regexp(t, `^worker-[0-9a-f]{8}$`, w.ID())
}

func TestProcessNext_NewRun(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	job := &queuePkg.Job{Seed: 5, Ticks: 48}
	require.NoError(t, f.queue.Enqueue(ctx, job))

	res, err := f.w.ProcessNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Empty(t, res.Error)
	assert.Equal(t, "worker-test", res.WorkerID)
	assert.NotEqual(t, uuid.Nil, res.SessionID)
	assert.Positive(t, res.Ticks)
	assert.Positive(t, res.Encounters, "half a day in the wilds should produce an encounter")

	published, err := f.queue.Result(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, published.SessionID)

	saved, err := f.store.LoadSession(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), saved.Seed)
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res, err := f.w.ProcessNext(ctx)
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestProcess_ResumesStoredSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.w.Process(ctx, &queuePkg.Job{JobID: "a", Seed: 8, Ticks: 8})
	require.NoError(t, err)
	require.Empty(t, first.Error)

	second, err := f.w.Process(ctx, &queuePkg.Job{JobID: "b", SessionID: first.SessionID, Ticks: 8})
	require.NoError(t, err)
	require.Empty(t, second.Error)
	assert.Equal(t, first.SessionID, second.SessionID)

	assert.False(t, f.mr.Exists(lockKey(first.SessionID)), "lock released after the job")
}

func TestProcess_MissingSession(t *testing.T) {
	f := setup(t)
	res, err := f.w.Process(context.Background(), &queuePkg.Job{JobID: "x", SessionID: uuid.New(), Ticks: 4})
	require.NoError(t, err)
	assert.Contains(t, res.Error, "not found")
}

func TestProcess_BadTicks(t *testing.T) {
	f := setup(t)
	res, err := f.w.Process(context.Background(), &queuePkg.Job{JobID: "x", Ticks: 0})
	require.NoError(t, err)
	assert.Contains(t, res.Error, "ticks must be between")
}

func TestProcessNext_LockedSessionIsRequeued(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, f.mr.Set(lockKey(id), "someone-else"))

	require.NoError(t, f.queue.Enqueue(ctx, &queuePkg.Job{SessionID: id, Ticks: 4}))
	res, err := f.w.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, res)

	depth, err := f.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	// The other owner's lock survives our release attempt.
	f.w.releaseLock(id)
	got, err := f.mr.Get(lockKey(id))
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.w.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not stop")
	}
}
