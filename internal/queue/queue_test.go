package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/pkg/queue"
)

func setupQueue(t *testing.T) (*JobQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewJobQueue(rdb, time.Hour, nil), mr
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewClient(ctx, "redis://127.0.0.1:1")
	assert.Error(t, err)
}

func TestJobQueue_FIFO(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	first := &queue.Job{Seed: 1, Ticks: 10}
	second := &queue.Job{Seed: 2, Ticks: 20, SessionID: uuid.New()}
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))
	assert.NotEmpty(t, first.JobID)
	assert.False(t, first.EnqueuedAt.IsZero())

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.JobID, got.JobID)
	assert.Equal(t, int64(1), got.Seed)
	assert.Equal(t, uuid.Nil, got.SessionID)

	got, err = q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.SessionID, got.SessionID)

	depth, err = q.Depth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestJobQueue_KeepsGivenID(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, &queue.Job{JobID: "nightly-1", Ticks: 5}))
	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "nightly-1", got.JobID)
}

func TestJobQueue_DequeueEmpty(t *testing.T) {
	q, _ := setupQueue(t)
	got, err := q.Dequeue(context.Background(), 100*time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestJobQueue_DequeueBadPayload(t *testing.T) {
	q, mr := setupQueue(t)
	_, err := mr.Lpush(jobsKey, "{not json")
	require.NoError(t, err)
	_, err = q.Dequeue(context.Background(), time.Second)
	assert.ErrorContains(t, err, "failed to parse job")
}

func TestJobQueue_Results(t *testing.T) {
	q, mr := setupQueue(t)
	ctx := context.Background()

	_, err := q.Result(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoResult)

	res := &queue.Result{JobID: "j1", SessionID: uuid.New(), Encounters: 3, Alive: true, Health: 0.8, Tensions: []string{"predator_stalking"}}
	require.NoError(t, q.PublishResult(ctx, res))

	got, err := q.Result(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, res.SessionID, got.SessionID)
	assert.Equal(t, 3, got.Encounters)
	assert.Equal(t, []string{"predator_stalking"}, got.Tensions)

	mr.FastForward(2 * time.Hour)
	_, err = q.Result(ctx, "j1")
	assert.ErrorIs(t, err, ErrNoResult, "results expire")
}

func TestJobQueue_ClosedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := NewJobQueue(rdb, 0, nil)
	require.NoError(t, rdb.Close())
	assert.Error(t, q.Enqueue(context.Background(), &queue.Job{Ticks: 1}))
}
