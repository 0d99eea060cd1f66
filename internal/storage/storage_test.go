package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/pkg/engine"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

var table = tension.Table{"Stalked": {Escalating: 0.4, Critical: 0.7}}

func setupRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+mr.Addr(), ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := setupRedis(t, time.Hour)
	return map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := engine.NewSession(77, table)
			sess.Tensions.Create(tension.Spec{TypeKey: "Stalked", Severity: 0.5, AnimalType: "wolf"})
			sess.Cooldowns.Record("fresh_tracks", 12)
			sess.Rand().Float64()

			require.NoError(t, store.SaveSession(ctx, sess))
			loaded, err := store.LoadSession(ctx, sess.ID)
			require.NoError(t, err)

			assert.Equal(t, sess.ID, loaded.ID)
			assert.Equal(t, int64(77), loaded.Seed)
			assert.InDelta(t, 0.5, loaded.Tensions.Severity("Stalked"), 1e-9)
			last, ok := loaded.Cooldowns.LastFired("fresh_tracks")
			assert.True(t, ok)
			assert.Equal(t, int64(12), last)

			// Both continue the same random sequence.
			assert.Equal(t, sess.Rand().Float64(), loaded.Rand().Float64())
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.LoadSession(context.Background(), uuid.New())
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := time.Unix(1000, 0)
			if rs, ok := store.(*RedisStore); ok {
				rs.now = func() time.Time { clock = clock.Add(time.Second); return clock }
			}

			a := engine.NewSession(1, table)
			b := engine.NewSession(2, table)
			require.NoError(t, store.SaveSession(ctx, a))
			require.NoError(t, store.SaveSession(ctx, b))
			require.NoError(t, store.SaveSession(ctx, a))

			ids, err := store.ListSessions(ctx)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids)

			require.NoError(t, store.DeleteSession(ctx, a.ID))
			ids, err = store.ListSessions(ctx)
			require.NoError(t, err)
			assert.Equal(t, []uuid.UUID{b.ID}, ids)

			_, err = store.LoadSession(ctx, a.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := setupRedis(t, 10*time.Minute)
	ctx := context.Background()

	sess := engine.NewSession(5, table)
	require.NoError(t, store.SaveSession(ctx, sess))
	assert.Equal(t, 10*time.Minute, mr.TTL(sessionPrefix+sess.ID.String()))

	mr.FastForward(11 * time.Minute)
	_, err := store.LoadSession(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	ids, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
	members, err := mr.ZMembers(sessionIndex)
	if err == nil {
		assert.Empty(t, members, "expired entries are pruned from the index")
	}
}

func TestRedisStore_CorruptSession(t *testing.T) {
	store, mr := setupRedis(t, 0)
	id := uuid.New()
	require.NoError(t, mr.Set(sessionPrefix+id.String(), "{not json"))

	_, err := store.LoadSession(context.Background(), id)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_WaitForConnection(t *testing.T) {
	store, mr := setupRedis(t, 0)
	ctx := context.Background()
	require.NoError(t, store.WaitForConnection(ctx, 3, time.Millisecond))

	mr.Close()
	err := store.WaitForConnection(ctx, 2, time.Millisecond)
	assert.Error(t, err)
}
