package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/wilds-engine/pkg/engine"
)

const (
	sessionPrefix = "session:"
	sessionIndex  = "sessions"
)

// RedisStore keeps sessions in Redis as JSON, with a sorted set of ids
// scored by save time.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redisURL, which may be a redis:// URL or a bare
// host:port. A zero ttl keeps sessions forever.
func NewRedisStore(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisStore{
		client: redis.NewClient(opt),
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis connection established")
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts", attempts)
}

func (r *RedisStore) SaveSession(ctx context.Context, sess *engine.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		r.logger.Error("Failed to marshal session", "session_id", sess.ID, "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	id := sess.ID.String()
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionPrefix+id, data, r.ttl)
		pipe.ZAdd(ctx, sessionIndex, redis.Z{Score: float64(r.now().UnixMilli()), Member: id})
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save session", "session_id", id, "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	r.logger.Debug("Session saved", "session_id", id, "bytes", len(data))
	return nil
}

func (r *RedisStore) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Session, error) {
	data, err := r.client.Get(ctx, sessionPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to load session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var sess engine.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		r.logger.Error("Failed to unmarshal session", "session_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionPrefix+id.String())
		pipe.ZRem(ctx, sessionIndex, id.String())
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete session", "session_id", id, "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListSessions skips index entries whose session has expired and prunes
// them from the index.
func (r *RedisStore) ListSessions(ctx context.Context) ([]uuid.UUID, error) {
	members, err := r.client.ZRevRange(ctx, sessionIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var ids []uuid.UUID
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			r.logger.Warn("Dropping malformed session index entry", "member", m)
			r.client.ZRem(ctx, sessionIndex, m)
			continue
		}
		n, err := r.client.Exists(ctx, sessionPrefix+m).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		if n == 0 {
			r.client.ZRem(ctx, sessionIndex, m)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
