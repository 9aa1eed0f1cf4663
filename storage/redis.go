package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"trello-cloney/board"
)

const defaultUpdateRetries = 5

// RedisStore keeps views in Redis so any instance can serve any view. Each
// view is a single JSON value that expires ttl after its last write.
type RedisStore struct {
	redis   *redis.Client
	ttl     time.Duration
	retries int
}

// NewRedisStore creates a view store backed by the given client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("storage.NewRedisStore: redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{redis: client, ttl: ttl, retries: defaultUpdateRetries}
}

func (r *RedisStore) Create(ctx context.Context, userID, viewID string, st *board.State) error {
	data, err := sonic.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	return r.redis.Set(ctx, viewKey(userID, viewID), data, r.ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, userID, viewID string) (*board.State, error) {
	key := viewKey(userID, viewID)
	st, err := r.get(ctx, r.redis, key)
	if err != nil {
		return nil, err
	}
	if r.ttl > 0 {
		_ = r.redis.Expire(ctx, key, r.ttl).Err()
	}
	return st, nil
}

// Update applies fn inside an optimistic transaction. When another writer
// changes the view first the update is retried against the fresh state.
func (r *RedisStore) Update(ctx context.Context, userID, viewID string, fn func(*board.State) error) (*board.State, error) {
	key := viewKey(userID, viewID)
	var result *board.State
	txf := func(tx *redis.Tx) error {
		st, err := r.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
		data, err := sonic.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode view: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err == nil {
			result = st
		}
		return err
	}

	for i := 0; i < r.retries; i++ {
		err := r.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, ErrConcurrencyConflict
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) get(ctx context.Context, c stringGetter, key string) (*board.State, error) {
	data, err := c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrViewNotFound
		}
		return nil, err
	}
	var st board.State
	if err := sonic.Unmarshal(data, &st); err != nil {
		// A view that cannot be decoded is unusable; drop it.
		_ = r.redis.Del(ctx, key).Err()
		return nil, fmt.Errorf("%w: %v", ErrViewNotFound, err)
	}
	if err := st.Validate(); err != nil {
		_ = r.redis.Del(ctx, key).Err()
		return nil, fmt.Errorf("%w: %v", ErrViewNotFound, err)
	}
	return &st, nil
}

// Ping checks that Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx).Err()
}
