package favorites

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores favorites in one Redis hash per user key, field id,
// value "1".
type RedisBackend struct {
	rdb *redis.Client
	key string
}

// NewRedisBackend returns a backend for the hash at key.
func NewRedisBackend(rdb *redis.Client, key string) *RedisBackend {
	return &RedisBackend{rdb: rdb, key: key}
}

// Key returns the hash key.
func (b *RedisBackend) Key() string {
	return b.key
}

// Load reads every field of the hash.
func (b *RedisBackend) Load(ctx context.Context) (map[string]bool, error) {
	fields, err := b.rdb.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.key, err)
	}
	ids := make(map[string]bool, len(fields))
	for id := range fields {
		ids[id] = true
	}
	return ids, nil
}

// Store replaces the hash in one transaction.
func (b *RedisBackend) Store(ctx context.Context, ids map[string]bool) error {
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key)
		if len(ids) == 0 {
			return nil
		}
		values := make([]any, 0, len(ids)*2)
		for id := range ids {
			values = append(values, id, "1")
		}
		pipe.HSet(ctx, b.key, values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", b.key, err)
	}
	return nil
}
