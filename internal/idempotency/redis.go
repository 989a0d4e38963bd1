package idempotency

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BarkinBalci/channel-attribution-service/internal/config"
)

const keyPrefix = "touchpoint:seen:"

// Store is the subset of the Redis client used for deduplication
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisDeduplicator remembers touchpoint IDs in Valkey/Redis so redelivered
// queue messages are written only once
type RedisDeduplicator struct {
	store    Store
	ttl      time.Duration
	failOpen bool
	log      *zap.Logger
}

// NewRedisClient creates a Redis client for the configured Valkey instance
func NewRedisClient(cfg config.Valkey) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// NewRedisDeduplicator creates a deduplicator over the given store
func NewRedisDeduplicator(store Store, cfg config.Valkey, log *zap.Logger) *RedisDeduplicator {
	return &RedisDeduplicator{
		store:    store,
		ttl:      time.Duration(cfg.IdempotencyTTLHours) * time.Hour,
		failOpen: cfg.IdempotencyFailOpen,
		log:      log,
	}
}

// Seen marks id as seen and reports whether it had already been marked.
// When the store is unavailable a fail-open deduplicator reports the id as
// unseen; otherwise the error is returned.
func (d *RedisDeduplicator) Seen(ctx context.Context, id string) (bool, error) {
	created, err := d.store.SetNX(ctx, keyPrefix+id, 1, d.ttl).Result()
	if err != nil {
		if d.failOpen {
			d.log.Warn("Idempotency check failed, accepting touchpoint",
				zap.String("touchpoint_id", id),
				zap.Error(err))
			return false, nil
		}
		return false, fmt.Errorf("failed to check touchpoint id: %w", err)
	}
	return !created, nil
}

// Release forgets ids so a later redelivery is accepted again
func (d *RedisDeduplicator) Release(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = keyPrefix + id
	}

	if err := d.store.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to release touchpoint ids: %w", err)
	}
	return nil
}
