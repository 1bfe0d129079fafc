// Package dedup short-circuits replayed webhook deliveries before they
// reach the database. The guard is advisory: when Redis is down or absent
// the pipeline proceeds and the unique index on (source, external_uid)
// still blocks the duplicate write.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Guard answers whether a delivery was already processed and records that
// one has been.
type Guard interface {
	Seen(ctx context.Context, source, uid string) (bool, error)
	Mark(ctx context.Context, source, uid string) error
}

// RedisGuard keeps seen-delivery keys in Redis with a TTL.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGuard creates a guard on the given client. Keys expire after ttl.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func key(source, uid string) string {
	return fmt.Sprintf("crm:seen:%s:%s", source, uid)
}

// Seen reports whether the delivery key exists. Deliveries without a uid
// are never considered seen.
func (g *RedisGuard) Seen(ctx context.Context, source, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	n, err := g.client.Exists(ctx, key(source, uid)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the delivery key. SetNX keeps the original TTL window when
// two deliveries race.
func (g *RedisGuard) Mark(ctx context.Context, source, uid string) error {
	if uid == "" {
		return nil
	}
	return g.client.SetNX(ctx, key(source, uid), "1", g.ttl).Err()
}

// Noop is a guard that never remembers anything, for deployments without
// Redis and for tests.
type Noop struct{}

func (Noop) Seen(ctx context.Context, source, uid string) (bool, error) { return false, nil }

func (Noop) Mark(ctx context.Context, source, uid string) error { return nil }
