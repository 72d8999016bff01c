package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisUsageSource reads monthly pageview counters from Redis. Counters are
// maintained by the ingestion pipeline through Record; one key per user per
// calendar month.
type RedisUsageSource struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// usageKeyTTL keeps two full billing periods of counters around so a
// suggestion computed right after month rollover still has data behind it.
const usageKeyTTL = 62 * 24 * time.Hour

// NewRedisUsageSource creates a usage source backed by the given Redis client.
// Panics if the client is nil to fail fast during initialization.
func NewRedisUsageSource(client *redis.Client, keyPrefix string) *RedisUsageSource {
	if client == nil {
		panic("billing: redis client is required")
	}
	if keyPrefix == "" {
		keyPrefix = "billing"
	}
	return &RedisUsageSource{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// MonthlyPageviews returns the pageview count for the current calendar month.
// A missing counter reads as zero usage, not an error.
func (s *RedisUsageSource) MonthlyPageviews(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.client.Get(ctx, s.key(userID, s.now())).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read pageview counter: %w", err)
	}
	return n, nil
}

// Record adds n pageviews to the user's counter for the current month.
func (s *RedisUsageSource) Record(ctx context.Context, userID uuid.UUID, n int64) error {
	key := s.key(userID, s.now())

	pipe := s.client.TxPipeline()
	pipe.IncrBy(ctx, key, n)
	pipe.Expire(ctx, key, usageKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record pageviews: %w", err)
	}
	return nil
}

func (s *RedisUsageSource) key(userID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s:pageviews:%s:%s", s.keyPrefix, userID, now.UTC().Format("2006-01"))
}
