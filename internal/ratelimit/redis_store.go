package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps window counters in Redis so every replica sees the same
// numbers. Buckets expire on their own; no sweep needed.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func windowKey(apiKeyID string, start time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%d", apiKeyID, start.Unix())
}

func (s *RedisStore) WindowCounts(ctx context.Context, apiKeyID string, cur, prev time.Time) (int, int, error) {
	vals, err := s.client.MGet(ctx, windowKey(apiKeyID, cur), windowKey(apiKeyID, prev)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis mget: %w", err)
	}

	counts := [2]int{}
	for i, v := range vals {
		n, err := parseCount(v)
		if err != nil {
			return 0, 0, fmt.Errorf("rate counter: %w", err)
		}
		counts[i] = n
	}
	return counts[0], counts[1], nil
}

// parseCount reads one MGET result. Missing keys count as zero; anything
// non-numeric is corruption and must not silently read as zero.
func parseCount(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	str, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected value type %T", v)
	}
	n, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *RedisStore) Increment(ctx context.Context, apiKeyID string, windowStart time.Time) error {
	key := windowKey(apiKeyID, windowStart)

	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, key)
	// Two minutes covers the sliding-window lookback.
	pipe.Expire(ctx, key, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	return nil
}
