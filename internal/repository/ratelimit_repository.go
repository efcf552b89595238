package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RateLimitRepository persists per-minute request counters in the
// rate_limit_windows table. It implements ratelimit.WindowStore.
type RateLimitRepository struct {
	pool *pgxpool.Pool
}

func NewRateLimitRepository(pool *pgxpool.Pool) *RateLimitRepository {
	return &RateLimitRepository{pool: pool}
}

// WindowCounts reads the counters for the current and previous minute
// buckets in one round trip.
func (r *RateLimitRepository) WindowCounts(ctx context.Context, apiKeyID string, cur, prev time.Time) (curCount, prevCount int, err error) {
	const query = `
		SELECT
			COALESCE(SUM(request_count) FILTER (WHERE window_start = $2), 0)::INTEGER,
			COALESCE(SUM(request_count) FILTER (WHERE window_start = $3), 0)::INTEGER
		FROM rate_limit_windows
		WHERE api_key_id = $1 AND window_start IN ($2, $3)
	`
	if err := r.pool.QueryRow(ctx, query, apiKeyID, cur, prev).Scan(&curCount, &prevCount); err != nil {
		return 0, 0, fmt.Errorf("query rate windows: %w", err)
	}
	return curCount, prevCount, nil
}

// Increment bumps the current window's counter atomically
// (insert-if-absent, else +1).
func (r *RateLimitRepository) Increment(ctx context.Context, apiKeyID string, windowStart time.Time) error {
	const query = `
		INSERT INTO rate_limit_windows (api_key_id, window_start, request_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (api_key_id, window_start) DO UPDATE
		SET request_count = rate_limit_windows.request_count + 1
	`
	if _, err := r.pool.Exec(ctx, query, apiKeyID, windowStart); err != nil {
		return fmt.Errorf("increment rate window: %w", err)
	}
	return nil
}

// Cleanup removes windows old enough to be irrelevant to the two-window
// query. Anything past two minutes is eligible.
func (r *RateLimitRepository) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM rate_limit_windows WHERE window_start < NOW() - $1::INTERVAL`,
		olderThan.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
