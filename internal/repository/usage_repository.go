package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rimagic/api/internal/ids"
	"rimagic/api/internal/models"
)

type UsageRepository struct {
	pool *pgxpool.Pool
}

func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Log appends one usage row and bumps the monthly aggregate. Both writes are
// best-effort from the request's point of view; the recorder logs failures.
// Transient errors get a single retry with a short backoff.
func (r *UsageRepository) Log(ctx context.Context, entry models.UsageLog, quota int) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}

	const query = `
		INSERT INTO usage_logs (
			id, api_key_id, endpoint, method, template_id,
			status_code, response_time_ms, error_code,
			ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::inet, $10, NOW())
	`

	err := withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, query,
			entry.ID,
			entry.APIKeyID,
			entry.Endpoint,
			entry.Method,
			entry.TemplateID,
			entry.StatusCode,
			entry.ResponseTimeMs,
			entry.ErrorCode,
			entry.IPAddress,
			entry.UserAgent,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}

	success := entry.StatusCode >= 200 && entry.StatusCode < 400
	return r.IncrementMonthly(ctx, entry.APIKeyID, success, quota)
}

// IncrementMonthly applies the quota arithmetic atomically:
// billable = min(total, quota), overage = max(0, total - quota).
func (r *UsageRepository) IncrementMonthly(ctx context.Context, apiKeyID string, success bool, quota int) error {
	yearMonth := models.YearMonth(time.Now())

	const query = `
		INSERT INTO monthly_usage (
			api_key_id, year_month, total_requests,
			successful_requests, failed_requests,
			billable_requests, overage_requests, updated_at
		) VALUES (
			$1, $2, 1,
			CASE WHEN $3 THEN 1 ELSE 0 END,
			CASE WHEN $3 THEN 0 ELSE 1 END,
			LEAST(1, $4), GREATEST(1 - $4, 0), NOW()
		)
		ON CONFLICT (api_key_id, year_month) DO UPDATE SET
			total_requests      = monthly_usage.total_requests + 1,
			successful_requests = monthly_usage.successful_requests + CASE WHEN $3 THEN 1 ELSE 0 END,
			failed_requests     = monthly_usage.failed_requests + CASE WHEN $3 THEN 0 ELSE 1 END,
			billable_requests   = LEAST(monthly_usage.total_requests + 1, $4),
			overage_requests    = GREATEST(monthly_usage.total_requests + 1 - $4, 0),
			updated_at          = NOW()
	`

	err := withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, query, apiKeyID, yearMonth, success, quota)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert monthly usage: %w", err)
	}
	return nil
}

// CurrentMonth reads this month's aggregate, returning zeros when the key
// has not been used yet.
func (r *UsageRepository) CurrentMonth(ctx context.Context, apiKeyID string) (models.MonthlyUsage, error) {
	yearMonth := models.YearMonth(time.Now())

	const query = `
		SELECT year_month, total_requests, successful_requests, failed_requests,
		       billable_requests, overage_requests
		FROM monthly_usage
		WHERE api_key_id = $1 AND year_month = $2
	`

	rows, err := r.pool.Query(ctx, query, apiKeyID, yearMonth)
	if err != nil {
		return models.MonthlyUsage{}, fmt.Errorf("query monthly usage: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.MonthlyUsage{}, err
		}
		return models.MonthlyUsage{YearMonth: yearMonth}, nil
	}

	var usage models.MonthlyUsage
	if err := rows.Scan(
		&usage.YearMonth,
		&usage.Total,
		&usage.Success,
		&usage.Failed,
		&usage.Billable,
		&usage.Overage,
	); err != nil {
		return models.MonthlyUsage{}, err
	}
	return usage, nil
}

// Stats assembles the usage summary surfaced by the API.
func (r *UsageRepository) Stats(ctx context.Context, apiKeyID string, quota int) (models.UsageStats, error) {
	current, err := r.CurrentMonth(ctx, apiKeyID)
	if err != nil {
		return models.UsageStats{}, err
	}

	remaining := quota - current.Total
	if remaining < 0 {
		remaining = 0
	}
	percentage := 0.0
	if quota > 0 {
		percentage = float64(current.Total) / float64(quota) * 100
		if percentage > 100 {
			percentage = 100
		}
	}

	return models.UsageStats{
		APIKeyID:            apiKeyID,
		CurrentMonth:        current,
		Quota:               quota,
		QuotaRemaining:      remaining,
		QuotaPercentageUsed: percentage,
	}, nil
}

// History returns up to months of monthly aggregates, newest first.
func (r *UsageRepository) History(ctx context.Context, apiKeyID string, months int) ([]models.MonthlyUsage, error) {
	const query = `
		SELECT year_month, total_requests, successful_requests, failed_requests,
		       billable_requests, overage_requests
		FROM monthly_usage
		WHERE api_key_id = $1
		ORDER BY year_month DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, apiKeyID, months)
	if err != nil {
		return nil, fmt.Errorf("query usage history: %w", err)
	}
	defer rows.Close()

	var out []models.MonthlyUsage
	for rows.Next() {
		var usage models.MonthlyUsage
		if err := rows.Scan(
			&usage.YearMonth,
			&usage.Total,
			&usage.Success,
			&usage.Failed,
			&usage.Billable,
			&usage.Overage,
		); err != nil {
			return nil, err
		}
		out = append(out, usage)
	}
	return out, rows.Err()
}

// HasQuota reports whether the key is still under its monthly quota.
func (r *UsageRepository) HasQuota(ctx context.Context, apiKeyID string, quota int) (bool, error) {
	current, err := r.CurrentMonth(ctx, apiKeyID)
	if err != nil {
		return false, err
	}
	return current.Total < quota, nil
}

// CleanupLogs deletes usage rows past the retention horizon.
func (r *UsageRepository) CleanupLogs(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM usage_logs WHERE created_at < NOW() - ($1 || ' days')::INTERVAL`,
		fmt.Sprint(retentionDays))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// withRetry runs fn with a single retry after a short backoff. Only worth it
// for transient infrastructure blips; anything else fails identically twice.
func withRetry(ctx context.Context, fn func() error) error {
	if err := fn(); err != nil {
		select {
		case <-ctx.Done():
			return err
		case <-time.After(100 * time.Millisecond):
		}
		return fn()
	}
	return nil
}
