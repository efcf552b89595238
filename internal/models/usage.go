package models

import "time"

// UsageLog is one append-only row per governed request.
type UsageLog struct {
	ID             string    `json:"id"`
	APIKeyID       string    `json:"api_key_id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	TemplateID     *string   `json:"template_id,omitempty"`
	StatusCode     int       `json:"status_code"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorCode      *string   `json:"error_code,omitempty"`
	IPAddress      *string   `json:"ip_address,omitempty"`
	UserAgent      *string   `json:"user_agent,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MonthlyUsage aggregates per (api key, YYYY-MM).
// Invariants: Billable == min(Total, quota), Overage == max(0, Total-quota),
// Total == Success + Failed.
type MonthlyUsage struct {
	YearMonth string `json:"year_month"`
	Total     int    `json:"total_requests"`
	Success   int    `json:"successful_requests"`
	Failed    int    `json:"failed_requests"`
	Billable  int    `json:"billable_requests"`
	Overage   int    `json:"overage_requests"`
}

// UsageStats is the per-key summary surfaced by GET /api/v1/usage.
type UsageStats struct {
	APIKeyID            string       `json:"api_key_id"`
	CurrentMonth        MonthlyUsage `json:"current_month"`
	Quota               int          `json:"quota"`
	QuotaRemaining      int          `json:"quota_remaining"`
	QuotaPercentageUsed float64      `json:"quota_percentage_used"`
}

// YearMonth formats a timestamp as the monthly_usage bucket key.
func YearMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}
