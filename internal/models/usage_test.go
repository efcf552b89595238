package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestYearMonth(t *testing.T) {
	assert.Equal(t, "2026-08", YearMonth(time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)))

	// Local timestamps bucket by their UTC month.
	tz := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2026-07", YearMonth(time.Date(2026, 8, 1, 5, 0, 0, 0, tz)))
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierFree, ParseTier("free"))
	assert.Equal(t, TierStarter, ParseTier("starter"))
	assert.Equal(t, TierPro, ParseTier("pro"))
	assert.Equal(t, TierEnterprise, ParseTier("enterprise"))
	assert.Equal(t, TierFree, ParseTier("platinum"), "unknown tiers fall back to free")
	assert.Equal(t, TierFree, ParseTier(""))
}

func TestTierDefaults(t *testing.T) {
	assert.Equal(t, 10, TierFree.DefaultRateLimit())
	assert.Equal(t, 1000, TierEnterprise.DefaultRateLimit())
	assert.Equal(t, 100, TierFree.DefaultMonthlyQuota())
	assert.Equal(t, 10000, TierPro.DefaultMonthlyQuota())
}

func TestAPIKeyValid(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, APIKey{IsActive: true}.Valid(now))
	assert.False(t, APIKey{IsActive: false}.Valid(now))
	assert.True(t, APIKey{IsActive: true, ExpiresAt: &future}.Valid(now))
	assert.False(t, APIKey{IsActive: true, ExpiresAt: &past}.Valid(now))
	assert.False(t, APIKey{IsActive: true, ExpiresAt: &now}.Valid(now), "expiry is exclusive")
}

func TestPrintAreaContains(t *testing.T) {
	area := PrintArea{X: 10, Y: 10, Width: 20, Height: 20}

	assert.True(t, area.Contains(10, 10))
	assert.True(t, area.Contains(29, 29))
	assert.False(t, area.Contains(30, 29), "right edge is exclusive")
	assert.False(t, area.Contains(9, 15))
	assert.False(t, area.Contains(15, 30))
}
