package models

import "time"

type Tier string

const (
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierStarter, TierPro, TierEnterprise:
		return Tier(s)
	default:
		return TierFree
	}
}

func (t Tier) DefaultRateLimit() int {
	switch t {
	case TierStarter:
		return 30
	case TierPro:
		return 100
	case TierEnterprise:
		return 1000
	default:
		return 10
	}
}

func (t Tier) DefaultMonthlyQuota() int {
	switch t {
	case TierStarter:
		return 1000
	case TierPro:
		return 10000
	case TierEnterprise:
		return 1000000
	default:
		return 100
	}
}

// APIKey is the stored credential record. The cleartext key is never
// persisted; only its first 12 characters (prefix) and SHA-256 digest are.
type APIKey struct {
	ID                 string     `json:"id"`
	KeyPrefix          string     `json:"key_prefix"`
	KeyHash            string     `json:"-"`
	Name               string     `json:"name"`
	OwnerEmail         string     `json:"owner_email"`
	Tier               Tier       `json:"tier"`
	RateLimitPerMinute int        `json:"rate_limit_per_minute"`
	MonthlyQuota       int        `json:"monthly_quota"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the credential may authenticate right now.
func (k APIKey) Valid(now time.Time) bool {
	if !k.IsActive {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}
