package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"rimagic/api/internal/models"
	"rimagic/api/internal/security"
)

// Authentication failures. All of them answer 401 to the caller; the
// distinction exists for logs only.
var (
	ErrKeyMalformed = errors.New("api key is malformed")
	ErrKeyUnknown   = errors.New("api key is unknown")
	ErrKeyRevoked   = errors.New("api key is revoked")
	ErrKeyExpired   = errors.New("api key is expired")
)

const apiKeyColumns = `
	id, key_prefix, key_hash, name, owner_email, tier,
	rate_limit_per_minute, monthly_quota, is_active,
	created_at, updated_at, last_used_at, expires_at
`

type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// Authenticate resolves a presented cleartext key to its stored record.
// Lookup is by indexed prefix; the digest comparison is constant-time.
func (r *APIKeyRepository) Authenticate(ctx context.Context, presented string) (models.APIKey, error) {
	if !security.ValidFormat(presented) {
		return models.APIKey{}, ErrKeyMalformed
	}

	prefix := security.Prefix(presented)
	digest := security.Digest(presented)

	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE key_prefix = $1`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return models.APIKey{}, fmt.Errorf("query api keys: %w", err)
	}
	defer rows.Close()

	var match *models.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return models.APIKey{}, err
		}
		if security.DigestEqual(key.KeyHash, digest) {
			match = &key
		}
	}
	if err := rows.Err(); err != nil {
		return models.APIKey{}, fmt.Errorf("scan api keys: %w", err)
	}

	if match == nil {
		return models.APIKey{}, ErrKeyUnknown
	}
	if !match.IsActive {
		return models.APIKey{}, ErrKeyRevoked
	}
	if match.ExpiresAt != nil && !match.ExpiresAt.After(time.Now()) {
		return models.APIKey{}, ErrKeyExpired
	}
	return *match, nil
}

// Touch updates last_used_at. Called asynchronously after authentication;
// failures are the caller's to log, never to surface.
func (r *APIKeyRepository) Touch(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (models.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return models.APIKey{}, fmt.Errorf("query api key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.APIKey{}, err
		}
		return models.APIKey{}, ErrKeyUnknown
	}
	return scanAPIKey(rows)
}

// CreateInput describes a key to mint.
type CreateInput struct {
	Name               string
	OwnerEmail         string
	Tier               models.Tier
	RateLimitPerMinute int
	MonthlyQuota       int
	ExpiresAt          *time.Time
}

// Create mints a new key and returns the cleartext exactly once alongside
// the stored record.
func (r *APIKeyRepository) Create(ctx context.Context, in CreateInput) (models.APIKey, string, error) {
	cleartext, err := security.GenerateKey()
	if err != nil {
		return models.APIKey{}, "", err
	}

	rateLimit := in.RateLimitPerMinute
	if rateLimit <= 0 {
		rateLimit = in.Tier.DefaultRateLimit()
	}
	quota := in.MonthlyQuota
	if quota <= 0 {
		quota = in.Tier.DefaultMonthlyQuota()
	}

	key := models.APIKey{
		ID:                 uuid.NewString(),
		KeyPrefix:          security.Prefix(cleartext),
		KeyHash:            security.Digest(cleartext),
		Name:               in.Name,
		OwnerEmail:         in.OwnerEmail,
		Tier:               in.Tier,
		RateLimitPerMinute: rateLimit,
		MonthlyQuota:       quota,
		IsActive:           true,
		ExpiresAt:          in.ExpiresAt,
	}

	const query = `
		INSERT INTO api_keys (
			id, key_prefix, key_hash, name, owner_email, tier,
			rate_limit_per_minute, monthly_quota, is_active, expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`
	if _, err := r.pool.Exec(ctx, query,
		key.ID,
		key.KeyPrefix,
		key.KeyHash,
		key.Name,
		key.OwnerEmail,
		key.Tier,
		key.RateLimitPerMinute,
		key.MonthlyQuota,
		key.IsActive,
		key.ExpiresAt,
	); err != nil {
		return models.APIKey{}, "", fmt.Errorf("insert api key: %w", err)
	}

	return key, cleartext, nil
}

// EnsureSetupKey creates a one-shot admin key when the table is empty and
// prints the cleartext once. No key ever ships with the binary.
func (r *APIKeyRepository) EnsureSetupKey(ctx context.Context, log zerolog.Logger) error {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&count); err != nil {
		return fmt.Errorf("count api keys: %w", err)
	}
	if count > 0 {
		return nil
	}

	key, cleartext, err := r.Create(ctx, CreateInput{
		Name:       "setup",
		OwnerEmail: "setup@localhost",
		Tier:       models.TierEnterprise,
	})
	if err != nil {
		return fmt.Errorf("create setup key: %w", err)
	}

	log.Warn().
		Str("key_id", key.ID).
		Str("api_key", cleartext).
		Msg("no api keys found, generated a one-time setup key; it will not be shown again")
	return nil
}

func scanAPIKey(row pgx.Row) (models.APIKey, error) {
	var (
		key  models.APIKey
		tier string
	)
	if err := row.Scan(
		&key.ID,
		&key.KeyPrefix,
		&key.KeyHash,
		&key.Name,
		&key.OwnerEmail,
		&tier,
		&key.RateLimitPerMinute,
		&key.MonthlyQuota,
		&key.IsActive,
		&key.CreatedAt,
		&key.UpdatedAt,
		&key.LastUsedAt,
		&key.ExpiresAt,
	); err != nil {
		return models.APIKey{}, err
	}
	key.Tier = models.ParseTier(tier)
	return key, nil
}
