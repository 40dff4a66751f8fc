package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// RateLimitRepository fronts the rate_limit_hit SQL function, the store's
// atomic check-and-increment for a named bucket within a window.
type RateLimitRepository struct {
	db *sqlx.DB
}

func NewRateLimitRepository(db *sqlx.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

func (r *RateLimitRepository) Allow(ctx context.Context, bucket string, limit int, windowSeconds int) (bool, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return false, fmt.Errorf("rate limit bucket is required")
	}
	if limit <= 0 || windowSeconds <= 0 {
		return true, nil
	}

	var allowed bool
	err := r.db.GetContext(ctx, &allowed,
		"SELECT rate_limit_hit($1, $2, $3)",
		bucket, limit, windowSeconds,
	)
	if err != nil {
		return false, fmt.Errorf("rate limit check bucket=%s: %w", bucket, err)
	}
	return allowed, nil
}
