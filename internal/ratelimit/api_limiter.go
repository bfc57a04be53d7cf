package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/rentflow/rentflow/internal/config"
)

const keyAPIOrg = "api:org:%s"

// APILimiter throttles API requests per organization. A nil limiter (redis
// not configured or limiting disabled) allows everything.
type APILimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

func NewAPILimiter(cfg config.Config, client *redis.Client) *APILimiter {
	if !cfg.RateLimitEnabled || client == nil {
		return nil
	}
	return &APILimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    cfg.RateLimitAPIRate,
		burst:   cfg.RateLimitAPIBurst,
	}
}

func (l *APILimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *APILimiter) Allow(ctx context.Context, orgID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyAPIOrg, strings.TrimSpace(orgID)), l.rate, l.burst)
}
