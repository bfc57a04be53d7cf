package ratelimit

import (
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/rentflow/rentflow/internal/config"
	"go.uber.org/fx"
)

// NewRedisClient returns the shared redis handle, or nil when no address is
// configured. Consumers treat a nil client as "feature off".
func NewRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewAPILimiter),
	fx.Provide(NewLocker),
)
