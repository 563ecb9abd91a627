// Package auth implements the shared-PIN gate: PIN verification, signed
// session tokens and the per-client attempt limiter.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

// LimiterConfig bounds PIN attempts per client within a window.
type LimiterConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultLimiterConfig returns the default limits.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{MaxAttempts: 5, Window: 15 * time.Minute}
}

// AttemptResult is the outcome of counting one attempt.
type AttemptResult struct {
	Allowed    bool
	Count      int
	RetryAfter time.Duration
}

// AttemptLimiter counts PIN attempts in Redis with INCR and a TTL set on the
// first hit of each window. A nil Redis client disables limiting.
type AttemptLimiter struct {
	redis  *redis.Client
	config LimiterConfig
	logger *logging.Logger
}

// NewAttemptLimiter creates a limiter.
func NewAttemptLimiter(client *redis.Client, config LimiterConfig, logger *logging.Logger) *AttemptLimiter {
	if logger == nil {
		logger = logging.Default()
	}
	def := DefaultLimiterConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	return &AttemptLimiter{redis: client, config: config, logger: logger}
}

func attemptKey(clientKey string) string {
	return fmt.Sprintf("pin:attempts:%s", clientKey)
}

// Hit records an attempt for clientKey and reports whether it is within the
// limit. Redis failures are logged and the attempt is allowed.
func (l *AttemptLimiter) Hit(ctx context.Context, clientKey string) AttemptResult {
	if l == nil || l.redis == nil {
		return AttemptResult{Allowed: true}
	}
	key := attemptKey(clientKey)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Error("pin attempt limiter unavailable", "error", err, "key", key)
		return AttemptResult{Allowed: true}
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			l.logger.Error("pin attempt limiter expire failed", "error", err, "key", key)
		}
	}

	res := AttemptResult{Allowed: int(count) <= l.config.MaxAttempts, Count: int(count)}
	if !res.Allowed {
		ttl, err := l.redis.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = l.config.Window
		}
		res.RetryAfter = ttl
		l.logger.Warn("pin attempts exceeded", "client", clientKey, "count", count, "max", l.config.MaxAttempts)
	}
	return res
}

// Reset clears the counter after a successful login.
func (l *AttemptLimiter) Reset(ctx context.Context, clientKey string) {
	if l == nil || l.redis == nil {
		return
	}
	if err := l.redis.Del(ctx, attemptKey(clientKey)).Err(); err != nil {
		l.logger.Error("pin attempt reset failed", "error", err, "client", clientKey)
	}
}
