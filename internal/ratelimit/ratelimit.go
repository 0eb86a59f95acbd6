// Package ratelimit throttles the location API per client with a token bucket
// kept in redis, so every replica of the service shares one budget.
package ratelimit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucket refills at ARGV[2] tokens per second up to ARGV[1].
// KEYS[1] bucket, ARGV[3] now in ms. Returns 1 when a token was taken.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local max_tokens = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local bucket = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(bucket[1]) or max_tokens
local last = tonumber(bucket[2]) or now
local refill = math.floor(math.max(0, now - last) / 1000 * refill_rate)
if refill > 0 then
  tokens = math.min(max_tokens, tokens + refill)
  last = now
end
local allowed = 0
if tokens > 0 then
  tokens = tokens - 1
  allowed = 1
end
redis.call('HMSET', key, 'tokens', tokens, 'last', last)
redis.call('EXPIRE', key, 60)
return allowed
`)

type LimiterConfig struct {
	RPS   int
	Burst int
}

type RateLimiter struct {
	redis  redis.Scripter
	prefix string
	cfg    LimiterConfig
	now    func() time.Time
}

func New(client redis.Scripter, prefix string, cfg LimiterConfig) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	return &RateLimiter{redis: client, prefix: prefix, cfg: cfg, now: time.Now}
}

// Allow takes one token from the bucket for key.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := rl.now().UnixMilli()
	res, err := tokenBucket.Run(ctx, rl.redis, []string{rl.prefix + ":" + key}, rl.cfg.Burst, rl.cfg.RPS, now).Int64()
	if err != nil {
		return false, err
	}
	slog.Debug("token bucket", "key", key, "allowed", res, "burst", rl.cfg.Burst, "rps", rl.cfg.RPS)
	return res == 1, nil
}

// Middleware answers 429 once the caller's bucket is empty. When redis is
// unreachable requests pass through; the limiter must not take the API down.
func (rl *RateLimiter) Middleware(keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := rl.Allow(r.Context(), keyFunc(r))
			if err != nil {
				slog.Error("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg, "code": status})
}

// KeyByIP keys buckets by the client address.
func KeyByIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
