package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Per-second burst request rates. These protect the service from tight
// client loops; the monthly quota is enforced separately by the usage
// tracker.
const (
	userRequestsPerSecond = 5
	ipRequestsPerSecond   = 10
)

// RateLimiter manages burst rate limiting using token bucket algorithm
type RateLimiter struct {
	mu          sync.RWMutex
	userBuckets map[string]*tokenBucket
	ipBuckets   map[string]*tokenBucket
}

// tokenBucket implements the token bucket algorithm for rate limiting
type tokenBucket struct {
	tokens    float64
	lastTime  time.Time
	rateLimit float64 // tokens per second
}

// NewRateLimiter creates a new RateLimiter instance
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		userBuckets: make(map[string]*tokenBucket),
		ipBuckets:   make(map[string]*tokenBucket),
	}

	// Start cleanup goroutine to remove stale buckets
	go rl.cleanup()

	return rl
}

// cleanup periodically removes stale buckets to prevent memory leaks
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for id, bucket := range rl.userBuckets {
			// Remove buckets that haven't been used in the last hour
			if now.Sub(bucket.lastTime) > time.Hour {
				delete(rl.userBuckets, id)
			}
		}
		for ip, bucket := range rl.ipBuckets {
			if now.Sub(bucket.lastTime) > time.Hour {
				delete(rl.ipBuckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// UserMiddleware returns a huma middleware that checks per-user burst
// limits. It must run after authentication, which puts the principal
// in the context.
func (rl *RateLimiter) UserMiddleware() func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		principal, ok := GetPrincipal(ctx.Context())
		if !ok {
			// Principal should have been set by auth middleware
			slog.Error("principal not found in context")
			ctx.SetStatus(http.StatusInternalServerError)
			ctx.SetHeader("Content-Type", "application/json")
			_, _ = ctx.BodyWriter().Write([]byte(`{"error":"internal server error"}`))
			return
		}

		if !rl.allow(rl.userBuckets, principal.UserID, userRequestsPerSecond) {
			ctx.SetStatus(http.StatusTooManyRequests)
			ctx.SetHeader("Content-Type", "application/json")
			ctx.SetHeader("Retry-After", "1")
			_, _ = ctx.BodyWriter().Write([]byte(fmt.Sprintf(
				`{"error":"rate limit exceeded: %d requests per second","code":"RATE_LIMIT_EXCEEDED"}`,
				userRequestsPerSecond)))
			return
		}

		next(ctx)
	}
}

// IPMiddleware creates rate limiting middleware based on client IP.
// Used on unauthenticated endpoints such as the billing webhook.
func (rl *RateLimiter) IPMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
				ip = strings.Split(forwarded, ",")[0]
			}

			if !rl.allow(rl.ipBuckets, ip, ipRequestsPerSecond) {
				WriteError(w, fmt.Errorf("rate limit exceeded"), http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// allow checks and consumes one token from the bucket for key,
// creating the bucket at full capacity on first use.
func (rl *RateLimiter) allow(buckets map[string]*tokenBucket, key string, rateLimit float64) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := buckets[key]
	if !exists {
		bucket = &tokenBucket{
			tokens:    rateLimit, // Start with full bucket
			lastTime:  now,
			rateLimit: rateLimit,
		}
		buckets[key] = bucket
	}

	// Refill based on time elapsed, capped at 1 second worth of requests
	elapsed := now.Sub(bucket.lastTime).Seconds()
	bucket.tokens += elapsed * bucket.rateLimit
	if bucket.tokens > bucket.rateLimit {
		bucket.tokens = bucket.rateLimit
	}
	bucket.lastTime = now

	if bucket.tokens >= 1.0 {
		bucket.tokens -= 1.0
		return true
	}

	return false
}
