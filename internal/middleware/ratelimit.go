package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/loctrack/field-tracker/internal/models"
)

// OwnerRateLimiter limits ingest requests per owner.
type OwnerRateLimiter interface {
	Middleware(next http.Handler) http.Handler
}

// RedisRateLimiter is a per-owner token bucket on Redis: INCR plus a short
// EXPIRE per one-second window, with a burst allowance.
type RedisRateLimiter struct {
	Rdb   *redis.Client
	RPS   int
	Burst int
}

// NewRedisRateLimiter creates a Redis-backed rate limiter.
func NewRedisRateLimiter(rdb *redis.Client, rps, burst int) *RedisRateLimiter {
	return &RedisRateLimiter{Rdb: rdb, RPS: rps, Burst: burst}
}

func (rl *RedisRateLimiter) allow(r *http.Request, ownerID string) bool {
	now := time.Now().Unix()
	key := "rl:" + ownerID + ":" + strconv.FormatInt(now, 10)
	cnt, err := rl.Rdb.Incr(r.Context(), key).Result()
	if err != nil {
		return true // fail open
	}
	_ = rl.Rdb.Expire(r.Context(), key, 2*time.Second).Err()
	return int(cnt) <= rl.RPS+rl.Burst
}

// Middleware rejects requests exceeding the per-owner budget. Must run after
// Authenticate so the principal is on the context.
func (rl *RedisRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(UserContextKey).(*models.Claims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "user context not found")
			return
		}
		if !rl.allow(r, claims.UserID) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MemoryRateLimiter is the fallback when no Redis is configured. It keeps a
// per-owner timestamp window in memory.
type MemoryRateLimiter struct {
	maxRequests   int
	windowSeconds int

	requests map[string][]int64
	mu       sync.Mutex
}

// NewMemoryRateLimiter creates an in-memory rate limiter.
func NewMemoryRateLimiter(maxRequests, windowSeconds int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		maxRequests:   maxRequests,
		windowSeconds: windowSeconds,
		requests:      make(map[string][]int64),
	}
}

// Allow reports whether the owner is within budget and records the request.
func (m *MemoryRateLimiter) Allow(ownerID string) bool {
	now := time.Now().Unix()
	windowStart := now - int64(m.windowSeconds)

	m.mu.Lock()
	defer m.mu.Unlock()

	if timestamps, exists := m.requests[ownerID]; exists {
		var valid []int64
		for _, ts := range timestamps {
			if ts >= windowStart {
				valid = append(valid, ts)
			}
		}
		m.requests[ownerID] = valid
	}

	if len(m.requests[ownerID]) >= m.maxRequests {
		return false
	}

	m.requests[ownerID] = append(m.requests[ownerID], now)
	return true
}

// Middleware rejects requests exceeding the per-owner budget.
func (m *MemoryRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(UserContextKey).(*models.Claims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "user context not found")
			return
		}
		if !m.Allow(claims.UserID) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
