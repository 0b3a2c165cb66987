package mw

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

type RateLimitConfig struct {
	Burst         int           // bucket capacity per user
	RefillPerMin  int           // tokens per user per minute
	SweepInterval time.Duration // how often idle buckets are dropped
	IdleTTL       time.Duration // bucket lifetime without traffic
}

type bucket struct {
	tokens   float64
	lastRef  time.Time
	lastSeen time.Time
}

type userLimiter struct {
	cfg      RateLimitConfig
	rate     float64
	capacity float64

	mu        sync.Mutex
	buckets   map[int64]*bucket
	lastSweep time.Time
}

func newUserLimiter(cfg RateLimitConfig) *userLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerMin < 1 {
		cfg.RefillPerMin = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	return &userLimiter{
		cfg:       cfg,
		rate:      float64(cfg.RefillPerMin) / 60.0,
		capacity:  float64(cfg.Burst),
		buckets:   make(map[int64]*bucket),
		lastSweep: time.Now(),
	}
}

func (l *userLimiter) allow(userID int64, now time.Time) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
		for id, b := range l.buckets {
			if now.Sub(b.lastSeen) > l.cfg.IdleTTL {
				delete(l.buckets, id)
			}
		}
		l.lastSweep = now
	}

	b := l.buckets[userID]
	if b == nil {
		b = &bucket{tokens: l.capacity, lastRef: now}
		l.buckets[userID] = b
	}

	if elapsed := now.Sub(b.lastRef).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)
		b.lastRef = now
	}
	b.lastSeen = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true, 0
	}

	retryAfter := int(math.Ceil((1.0 - b.tokens) / l.rate))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter
}

// RateLimitPerUser throttles requests per authenticated user with a
// token bucket. Must run after Auth. Unauthenticated requests pass
// through; Auth rejects them anyway.
func RateLimitPerUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newUserLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ok, retryAfter := l.allow(userID, time.Now())
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
