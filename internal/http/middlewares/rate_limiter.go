package middleware

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "task-tracker.com/task-tracker/internal/errors"
)

// FixedWindowLimiter counts requests per client IP in fixed windows.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	count int
	start time.Time
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow records a request for key and reports whether it fits in the current window.
func (l *FixedWindowLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		b = &bucket{start: now}
		l.buckets[key] = b
	}

	if b.count >= l.limit {
		return false
	}

	b.count++
	return true
}

// sweep drops buckets whose window has ended, at most once per window.
func (l *FixedWindowLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// RateLimiter rejects requests over limit per window and client IP. A
// non-positive limit disables it.
func RateLimiter(limit int, window time.Duration) echo.MiddlewareFunc {
	limiter := NewFixedWindowLimiter(limit, window)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limit <= 0 {
				return next(c)
			}
			if !limiter.Allow(c.RealIP()) {
				return apperrors.ErrRateLimited
			}
			return next(c)
		}
	}
}
