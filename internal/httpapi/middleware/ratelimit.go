package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/prompt-lab/internal/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter counts one hit for key and reports whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit allows limit requests per window per client IP. A limiter error
// lets the request through.
func RateLimit(l Limiter, name string, limit int, window time.Duration, msg string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		ok, err := l.Allow(c.Request.Context(), name+":"+c.ClientIP(), limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable",
				zap.String("limiter", name),
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !ok {
			common.Abort(c, http.StatusTooManyRequests, 42900, msg)
			return
		}
		c.Next()
	}
}

// MemoryLimiter is a per-process Limiter backed by token buckets, for
// single-instance deployments without Redis. Buckets left idle for a whole
// window are full again, so they are dropped.
type MemoryLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	lim    *rate.Limiter
	window time.Duration
	last   time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= window {
		m.sweep(now)
	}
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit), window: window}
		m.buckets[key] = b
	}
	b.last = now
	return b.lim.AllowN(now, 1), nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.last) >= b.window {
			delete(m.buckets, k)
		}
	}
	m.lastSweep = now
}

// Len reports how many clients are being tracked.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
