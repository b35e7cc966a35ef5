package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := do(r, http.MethodGet, "/", nil)
	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())

	w = do(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("kaput") })

	w := do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":50000,"message":"internal error","data":null}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	do(r, http.MethodGet, "/ok", nil)
	do(r, http.MethodGet, "/missing", nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "/missing", entries[1].ContextMap()["path"])
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allow, s.err
}

func limitedRouter(l Limiter, limit int) *gin.Engine {
	r := gin.New()
	r.POST("/x", RateLimit(l, "x", limit, time.Minute, "slow down", zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestRateLimit(t *testing.T) {
	deny := &stubLimiter{allow: false}
	w := do(limitedRouter(deny, 5), http.MethodPost, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"code":42900,"message":"slow down","data":null}`, w.Body.String())
	require.Len(t, deny.keys, 1)
	assert.Equal(t, "x:192.0.2.1", deny.keys[0])

	broken := &stubLimiter{err: errors.New("redis down")}
	w = do(limitedRouter(broken, 5), http.MethodPost, "/x", nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	off := &stubLimiter{}
	w = do(limitedRouter(off, 0), http.MethodPost, "/x", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, off.keys)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "a", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a", 3, time.Hour)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b", 3, time.Hour)
	assert.True(t, ok)
}

func TestMemoryLimiter_DropsIdleClients(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		ok, err := l.Allow(ctx, fmt.Sprintf("ip-%d", i), 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 100, l.Len())

	// a client still inside its window keeps its spent bucket
	now = now.Add(30 * time.Second)
	for i := 0; i < 2; i++ {
		_, _ = l.Allow(ctx, "busy", 2, time.Minute)
	}
	ok, _ := l.Allow(ctx, "busy", 2, time.Minute)
	assert.False(t, ok)

	now = now.Add(40 * time.Second)
	ok, _ = l.Allow(ctx, "busy", 2, time.Minute)
	assert.True(t, ok, "one token refilled")
	assert.Equal(t, 1, l.Len(), "idle clients are dropped")
	ok, _ = l.Allow(ctx, "busy", 2, time.Minute)
	assert.False(t, ok, "an active bucket is not reset by the sweep")
}
