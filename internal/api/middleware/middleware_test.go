package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartscheduler/backend/internal/api/middleware"
	"github.com/smartscheduler/backend/internal/domain/providers"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *mapCache) DeleteByPrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("wildcard", func(t *testing.T) {
		h := middleware.CORS([]string{"*"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("listed origin is echoed", func(t *testing.T) {
		h := middleware.CORS([]string{"https://app.example"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
		req.Header.Set("Origin", "https://app.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unlisted origin gets no header", func(t *testing.T) {
		h := middleware.CORS([]string{"https://app.example"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		called := false
		h := middleware.CORS([]string{"*"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/bookings", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, called)
	})
}

func TestResponseCache(t *testing.T) {
	cache := newMapCache()
	rc := middleware.NewResponseCache(cache, 60)

	calls := 0
	list := rc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"count":1}`))
	}))

	rec := httptest.NewRecorder()
	list.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers?specialty=cardiology", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	rec = httptest.NewRecorder()
	list.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers?specialty=cardiology", nil))
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
	assert.Equal(t, 1, calls)

	register := rc.Invalidating(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	register.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/admin/providers", nil))
	require.Empty(t, cache.data)

	rec = httptest.NewRecorder()
	list.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers?specialty=cardiology", nil))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, 2, calls)
}

func TestResponseCache_SkipsErrors(t *testing.T) {
	cache := newMapCache()
	rc := middleware.NewResponseCache(cache, 60)

	h := rc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/providers/P9", nil))

	assert.Empty(t, cache.data)
}

func TestResponseCache_Disabled(t *testing.T) {
	rc := middleware.NewResponseCache(nil, 60)
	h := rc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/providers", nil))
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestLoggingMiddleware_PassesThroughStatus(t *testing.T) {
	h := middleware.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func newTestLimiter(t *testing.T, opts middleware.RateLimitOptions) *middleware.RateLimiter {
	t.Helper()
	rl, err := middleware.NewRateLimiter(opts)
	require.NoError(t, err)
	require.NotNil(t, rl)
	t.Cleanup(rl.Close)
	return rl
}

func sendFrom(h http.Handler, remoteAddr string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func created() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func TestRateLimiter(t *testing.T) {
	h := newTestLimiter(t, middleware.RateLimitOptions{RPM: 60, Burst: 2}).Middleware(created())

	assert.Equal(t, http.StatusCreated, sendFrom(h, "10.0.0.1:5555", nil))
	assert.Equal(t, http.StatusCreated, sendFrom(h, "10.0.0.1:5555", nil))
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(h, "10.0.0.1:5555", nil))
	assert.Equal(t, http.StatusCreated, sendFrom(h, "10.0.0.2:5555", nil), "limits are per client")
}

func TestRateLimiter_IgnoresForwardedHeadersFromUntrustedPeer(t *testing.T) {
	rl := newTestLimiter(t, middleware.RateLimitOptions{RPM: 1, Burst: 1, TrustedProxies: []string{"192.168.0.0/16"}})
	h := rl.Middleware(created())

	admitted := 0
	for i := 0; i < 50; i++ {
		code := sendFrom(h, "203.0.113.7:40000", map[string]string{
			"X-Forwarded-For": fmt.Sprintf("10.0.0.%d", i),
			"X-Real-IP":       fmt.Sprintf("10.0.1.%d", i),
		})
		if code == http.StatusCreated {
			admitted++
		}
	}

	assert.Equal(t, 1, admitted)
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_TrustedProxyForwardsClient(t *testing.T) {
	rl := newTestLimiter(t, middleware.RateLimitOptions{RPM: 1, Burst: 1, TrustedProxies: []string{"192.168.0.0/16", "127.0.0.1"}})
	h := rl.Middleware(created())

	// Leftmost entries are client supplied; the hop appended by the proxy wins.
	assert.Equal(t, http.StatusCreated, sendFrom(h, "192.168.1.10:443", map[string]string{"X-Forwarded-For": "1.1.1.1, 198.51.100.4"}))
	assert.Equal(t, http.StatusTooManyRequests, sendFrom(h, "192.168.1.10:443", map[string]string{"X-Forwarded-For": "2.2.2.2, 198.51.100.4"}))
	assert.Equal(t, http.StatusCreated, sendFrom(h, "127.0.0.1:443", map[string]string{"X-Real-IP": "198.51.100.5"}))
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_SweepDropsIdleClients(t *testing.T) {
	rl := newTestLimiter(t, middleware.RateLimitOptions{RPM: 60, Burst: 1, IdleTTL: time.Minute})
	h := rl.Middleware(created())

	sendFrom(h, "10.0.0.1:1", nil)
	sendFrom(h, "10.0.0.2:1", nil)
	require.Equal(t, 2, rl.Len())

	assert.Zero(t, rl.Sweep(time.Now()))
	assert.Equal(t, 2, rl.Sweep(time.Now().Add(2*time.Minute)))
	assert.Zero(t, rl.Len())
}

func TestRateLimiter_RejectsBadTrustedProxy(t *testing.T) {
	_, err := middleware.NewRateLimiter(middleware.RateLimitOptions{RPM: 60, TrustedProxies: []string{"not-a-cidr"}})
	assert.Error(t, err)
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl, err := middleware.NewRateLimiter(middleware.RateLimitOptions{RPM: 0, Burst: 5})
	require.NoError(t, err)
	assert.Nil(t, rl)

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rl.Close()
}

func TestAdminAuth(t *testing.T) {
	h := middleware.AdminAuth("s3cret")(created())

	call := func(header string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/availability/generate", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer wrong"))
	assert.Equal(t, http.StatusUnauthorized, call("s3cret"))
	assert.Equal(t, http.StatusCreated, call("Bearer s3cret"))
}

func TestAdminAuth_NoTokenConfigured(t *testing.T) {
	h := middleware.AdminAuth("")(created())
	req := httptest.NewRequest(http.MethodPost, "/api/admin/providers", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
