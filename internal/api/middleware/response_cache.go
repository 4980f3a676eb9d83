package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
)

const responseCachePrefix = "http:cache:"

// ResponseCache caches successful GET responses for read-mostly routes such as
// the provider directory. Availability is never routed through it.
type ResponseCache struct {
	cache      providers.CacheProvider
	ttlSeconds int
}

// NewResponseCache creates a response cache; a nil cache disables it
func NewResponseCache(cache providers.CacheProvider, ttlSeconds int) *ResponseCache {
	return &ResponseCache{cache: cache, ttlSeconds: ttlSeconds}
}

// Middleware serves cached bodies and stores fresh 200 responses
func (m *ResponseCache) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil || m.cache == nil || r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		logger := observability.LoggerFromContext(r.Context())
		key := cacheKey(r)
		if cached, err := m.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("X-Cache", "HIT")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}

		w.Header().Set("X-Cache", "MISS")
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
		next.ServeHTTP(recorder, r)

		if recorder.statusCode == http.StatusOK && recorder.body.Len() > 0 {
			if err := m.cache.Set(r.Context(), key, recorder.body.Bytes(), m.ttlSeconds); err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to cache response")
			}
		}
	})
}

// Invalidating drops every cached response after a successful write
func (m *ResponseCache) Invalidating(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
		next.ServeHTTP(recorder, r)

		if m == nil || m.cache == nil || recorder.statusCode >= http.StatusMultipleChoices {
			return
		}
		if err := m.cache.DeleteByPrefix(r.Context(), responseCachePrefix); err != nil {
			observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("Failed to invalidate response cache")
		}
	})
}

func cacheKey(r *http.Request) string {
	key := r.Method + ":" + r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.RawQuery
	}
	hash := sha256.Sum256([]byte(key))
	return responseCachePrefix + hex.EncodeToString(hash[:])
}

// responseRecorder tees the response body for caching
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
	written    bool
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	if !r.written {
		r.statusCode = statusCode
		r.ResponseWriter.WriteHeader(statusCode)
		r.written = true
	}
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if !r.written {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(data)
	return r.ResponseWriter.Write(data)
}
