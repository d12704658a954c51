package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nanocode-local/nanocode/errors"
	"github.com/nanocode-local/nanocode/server/metrics"
	"github.com/nanocode-local/nanocode/server/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimit(t *testing.T) {
	m := metrics.NewMetrics()
	limiter := middleware.NewRateLimiter(10, 10, m)

	handler := middleware.RequestID(limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	// Make 11 requests (1 more than the burst)
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest("GET", "/nanocode", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i < 10 {
			assert.Equal(t, http.StatusOK, rec.Code)
			continue
		}

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "6", rec.Header().Get("Retry-After"))

		var resp errors.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, errors.RateLimitError, resp.Type)
		assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)
		assert.Equal(t, float64(10), resp.Details["limit"])
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RateLimitHits))

	// Another client has its own bucket.
	req := httptest.NewRequest("GET", "/nanocode", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Reset forgets the exhausted client.
	limiter.Reset()
	req = httptest.NewRequest("GET", "/nanocode", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
