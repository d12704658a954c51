package modelclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nanocode-local/nanocode/config"
	"github.com/nanocode-local/nanocode/server/circuitbreaker"
	"github.com/nanocode-local/nanocode/server/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(t *testing.T, url string, m *metrics.Metrics) *Client {
	t.Helper()
	c, err := New(Config{
		BaseURL: url,
		Timeout: 2 * time.Second,
		Metrics: m,
		Logger:  zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Config{BaseURL: "  "})
	assert.Error(t, err)

	c, err := New(Config{BaseURL: "http://model:9000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://model:9000/generate", c.Endpoint())
	assert.Equal(t, DefaultTimeout, c.timeout)
}

// TestGenerateRequestShape checks the method, path, headers and body sent
// to the model server.
func TestGenerateRequestShape(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"ok","metadata":{"backend":"mock"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/", nil)
	raw, err := c.Generate(context.Background(), "P", map[string]interface{}{
		"prompt":      "ignored",
		"temperature": 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "P", got["prompt"])
	assert.Equal(t, 0.2, got["temperature"])
	assert.Equal(t, "ok", raw["output"])
	assert.Equal(t, map[string]interface{}{"backend": "mock"}, raw["metadata"])
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		check   func(t *testing.T, err error)
		outcome string
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"detail":"boom"}`,
			check: func(t *testing.T, err error) {
				var ue *UpstreamError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, 500, ue.StatusCode)
			},
			outcome: metrics.OutcomeUpstreamError,
		},
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `not json`,
			check: func(t *testing.T, err error) {
				var ue *UpstreamError
				require.ErrorAs(t, err, &ue)
				assert.Equal(t, 404, ue.StatusCode)
			},
			outcome: metrics.OutcomeUpstreamError,
		},
		{
			name:   "non-json body",
			status: http.StatusOK,
			body:   `<html>`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidResponse)
			},
			outcome: metrics.OutcomeInvalidResponse,
		},
		{
			name:   "json array",
			status: http.StatusOK,
			body:   `["a"]`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidResponse)
			},
			outcome: metrics.OutcomeInvalidResponse,
		},
		{
			name:   "json null",
			status: http.StatusOK,
			body:   `null`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidResponse)
			},
			outcome: metrics.OutcomeInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m := metrics.NewMetrics()
			c := newTestClient(t, srv.URL, m)
			raw, err := c.Generate(context.Background(), "P", nil)
			assert.Nil(t, raw)
			tt.check(t, err)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(tt.outcome)))
		})
	}
}

func TestGenerateEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	raw, err := newTestClient(t, srv.URL, nil).Generate(context.Background(), "P", nil)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := metrics.NewMetrics()
	_, err := newTestClient(t, url, m).Generate(context.Background(), "P", nil)

	var ue *UnavailableError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(metrics.OutcomeUnavailable)))
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "P", nil)
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestGenerateIgnoresCallerCancellation checks the upstream call keeps
// going after the caller's context is cancelled.
func TestGenerateIgnoresCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_, _ = w.Write([]byte(`{"output":"late"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw, err := newTestClient(t, srv.URL, nil).Generate(ctx, "P", nil)
	require.NoError(t, err)
	assert.Equal(t, "late", raw["output"])
}

func TestGenerateWithDoer(t *testing.T) {
	c, err := New(Config{
		BaseURL: "http://model",
		Doer: doerFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		}),
	})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "P", nil)
	var ue *UnavailableError
	assert.ErrorAs(t, err, &ue)
}

// TestGenerateCircuitBreaker trips the breaker with 5xx replies and checks
// that later calls fail fast as unavailable without reaching the server.
func TestGenerateCircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	breaker, err := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		Name:             "model_server",
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 2,
		TestMode:         true,
		IsSuccessful:     CountsAsSuccess,
	}, zaptest.NewLogger(t), nil)
	require.NoError(t, err)

	c, err := New(Config{BaseURL: srv.URL, Breaker: breaker})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := c.Generate(context.Background(), "P", nil)
		var ue *UpstreamError
		require.ErrorAs(t, err, &ue)
	}

	_, err = c.Generate(context.Background(), "P", nil)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestCountsAsSuccess(t *testing.T) {
	assert.True(t, CountsAsSuccess(nil))
	assert.True(t, CountsAsSuccess(&UpstreamError{StatusCode: 422}))
	assert.True(t, CountsAsSuccess(ErrInvalidResponse))
	assert.False(t, CountsAsSuccess(&UpstreamError{StatusCode: 503}))
	assert.False(t, CountsAsSuccess(&UnavailableError{Err: errors.New("refused")}))
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.DefaultAPIConfig()
	cfg.ModelServerURL = "http://model:9000"
	cfg.CircuitBreaker.Enabled = true

	m := metrics.NewMetrics()
	c, err := NewFromConfig(cfg, m, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, c.breaker)
	assert.Equal(t, cfg.Upstream.Timeout, c.timeout)
	assert.Equal(t, "http://model:9000/generate", c.Endpoint())
}
