// Package modelclient calls the model server's generation endpoint on
// behalf of the API service.
package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nanocode-local/nanocode/config"
	"github.com/nanocode-local/nanocode/server/circuitbreaker"
	"github.com/nanocode-local/nanocode/server/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// GeneratePath is appended to the base URL.
const GeneratePath = "/generate"

// DefaultTimeout bounds a call when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxDrain caps how much of an error body is read before closing.
const maxDrain = 64 << 10

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// Doer defaults to a pooled *http.Client.
	Doer Doer

	// Breaker is optional.
	Breaker *circuitbreaker.CircuitBreaker

	// Metrics is optional.
	Metrics *metrics.Metrics

	Logger *zap.Logger
}

// Client is safe for concurrent use.
type Client struct {
	endpoint string
	timeout  time.Duration
	doer     Doer
	breaker  *circuitbreaker.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New creates a Client for the model server at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("model server base url is required")
	}

	c := &Client{
		endpoint: base + GeneratePath,
		timeout:  cfg.Timeout,
		doer:     cfg.Doer,
		breaker:  cfg.Breaker,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.doer == nil {
		c.doer = NewHTTPClient(config.UpstreamConfig{MaxIdleConns: 100})
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// NewFromConfig wires a Client from the API service configuration,
// including the circuit breaker when it is enabled.
func NewFromConfig(cfg *config.APIConfig, m *metrics.Metrics, logger *zap.Logger) (*Client, error) {
	var breaker *circuitbreaker.CircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		cbCfg := circuitbreaker.Config{
			Name:             "model_server",
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         cfg.CircuitBreaker.Interval,
			Timeout:          cfg.CircuitBreaker.Timeout,
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			IsSuccessful:     CountsAsSuccess,
		}
		var registry *prometheus.Registry
		if m != nil {
			registry = m.Registry()
		}
		var err error
		breaker, err = circuitbreaker.NewCircuitBreaker(cbCfg, logger, registry)
		if err != nil {
			return nil, fmt.Errorf("create circuit breaker: %w", err)
		}
	}

	return New(Config{
		BaseURL: cfg.ModelServerURL,
		Timeout: cfg.Upstream.Timeout,
		Doer:    NewHTTPClient(cfg.Upstream),
		Breaker: breaker,
		Metrics: m,
		Logger:  logger,
	})
}

// NewHTTPClient returns the shared pooled client used for upstream calls.
// Per-call deadlines come from the request context, not Client.Timeout.
func NewHTTPClient(cfg config.UpstreamConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConns
	transport.IdleConnTimeout = 90 * time.Second
	return &http.Client{Transport: transport}
}

// CountsAsSuccess reports whether err should leave the breaker alone.
// Only transport failures and 5xx replies count as failures.
func CountsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode < 500
	}
	return errors.Is(err, ErrInvalidResponse)
}

// Endpoint returns the full URL of the generation endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Generate POSTs {"prompt": prompt, ...extra} to the model server and
// returns the decoded JSON object. The "prompt" key always carries prompt.
//
// The call is detached from ctx cancellation: a client that disconnects
// does not abort it. It is bounded only by the configured timeout. There
// is exactly one attempt.
func (c *Client) Generate(ctx context.Context, prompt string, extra map[string]interface{}) (map[string]interface{}, error) {
	body := make(map[string]interface{}, len(extra)+1)
	for k, v := range extra {
		body[k] = v
	}
	body["prompt"] = prompt

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	var raw map[string]interface{}
	call := func() error {
		var callErr error
		raw, callErr = c.post(ctx, payload)
		return callErr
	}

	if c.breaker != nil {
		err = c.breaker.Execute(call)
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			err = &UnavailableError{Err: err}
		}
	} else {
		err = call()
	}

	c.record(time.Since(start), err)
	if err != nil {
		c.logger.Debug("model server call failed",
			zap.String("endpoint", c.endpoint),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	return raw, nil
}

func (c *Client) post(ctx context.Context, payload []byte) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
		return nil, &UpstreamError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{Err: err}
	}

	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidResponse)
	}
	return obj, nil
}

func (c *Client) record(d time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamDuration.Observe(d.Seconds())
	c.metrics.UpstreamRequests.WithLabelValues(Outcome(err)).Inc()
}

// Outcome classifies the result of Generate for metrics.
func Outcome(err error) string {
	var upstream *UpstreamError
	var unavailable *UnavailableError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &upstream):
		return metrics.OutcomeUpstreamError
	case errors.As(err, &unavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, ErrInvalidResponse):
		return metrics.OutcomeInvalidResponse
	default:
		return metrics.OutcomeUpstreamError
	}
}
