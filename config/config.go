// Package config provides configuration management for the nanocode API
// service and model server.
//
// Configuration is resolved once at process start, in this order:
//
//  1. built-in defaults (DefaultAPIConfig, DefaultModelServerConfig)
//  2. an optional YAML file, with ${VAR} and ${VAR:-default} expansion
//  3. environment variables (a .env file is loaded first, see LoadDotEnv)
//
// and then validated. The resulting structs are treated as immutable and
// shared read-only by every request handler.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Backend names accepted by ModelServerConfig.Backend.
const (
	BackendMock     = "mock"
	BackendOpenAI   = "openai"
	BackendLlamaCpp = "llamacpp"
	BackendVLLM     = "vllm"
)

// DefaultSystemPrompt is the fixed instruction line that opens every
// rendered prompt and the system message sent to the provider.
const DefaultSystemPrompt = "You are Nanocode, a highly structured and helpful assistant."

// APIConfig is the configuration of the API service.
type APIConfig struct {
	Server ServerConfig `yaml:"server" envPrefix:"API_"`

	// ModelServerURL is the base URL of the model server. The generation
	// endpoint is ModelServerURL + "/generate".
	ModelServerURL string `yaml:"model_server_url" env:"MODEL_SERVER_URL"`

	Upstream       UpstreamConfig       `yaml:"upstream" envPrefix:"UPSTREAM_"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" envPrefix:"CIRCUIT_BREAKER_"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	CORS           CORSConfig           `yaml:"cors" envPrefix:"CORS_"`
	Logging        LoggingConfig        `yaml:"logging" envPrefix:"LOG_"`
	Metrics        MetricsConfig        `yaml:"metrics" envPrefix:"METRICS_"`
}

// ModelServerConfig is the configuration of the model server.
type ModelServerConfig struct {
	Server ServerConfig `yaml:"server" envPrefix:"MODEL_"`

	// Backend selects the generation backend for the lifetime of the
	// process: mock, openai, llamacpp or vllm.
	Backend string `yaml:"backend" env:"MODEL_BACKEND"`

	OpenAI  OpenAIConfig  `yaml:"openai" envPrefix:"OPENAI_"`
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
}

// ServerConfig holds listener settings for the HTTP server.
type ServerConfig struct {
	// Host is the interface to bind (default: 0.0.0.0)
	Host string `yaml:"host" env:"HOST"`

	// Port is the TCP port to bind
	Port int `yaml:"port" env:"PORT"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`

	// WriteTimeout bounds writing the response. It must leave room for the
	// upstream call (default: 45s)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	// MaxHeaderBytes caps request header size (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" env:"MAX_HEADER_BYTES"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamConfig controls calls from the API service to the model server.
type UpstreamConfig struct {
	// Timeout bounds a single upstream call. Expiry is reported as the
	// model server being unavailable (default: 30s)
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// MaxIdleConns sizes the shared connection pool (default: 100)
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
}

// CircuitBreakerConfig configures the optional breaker in front of the
// model server. It is disabled by default.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// MaxRequests is the number of requests allowed through while half-open
	MaxRequests uint32 `yaml:"max_requests" env:"MAX_REQUESTS"`

	// Interval is the cyclic period of the closed state after which counts reset
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`

	// Timeout is how long the breaker stays open before going half-open
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	// FailureThreshold is the number of consecutive failures that trips the breaker
	FailureThreshold uint32 `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
}

// RateLimitConfig configures per-client rate limiting. A zero
// RequestsPerMinute disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" env:"PER_MINUTE"`
	Burst             int `yaml:"burst" env:"BURST"`
}

// Enabled reports whether rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerMinute > 0
}

// CORSConfig lists the browser origins allowed to call the API service.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	AllowCredentials bool     `yaml:"allow_credentials" env:"ALLOW_CREDENTIALS"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: DEBUG, INFO, WARNING, ERROR (any case)
	Level string `yaml:"level" env:"LEVEL"`

	// Format specifies log output format: json or console
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig toggles the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// OpenAIConfig configures the provider-backed generation backend.
type OpenAIConfig struct {
	// APIKey is required when Backend is "openai"; startup fails without it
	APIKey string `yaml:"api_key" env:"API_KEY"`

	// Model is the provider model identifier (default: gpt-4o)
	Model string `yaml:"model" env:"MODEL"`

	// SystemPrompt is the system message sent with every prompt
	SystemPrompt string `yaml:"system_prompt" env:"SYSTEM_PROMPT"`

	// BaseURL overrides the provider endpoint for OpenAI-compatible servers
	BaseURL string `yaml:"base_url" env:"BASE_URL"`

	// Timeout bounds one provider call. Keep it below the API service's
	// upstream timeout so provider failures surface as 502 (default: 25s)
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

func defaultServerConfig(port int) ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            port,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    45 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// DefaultAPIConfig returns the API service defaults.
func DefaultAPIConfig() *APIConfig {
	return &APIConfig{
		Server:         defaultServerConfig(8000),
		ModelServerURL: "http://localhost:9000",
		Upstream: UpstreamConfig{
			Timeout:      30 * time.Second,
			MaxIdleConns: 100,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          false,
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
				"http://localhost:4173",
				"http://127.0.0.1:4173",
			},
			AllowCredentials: true,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// DefaultModelServerConfig returns the model server defaults.
func DefaultModelServerConfig() *ModelServerConfig {
	return &ModelServerConfig{
		Server:  defaultServerConfig(9000),
		Backend: BackendOpenAI,
		OpenAI: OpenAIConfig{
			Model:        "gpt-4o",
			SystemPrompt: DefaultSystemPrompt,
			Timeout:      25 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks the API service configuration.
func (c *APIConfig) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}

	u, err := url.Parse(c.ModelServerURL)
	if err != nil {
		return fmt.Errorf("invalid model server url %q: %w", c.ModelServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid model server url %q: scheme must be http or https", c.ModelServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid model server url %q: missing host", c.ModelServerURL)
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive: %v", c.Upstream.Timeout)
	}
	if c.Upstream.MaxIdleConns < 0 {
		return fmt.Errorf("negative upstream max idle conns: %d", c.Upstream.MaxIdleConns)
	}

	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureThreshold == 0 {
			return fmt.Errorf("circuit breaker failure threshold must be positive")
		}
		if c.CircuitBreaker.Timeout < 0 || c.CircuitBreaker.Interval < 0 {
			return fmt.Errorf("negative circuit breaker timing")
		}
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("negative rate limit: %d", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("negative rate limit burst: %d", c.RateLimit.Burst)
	}

	for i, origin := range c.CORS.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("empty CORS origin at index %d", i)
		}
	}

	return c.Logging.validate()
}

// Validate checks the model server configuration. A missing provider API
// key is an error only when the openai backend is selected. Backend is
// normalized to lower case in place.
func (c *ModelServerConfig) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendMock, BackendLlamaCpp, BackendVLLM:
	case BackendOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the %s backend", BackendOpenAI)
		}
		if c.OpenAI.Model == "" {
			return fmt.Errorf("empty OpenAI model")
		}
		if c.OpenAI.Timeout < 0 {
			return fmt.Errorf("negative OpenAI timeout: %v", c.OpenAI.Timeout)
		}
		if c.OpenAI.BaseURL != "" {
			u, err := url.Parse(c.OpenAI.BaseURL)
			if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Errorf("invalid OpenAI base url %q", c.OpenAI.BaseURL)
			}
		}
	default:
		return fmt.Errorf("unknown model backend: %q", c.Backend)
	}

	return c.Logging.validate()
}

func (s ServerConfig) validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port: %d", s.Port)
	}
	if s.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", s.ReadTimeout)
	}
	if s.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", s.WriteTimeout)
	}
	if s.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", s.MaxHeaderBytes)
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", s.ShutdownTimeout)
	}
	return nil
}

func (l LoggingConfig) validate() error {
	if _, err := l.ZapLevel(); err != nil {
		return err
	}
	switch strings.ToLower(l.Format) {
	case "json", "console", "text":
	default:
		return fmt.Errorf("invalid log format: %s", l.Format)
	}
	return nil
}
