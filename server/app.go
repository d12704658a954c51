package server

import (
	"fmt"

	"github.com/nanocode-local/nanocode/config"
	"github.com/nanocode-local/nanocode/server/backend"
	"github.com/nanocode-local/nanocode/server/metrics"
	"github.com/nanocode-local/nanocode/server/modelclient"
	"github.com/nanocode-local/nanocode/server/processing"
	"go.uber.org/zap"
)

// NewAPIServer builds the API service from its configuration.
func NewAPIServer(cfg *config.APIConfig, logger *zap.Logger) (*Server, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
	}

	processor, err := processing.NewProcessor(config.DefaultSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}

	client, err := modelclient.NewFromConfig(cfg, m, logger)
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}

	logger.Info("API service configured",
		zap.String("model_server", client.Endpoint()),
		zap.Duration("upstream_timeout", cfg.Upstream.Timeout),
		zap.Bool("circuit_breaker", cfg.CircuitBreaker.Enabled),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled()),
	)

	router := NewAPIRouter(APIOptions{
		Config:    cfg,
		Processor: processor,
		Client:    client,
		Metrics:   m,
		Logger:    logger,
	})
	return NewServer(cfg.Server, router, logger), nil
}

// NewModelServer builds the model server from its configuration. The
// backend is chosen here, once.
func NewModelServer(cfg *config.ModelServerConfig, logger *zap.Logger) (*Server, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
	}

	b, err := backend.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	logger.Info("Model server configured", zap.String("backend", string(b.Kind())))

	return NewServer(cfg.Server, NewModelRouter(b, m, logger), logger), nil
}
