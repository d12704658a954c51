package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/nanocode-local/nanocode/config"
	"github.com/nanocode-local/nanocode/errors"
	"github.com/nanocode-local/nanocode/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// apiCmd runs the API service.
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the API service",
	Args:  cobra.NoArgs,
	RunE:  runAPI,
}

// modelServerCmd runs the model server.
var modelServerCmd = &cobra.Command{
	Use:   "model-server",
	Short: "Run the model server",
	Args:  cobra.NoArgs,
	RunE:  runModelServer,
}

func runAPI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadAPIConfig()
	if err != nil {
		return err
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	errors.SetLogger(logger)

	srv, err := server.NewAPIServer(cfg, logger)
	if err != nil {
		logger.Error("API service initialization failed", zap.Error(err))
		return err
	}
	return serve(cmd, srv, logger, "api")
}

func runModelServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadModelServerConfig()
	if err != nil {
		return err
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	errors.SetLogger(logger)

	srv, err := server.NewModelServer(cfg, logger)
	if err != nil {
		logger.Error("Model server initialization failed", zap.Error(err))
		return err
	}
	return serve(cmd, srv, logger, "model-server")
}

// serve runs srv until SIGINT or SIGTERM.
func serve(cmd *cobra.Command, srv *server.Server, logger *zap.Logger, service string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting nanocode",
		zap.String("service", service),
		zap.String("version", Version),
		zap.String("address", srv.Addr()),
	)

	if err := srv.Start(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func loadAPIConfig() (*config.APIConfig, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	return config.LoadAPIConfig(config.Source{Path: configPath})
}

func loadModelServerConfig() (*config.ModelServerConfig, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	return config.LoadModelServerConfig(config.Source{Path: configPath})
}
