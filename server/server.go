// Package server wires the nanocode API service and model server: chi
// routers with the shared middleware stack, and an HTTP server with
// graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nanocode-local/nanocode/config"
	"github.com/nanocode-local/nanocode/errors"
	"github.com/nanocode-local/nanocode/server/backend"
	"github.com/nanocode-local/nanocode/server/handlers"
	"github.com/nanocode-local/nanocode/server/metrics"
	"github.com/nanocode-local/nanocode/server/middleware"
	"github.com/nanocode-local/nanocode/server/processing"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Router handles HTTP routing
type Router struct {
	router chi.Router
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// APIOptions holds the dependencies of the API service router.
type APIOptions struct {
	Config    *config.APIConfig
	Processor *processing.Processor
	Client    handlers.Generator

	// Metrics is nil when the metrics endpoint is disabled.
	Metrics *metrics.Metrics

	Logger *zap.Logger
}

// NewAPIRouter creates the API service router.
func NewAPIRouter(opts APIOptions) *Router {
	r := chi.NewRouter()
	useCommon(r, opts.Metrics, opts.Logger, middleware.CORS(middleware.CORSOptions{
		AllowedOrigins:   opts.Config.CORS.AllowedOrigins,
		AllowCredentials: opts.Config.CORS.AllowCredentials,
	}))

	nanocode := handlers.NewNanocodeHandler(opts.Processor, opts.Client, opts.Logger)
	if rl := opts.Config.RateLimit; rl.Enabled() {
		limiter := middleware.NewRateLimiter(rl.RequestsPerMinute, rl.Burst, opts.Metrics)
		r.With(limiter.Handler).Post("/nanocode", nanocode.ServeHTTP)
	} else {
		r.Post("/nanocode", nanocode.ServeHTTP)
	}

	r.Get("/health", handlers.Health(opts.Logger))
	r.Get("/admin/ping", handlers.AdminPing(opts.Logger))
	mountMetrics(r, opts.Metrics)

	return &Router{router: r}
}

// NewModelRouter creates the model server router.
func NewModelRouter(b backend.Backend, m *metrics.Metrics, logger *zap.Logger) *Router {
	r := chi.NewRouter()
	useCommon(r, m, logger)

	r.Post("/generate", handlers.NewGenerateHandler(b, m, logger).ServeHTTP)
	r.Get("/health", handlers.ModelHealth(string(b.Kind()), logger))
	mountMetrics(r, m)

	return &Router{router: r}
}

// useCommon installs the middleware stack shared by both services, then
// extra, then the JSON 404/405 handlers.
func useCommon(r chi.Router, m *metrics.Metrics, logger *zap.Logger, extra ...func(http.Handler) http.Handler) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTimer)
	r.Use(errors.ErrorHandler(logger))
	r.Use(middleware.Logging(logger))
	if m != nil {
		r.Use(middleware.PrometheusMetrics(m))
	}
	r.Use(extra...)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, errors.NewNotFoundError(middleware.GetRequestID(req.Context()), req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		errors.WriteError(w, errors.NewError(
			errors.BadRequestError,
			"Method Not Allowed",
			http.StatusMethodNotAllowed,
			middleware.GetRequestID(req.Context()),
			map[string]interface{}{"method": req.Method},
			nil,
		))
	})
}

func mountMetrics(r chi.Router, m *metrics.Metrics) {
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:           cfg.Addr(),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the shutdown timeout. In-flight requests are allowed to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server started", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("Shutting down server")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
