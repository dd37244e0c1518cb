package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/unforced/nature-of-ai/internal/api/http"
	"github.com/unforced/nature-of-ai/internal/api/middleware"
	"github.com/unforced/nature-of-ai/internal/api/ws"
	"github.com/unforced/nature-of-ai/internal/domain/playground"
	"github.com/unforced/nature-of-ai/internal/infrastructure/config"
	"github.com/unforced/nature-of-ai/internal/infrastructure/logging"
	"github.com/unforced/nature-of-ai/internal/infrastructure/monitoring"
	"github.com/unforced/nature-of-ai/internal/infrastructure/tracing"
	"github.com/unforced/nature-of-ai/internal/sandbox"
)

// StreamPath is the WebSocket endpoint. It bypasses compression.
const StreamPath = "/api/playground/stream"

// Server wraps the HTTP server and dependencies
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	store      *playground.Store
	host       *sandbox.Host
	stream     *ws.Handler
	router     *gin.Engine
	handler    http.Handler
	httpServer *http.Server
}

// Option customizes server construction.
type Option func(*options)

type options struct {
	logger   *logging.Logger
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
}

// WithLogger uses logger instead of one built from the config.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry registers metrics on reg and serves /metrics from it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
		o.gatherer = reg
	}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	o := options{
		registry: prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logCfg := logging.DefaultConfig()
		if cfg.Logging.Development {
			logCfg = logging.DevelopmentConfig()
		}
		if cfg.Logging.Level != "" && !cfg.Logging.Development {
			logCfg.Level = cfg.Logging.Level
		}
		var err error
		if logger, err = logging.New(logCfg); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing playground server",
		zap.String("addr", cfg.Server.Address()),
		zap.Float64("frame_rate", cfg.Sandbox.FrameRate),
	)

	theme, err := playground.ParseTheme(cfg.Playground.Theme)
	if err != nil {
		return nil, fmt.Errorf("invalid playground theme: %w", err)
	}

	metrics := monitoring.NewMetrics(o.registry)
	tracer := tracing.New("playground", logger.Component("tracing"))

	store := playground.NewStore(
		playground.WithOutputLimit(cfg.Playground.OutputLimit),
		playground.WithTheme(theme),
	)
	host := sandbox.NewHost(store, sandboxConfig(cfg.Sandbox),
		sandbox.WithLogger(logger.Component("sandbox")),
		sandbox.WithObserver(metrics),
	)

	if cfg.Playground.HandoffPath != "" {
		seeded, err := host.Seed(playground.FileSlot{Path: cfg.Playground.HandoffPath})
		if err != nil {
			logger.Warn("Failed to read handoff file", zap.Error(err))
		} else if seeded {
			logger.Info("Seeded playground from handoff file",
				zap.String("path", cfg.Playground.HandoffPath))
		}
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		rl.SkipPaths = []string{"/health", "/metrics", StreamPath}
		router.Use(middleware.RateLimit(rl))
	}

	handlers := api.NewHandlers(host, nil, metrics, logger.Component("http"))
	handlers.Register(router)

	stream := ws.NewHandler(host, metrics, logger.Component("ws"))
	router.GET(StreamPath, stream.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})))

	handler, err := compress(router, cfg.Server)
	if err != nil {
		return nil, err
	}

	logger.Info("Server initialized successfully")

	return &Server{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		store:   store,
		host:    host,
		stream:  stream,
		router:  router,
		handler: handler,
		httpServer: &http.Server{
			Addr:    cfg.Server.Address(),
			Handler: handler,
		},
	}, nil
}

func sandboxConfig(c config.SandboxConfig) sandbox.Config {
	cfg := sandbox.DefaultConfig()
	if c.FrameRate > 0 {
		cfg.FrameRate = c.FrameRate
	}
	if c.MaxFrames > 0 {
		cfg.MaxFrames = c.MaxFrames
	}
	if c.MaxCallStackSize > 0 {
		cfg.MaxCallStackSize = c.MaxCallStackSize
	}
	if c.InboxSize > 0 {
		cfg.InboxSize = c.InboxSize
	}
	return cfg
}

// compress wraps next in gzip unless disabled. The stream endpoint is
// served uncompressed so the upgrade can hijack the connection.
func compress(next http.Handler, cfg config.ServerConfig) (http.Handler, error) {
	if !cfg.Compression {
		return next, nil
	}

	wrapper, err := gzhttp.NewWrapper(gzhttp.MinSize(cfg.CompressionMinSize))
	if err != nil {
		return nil, fmt.Errorf("failed to configure compression: %w", err)
	}
	gzipped := wrapper(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == StreamPath {
			next.ServeHTTP(w, r)
			return
		}
		gzipped.ServeHTTP(w, r)
	}), nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Host returns the sandbox host backing the playground.
func (s *Server) Host() *sandbox.Host {
	return s.host
}

// Run starts the HTTP server and blocks until it stops. It returns nil
// after a graceful Shutdown.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, closes stream clients, discards the
// running sketch and flushes pending spans.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	s.stream.Close()

	if err := s.host.Close(); err != nil {
		errs = append(errs, fmt.Errorf("sandbox close: %w", err))
	}
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
