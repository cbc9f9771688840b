package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"mailaudit/internal/auth"
	"mailaudit/internal/config"
	"mailaudit/internal/handlers"
	"mailaudit/internal/rules"
)

// uploadLimit caps multipart uploads of .eml and .mbox files
const uploadLimit = "25M"

// Server represents the application server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	store    *rules.Store
	auditor  handlers.Auditor
	notifier handlers.ReportNotifier
	auth     *auth.Manager
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

// New creates a new server instance. notifier may be nil when report delivery
// is not configured; gatherer defaults to the global Prometheus registry.
func New(cfg *config.Config, store *rules.Store, auditor handlers.Auditor, notifier handlers.ReportNotifier, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		config:   cfg,
		store:    store,
		auditor:  auditor,
		notifier: notifier,
		auth:     auth.NewManager(cfg),
		gatherer: gatherer,
		logger:   logger,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	if s.config.EnableSwagger {
		s.echo.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// Health and metrics stay at root level for monitoring
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version, s.store))
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.echo.Group("/api")
	api.GET("/", handlers.RootHandler(s.config.Version))
	api.GET("/rules", handlers.ListRulesHandler(s.store))

	auditGroup := api.Group("/audit")
	auditGroup.POST("/email", handlers.AuditEmailHandler(s.auditor))
	auditGroup.POST("/thread", handlers.AuditThreadHandler(s.auditor, s.notifier, s.logger))
	auditGroup.POST("/upload", handlers.AuditUploadHandler(s.auditor, s.logger), middleware.BodyLimit(uploadLimit))

	admin := api.Group("/admin")
	admin.POST("/login", handlers.AdminLoginHandler(s.auth))
	admin.POST("/rules/reload", handlers.ReloadRulesHandler(s.store, s.logger), auth.Middleware(s.auth))
}

// Start starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, then waits up to drainTimeout for
// in-flight requests. It returns only after the drain has finished.
func (s *Server) Run(ctx context.Context, drainTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-errCh
}

// Shutdown stops accepting requests and waits for in-flight audits to finish
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Server shutting down")
	return s.echo.Shutdown(ctx)
}
