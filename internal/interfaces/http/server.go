// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/cierres-audit/internal/application/service"
	"github.com/garyjia/cierres-audit/internal/dates"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// CronSecret guards the /api/cron routes. Empty disables them.
	CronSecret string
	// APIToken, when set, is required as a bearer token on the other /api
	// routes and in the body of the webhook
	APIToken string
	Debug    bool
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
}

// Services are the application services the handlers call
type Services struct {
	Ingest   service.IngestService
	Envelope service.EnvelopeService
	Closings service.ClosingService
	Review   service.ReviewService
	Summary  service.SummaryService
	Folders  service.FolderService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, clock dates.Clock, logger Logger) *Server {
	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(services, clock, config.APIToken, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(corsMiddleware())
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	// The webhook checks its token in the body
	s.router.POST("/api/webhook", h.Webhook)

	api := s.router.Group("/api")
	api.Use(bearerAuth(s.config.APIToken, false, s.logger))
	{
		api.POST("/ingest", h.Ingest)
		api.POST("/envelopes", h.RegisterEnvelope)
		api.GET("/envelopes/pending", h.PendingEnvelopes)
		api.GET("/closings", h.ListClosings)
		api.GET("/closings/:id", h.GetClosing)
		api.PATCH("/closings/:id/notes", h.SaveNotes)
		api.GET("/alerts", h.PendingAlerts)
		api.PATCH("/alerts/:id/resolve", h.ResolveAlert)
		api.GET("/status", h.Status)
		api.POST("/review/trigger", h.TriggerReview)
		api.GET("/metrics", h.Metrics)
		api.GET("/export.xlsx", h.Export)
	}

	cron := s.router.Group("/api/cron")
	cron.Use(bearerAuth(s.config.CronSecret, true, s.logger))
	{
		cron.GET("/review-queue", h.CronReviewQueue)
		cron.GET("/daily-summary", h.CronDailySummary)
		cron.GET("/drive-folders", h.CronDriveFolders)
	}
}

// Start runs the server until ctx is cancelled, then shuts it down
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
