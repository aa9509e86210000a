// Package container wires the cash-closing audit service together and owns
// its lifecycle: ordered initialization and reverse-order teardown.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/application/service"
	"github.com/garyjia/cierres-audit/internal/config"
	"github.com/garyjia/cierres-audit/internal/dates"
	httpserver "github.com/garyjia/cierres-audit/internal/interfaces/http"
	"github.com/garyjia/cierres-audit/internal/worker"
	"github.com/garyjia/cierres-audit/pkg/database"
)

// Container manages all application dependencies and lifecycle.
type Container struct {
	config *config.Config
	logger *zap.Logger
	clock  dates.Clock

	// Infrastructure - Data
	db           *database.DB
	txManager    port.TransactionManager
	repositories *RepositoryBundle

	// Infrastructure - External
	evidence *EvidenceBundle
	model    port.VisionModel
	notifier port.Notifier

	// Application
	services *ServiceBundle

	// Workers
	workers        *worker.Manager
	workersRunning atomic.Bool

	// Lifecycle
	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Closings port.ClosingRepository
	Alerts   port.AlertRepository
	Inbox    port.InboxRepository
	Cache    port.ExtractionCacheRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Ingest   service.IngestService
	Envelope service.EnvelopeService
	Closings service.ClosingService
	Review   service.ReviewService
	Summary  service.SummaryService
	Folders  service.FolderService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	clock, err := dates.NewClock(cfg.Audit.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
		clock:  clock,
	}, nil
}

// Start initializes all components in dependency order and starts the
// workers. Components already initialized are released when a later step
// fails.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}
	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Starting container")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize external clients
	if err := c.initExternalClients(ctx); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized", zap.String("evidence_provider", c.evidence.Provider))

	// Step 3: Initialize application services
	if err := c.initServices(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 4: Initialize and start workers
	if err := c.initWorkers(ctx); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize workers: %w", err)
	}
	c.logger.Info("Workers initialized", zap.Int("count", c.workers.Count()))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	// Step 1: Stop workers (reverse of step 4)
	if c.workers != nil && c.workersRunning.Load() {
		c.workers.StopAll()
		c.workersRunning.Store(false)
		c.logger.Info("Workers stopped")
	}

	// Services and external clients hold no resources (steps 3 and 2)

	// Step 4: Close database (reverse of step 1)
	err := c.closeDatabase()

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.db != nil {
		if err := c.db.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check evidence store
	if c.evidence != nil {
		status.Components["evidence"] = ComponentHealth{Healthy: true, Message: c.evidence.Provider}
	} else {
		status.Components["evidence"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Notifications are optional and never fail the overall status
	if c.notifier != nil {
		status.Components["notifier"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["notifier"] = ComponentHealth{Healthy: false, Message: "disabled"}
	}

	// Check workers
	if c.workers != nil {
		status.Components["workers"] = ComponentHealth{
			Healthy: c.workersRunning.Load() || c.workers.Count() == 0,
			Message: fmt.Sprintf("worker count: %d", c.workers.Count()),
		}
	} else {
		status.Components["workers"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.db = dbBundle.DB
	c.txManager = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

// initExternalClients initializes the evidence store, vision model and
// notifier using providers.
func (c *Container) initExternalClients(ctx context.Context) error {
	evidenceBundle, err := ProvideEvidence(ctx, c.config, c.logger)
	if err != nil {
		return err
	}
	c.evidence = evidenceBundle

	model, err := ProvideVisionModel(c.config.OpenAI, c.logger)
	if err != nil {
		return err
	}
	c.model = model

	c.notifier = ProvideNotifier(c.config.Lark, c.logger)
	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Config:    c.config,
		Clock:     c.clock,
		Repos:     c.repositories,
		TxManager: c.txManager,
		Evidence:  c.evidence,
		Model:     c.model,
		Notifier:  c.notifier,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// initWorkers initializes and starts all background workers using providers.
func (c *Container) initWorkers(ctx context.Context) error {
	workers, err := ProvideWorkers(c.config.Worker, c.services.Review, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	c.workersRunning.Store(true)

	return nil
}

func (c *Container) closeDatabase() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
		return err
	}
	c.logger.Info("Database closed")
	return nil
}

// Getters for accessing container components

// Clock returns the business-timezone clock.
func (c *Container) Clock() dates.Clock {
	return c.clock
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// HTTPServices returns the services the HTTP adapter serves.
func (c *Container) HTTPServices() httpserver.Services {
	return httpserver.Services{
		Ingest:   c.services.Ingest,
		Envelope: c.services.Envelope,
		Closings: c.services.Closings,
		Review:   c.services.Review,
		Summary:  c.services.Summary,
		Folders:  c.services.Folders,
	}
}

// HTTPLogger returns the key-value logger for the HTTP adapter.
func (c *Container) HTTPLogger() httpserver.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the key-value Logger interfaces of
// the services and the HTTP adapter.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.logger.Warn(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields. Errors keep
// their message under the given key.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

var (
	_ service.Logger    = (*zapLoggerAdapter)(nil)
	_ httpserver.Logger = (*zapLoggerAdapter)(nil)
)
