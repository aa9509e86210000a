package container

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
	"github.com/garyjia/cierres-audit/internal/application/service"
	"github.com/garyjia/cierres-audit/internal/audit"
	"github.com/garyjia/cierres-audit/internal/config"
	"github.com/garyjia/cierres-audit/internal/dates"
	"github.com/garyjia/cierres-audit/internal/evidence"
	"github.com/garyjia/cierres-audit/internal/infrastructure/external/drive"
	infraLark "github.com/garyjia/cierres-audit/internal/infrastructure/external/lark"
	"github.com/garyjia/cierres-audit/internal/infrastructure/external/openai"
	"github.com/garyjia/cierres-audit/internal/infrastructure/persistence/repository"
	"github.com/garyjia/cierres-audit/internal/parser"
	"github.com/garyjia/cierres-audit/internal/storage"
	"github.com/garyjia/cierres-audit/internal/worker"
	"github.com/garyjia/cierres-audit/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr port.TransactionManager
}

// EvidenceBundle holds the evidence store, read by reviews and provisioned
// by the folder job. Both roles are played by the same backend.
type EvidenceBundle struct {
	Source      port.EvidenceSource
	Provisioner port.FolderProvisioner
	Provider    string
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: repository.NewTransactionManager(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &RepositoryBundle{
		Closings: repository.NewClosingRepository(db.DB, logger),
		Alerts:   repository.NewAlertRepository(db.DB, logger),
		Inbox:    repository.NewInboxRepository(db.DB, logger),
		Cache:    repository.NewExtractionCacheRepository(db.DB, logger),
	}, nil
}

// ProvideVisionModel creates the OpenAI vision model. Prompts come from the
// configured YAML file when one is set.
func ProvideVisionModel(cfg config.OpenAIConfig, logger *zap.Logger) (port.VisionModel, error) {
	if cfg.APIKey == "" {
		logger.Warn("OpenAI API key not set, evidence reviews will fail")
	}

	prompts := openai.DefaultPrompts()
	if cfg.PromptsPath != "" {
		loaded, err := openai.LoadPrompts(cfg.PromptsPath)
		if err != nil {
			return nil, err
		}
		prompts = loaded
		logger.Info("Loaded prompts", zap.String("path", cfg.PromptsPath))
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return openai.NewVisionModelWithClient(
		goopenai.NewClientWithConfig(clientCfg),
		openai.Config{Model: cfg.Model, Prompts: prompts},
		openai.NewPDFRasterizer(cfg.MaxPDFPages),
		logger,
	), nil
}

// ProvideNotifier creates the Lark notifier. It returns nil when Lark is not
// configured; the services then skip notifications.
func ProvideNotifier(cfg config.LarkConfig, logger *zap.Logger) port.Notifier {
	if !cfg.Enabled() {
		logger.Warn("Lark not configured, notifications disabled")
		return nil
	}

	larkCfg := infraLark.Config{
		AppID:         cfg.AppID,
		AppSecret:     cfg.AppSecret,
		ReceiveID:     cfg.ReceiveID,
		ReceiveIDType: cfg.ReceiveIDType,
	}
	return infraLark.NewNotifier(infraLark.NewSDKClient(larkCfg, logger), larkCfg, logger)
}

// ProvideEvidence creates the evidence store for the configured provider.
// The drive provider without a root folder falls back to the local
// directory.
func ProvideEvidence(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*EvidenceBundle, error) {
	if cfg.Evidence.Provider == config.ProviderDrive {
		if cfg.Drive.RootFolderID != "" {
			svc, err := drive.NewService(ctx, cfg.Drive.ServiceAccountKey)
			if err != nil {
				return nil, err
			}
			client := drive.NewClient(svc, drive.Config{
				RootFolderID: cfg.Drive.RootFolderID,
				MaxFileBytes: cfg.Drive.MaxFileBytes,
			}, logger)
			return &EvidenceBundle{Source: client, Provisioner: client, Provider: config.ProviderDrive}, nil
		}
		logger.Warn("Drive root folder not set, using local evidence directory",
			zap.String("dir", cfg.Evidence.LocalDir))
	}

	local := storage.NewLocalEvidenceSource(cfg.Evidence.LocalDir, cfg.Drive.MaxFileBytes, logger)
	return &EvidenceBundle{Source: local, Provisioner: local, Provider: config.ProviderLocal}, nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Config    *config.Config
	Clock     dates.Clock
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Evidence  *EvidenceBundle
	Model     port.VisionModel
	Notifier  port.Notifier
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Evidence == nil {
		return nil, fmt.Errorf("evidence store is required")
	}

	cfg := deps.Config
	thresholds := cfg.Audit.Thresholds()
	classifier := audit.NewClassifier(thresholds)

	p := parser.New(
		parser.DefaultPatterns(),
		parser.NewBusinessResolver(cfg.Business.Aliases, cfg.Business.Names),
		dates.NewParser(dates.DefaultTables(), deps.Clock.Location),
		deps.Clock,
	)

	orchestrator := evidence.NewOrchestrator(
		deps.Repos.Cache,
		deps.Evidence.Source,
		deps.Model,
		cfg.Evidence.MaxBatchBytes,
		deps.Logger,
	)

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	return &ServiceBundle{
		Ingest: service.NewIngestService(
			p,
			classifier,
			deps.Repos.Inbox,
			deps.Repos.Closings,
			deps.Repos.Alerts,
			deps.TxManager,
			serviceLogger,
		),
		Envelope: service.NewEnvelopeService(classifier, deps.Repos.Closings, serviceLogger),
		Closings: service.NewClosingService(deps.Repos.Closings, deps.Repos.Alerts, serviceLogger),
		Review: service.NewReviewService(
			deps.Repos.Closings,
			deps.Repos.Alerts,
			deps.Evidence.Source,
			deps.Model,
			orchestrator,
			deps.Notifier,
			serviceLogger,
		),
		Summary: service.NewSummaryService(
			deps.Repos.Closings,
			deps.Repos.Alerts,
			deps.Notifier,
			thresholds,
			deps.Clock,
			serviceLogger,
		),
		Folders: service.NewFolderService(deps.Evidence.Provisioner, cfg.Business.Names, deps.Clock, serviceLogger),
	}, nil
}

// ProvideWorkers creates the worker manager. The review poller is registered
// only when enabled.
func ProvideWorkers(cfg config.WorkerConfig, review service.ReviewService, logger *zap.Logger) (*worker.Manager, error) {
	if review == nil {
		return nil, fmt.Errorf("review service is required")
	}

	manager := worker.NewManager(logger)
	if cfg.Enabled {
		manager.Register(worker.NewReviewPoller(review, worker.PollerConfig{
			Interval:   cfg.Interval,
			BatchSize:  cfg.BatchSize,
			ReviewTime: cfg.ReviewTime,
		}, logger))
	} else {
		logger.Info("Review poller disabled, the queue is drained by the cron route")
	}
	return manager, nil
}
