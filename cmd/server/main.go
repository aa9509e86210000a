package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/cierres-audit/internal/config"
	"github.com/garyjia/cierres-audit/internal/container"
	httpserver "github.com/garyjia/cierres-audit/internal/interfaces/http"
	"github.com/garyjia/cierres-audit/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	// Secrets usually live in .env during development
	if err := gotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting cash closing audit service",
		zap.Int("port", cfg.Server.Port),
		zap.String("evidence_provider", cfg.Evidence.Provider),
		zap.Bool("review_worker", cfg.Worker.Enabled),
		zap.Bool("notifications", cfg.Lark.Enabled()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	serverCfg := httpserver.DefaultServerConfig()
	serverCfg.Host = cfg.Server.Host
	serverCfg.Port = cfg.Server.Port
	serverCfg.ReadTimeout = cfg.Server.ReadTimeout
	serverCfg.WriteTimeout = cfg.Server.WriteTimeout
	serverCfg.CronSecret = cfg.Server.CronSecret
	serverCfg.APIToken = cfg.Server.APIToken
	serverCfg.Debug = cfg.Logger.Level == "debug"

	if serverCfg.CronSecret == "" {
		logger.Warn("CRON_SECRET not set, scheduled job routes are disabled")
	}

	server := httpserver.NewServer(serverCfg, c.HTTPServices(), c.Clock(), c.HTTPLogger())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", zap.Any("health", c.Health()))
		return nil
	})

	return g.Wait()
}
