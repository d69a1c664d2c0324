package main

import (
	"context"
	"os"
	"time"

	"medrent/internal/cache"
	"medrent/internal/cli"
	mlog "medrent/internal/log"
	"medrent/internal/services"
	"medrent/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(mlog.ComponentRefresh, cfg.LogLevel)

	logger.Info("Starting refresh-worker", mlog.FieldOperation, mlog.OpStartup)

	ctx := context.Background()

	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer result.Close()

	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	// Without a broker the agenda is written in process.
	var publisher services.NotificationPublisher
	switch {
	case amqpClient != nil:
		defer amqpClient.Close()
		publisher = amqpClient
	case cfg.AgendaEnabled():
		agenda, err := cli.NewAgenda(ctx, logger, cfg)
		if err != nil {
			logger.Error("Failed to initialize agenda", "error", err)
			os.Exit(1)
		}
		publisher = worker.NewAgendaWorker(agenda)
		logger.Info("AMQP disabled, writing notifications to the agenda directly")
	default:
		logger.Warn("Neither AMQP nor an agenda sheet is configured, notifications are computed but not delivered")
	}

	processor := services.NewRefreshProcessor(result.Backend, result.Backend, publisher, nil, cli.RefreshConfig(cfg))

	cacheManager := cache.NewManager()
	cacheManager.Register(processor.Cache())
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("Refresh processor stop error", "error", err)
		}
	})

	if err := processor.Start(runCtx); err != nil {
		logger.Error("Failed to start refresh processor", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
}
