package main

import (
	"context"
	"errors"
	"os"
	"time"

	"medrent/internal/cli"
	"medrent/internal/config"
	mlog "medrent/internal/log"
	"medrent/internal/services"
	"medrent/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(mlog.ComponentWorker, cfg.LogLevel)

	logger.Info("Starting agenda-worker", mlog.FieldOperation, mlog.OpStartup)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the agenda worker")
		os.Exit(1)
	}

	ctx := context.Background()

	agenda, err := cli.NewAgenda(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize agenda", "error", err)
		os.Exit(1)
	}
	agendaWorker := worker.NewAgendaWorker(agenda)

	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on anything published while the worker was down.
	logger.Info("Performing startup backfill...")
	if err := backfill(runCtx, logger, cfg, agendaWorker); err != nil {
		logger.Error("Startup backfill failed", "error", err)
		// continue with normal operation
	}

	go func() {
		err := amqpClient.ConsumeNotifications(runCtx, agendaWorker.HandleNotification)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(runCtx, done)
}

// backfill runs one refresh pass without a publisher and writes its
// notifications to the agenda.
func backfill(ctx context.Context, logger *mlog.Logger, cfg *config.Config, w *worker.AgendaWorker) error {
	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer result.Close()

	processor := services.NewRefreshProcessor(result.Backend, result.Backend, nil, nil, cli.RefreshConfig(cfg))
	pass, err := processor.Refresh(ctx, processor.Today())
	if err != nil {
		return err
	}
	written, err := w.Backfill(ctx, pass.Notifications, pass.AsOf)
	if err != nil {
		return err
	}
	logger.Info("Startup backfill complete", "backend", cfg.DataBackend, "written", written, "notifications", len(pass.Notifications))
	return nil
}
