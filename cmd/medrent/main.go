package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"medrent/internal/cache"
	"medrent/internal/cli"
	apphttp "medrent/internal/http"
	mlog "medrent/internal/log"
	"medrent/internal/metrics"
	"medrent/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(mlog.ComponentApp, cfg.LogLevel)

	ctx := context.Background()

	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		result.Close()
		os.Exit(1)
	}
	var publisher services.NotificationPublisher
	if amqpClient != nil {
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled, notifications are not fanned out")
	}

	processor := services.NewRefreshProcessor(result.Backend, result.Backend, publisher, m, cli.RefreshConfig(cfg))

	cacheManager := cache.NewManager()
	cacheManager.Register(processor.Cache())
	cacheManager.StartCleanup(cfg.CacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, processor, result.Backend, apphttp.Options{
		Metrics:    m,
		Gatherer:   reg,
		Logger:     logger,
		WriteLimit: cfg.WriteLimit,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("Refresh processor stop error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		result.Close()
	})

	if err := processor.Start(runCtx); err != nil {
		logger.Error("Failed to start refresh processor", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting medrent server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"refresh_interval", cfg.RefreshInterval,
		mlog.FieldOperation, mlog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(runCtx, done)
}
