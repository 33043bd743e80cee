package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"buestanflow/internal/cache"
	"buestanflow/internal/cli"
	"buestanflow/internal/core"
	apphttp "buestanflow/internal/http"
	applog "buestanflow/internal/log"
	"buestanflow/internal/middleware/ratelimit"
	"buestanflow/internal/services"
	"buestanflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	be := cli.CreateBackend(context.Background(), logger, cfg)

	svc := services.NewSummaryService(be.Store, logger)
	summaries := cache.NewSummaryCache(svc, cfg.CacheSize, cfg.CacheTTL)

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(cfg.CacheTTL)

	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		// Alerts are an add-on; the dashboard still serves without a broker
		logger.Error("AMQP unavailable, alert notifications disabled", applog.FieldError, err)
	}

	var publisher worker.AlertPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	minSeverity, _ := core.ParseSeverity(cfg.AlertNotifyMinSeverity)
	refresher := worker.NewSummaryWorker(svc, publisher, worker.Options{
		MinSeverity: minSeverity,
		Invalidator: summaries,
		Logger:      logger,
	})

	alertOrder, _ := services.ParseAlertOrder(cfg.AlertOrder)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Summaries:  summaries,
		Ready:      be.CheckReady,
		AlertOrder: alertOrder,
		RateLimit:  ratelimit.DefaultConfig(),
		Logger:     logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			amqpClient.Close()
		}
		if err := be.Close(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	go func() {
		if err := refresher.Run(ctx, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Summary refresh loop stopped", applog.FieldError, err)
		}
	}()

	logger.Info("Starting buestanflow server",
		append(applog.NewFields().
			WithOperation(applog.OpStartup).
			WithBackend(be.Type.String()).
			WithSummaryOptions(string(services.SelectAll), string(alertOrder)).
			ToSlice(),
			"port", cfg.Port,
			"refresh_interval", cfg.RefreshInterval)...)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
