package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"buestanflow/internal/cli"
	"buestanflow/internal/core"
	applog "buestanflow/internal/log"
	"buestanflow/internal/services"
	"buestanflow/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting summary-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the summary worker")
		os.Exit(1)
	}

	be := cli.CreateBackend(context.Background(), logger, cfg)
	defer be.Close()

	amqpClient, err := cli.ConnectAMQP(logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	minSeverity, _ := core.ParseSeverity(cfg.AlertNotifyMinSeverity)
	svc := services.NewSummaryService(be.Store, logger)
	w := worker.NewSummaryWorker(svc, amqpClient, worker.Options{
		MinSeverity: minSeverity,
		Logger:      logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...", applog.FieldOperation, applog.OpShutdown)
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeSummaryRequests(gctx, w.HandleSummaryRequest)
	})
	g.Go(func() error {
		return w.Run(gctx, cfg.RefreshInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
