// Package main 异步分析任务执行器入口（analysis-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gutenberg-analysis-api/internal/config"
	einoobs "gutenberg-analysis-api/internal/observability/eino"
	"gutenberg-analysis-api/internal/wire"
	"gutenberg-analysis-api/pkg/logger"
	"gutenberg-analysis-api/pkg/tracer"
)

// dlqAlertThreshold 死信队列长度超过该值时告警
const dlqAlertThreshold = 10

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    "analysis-worker",
		ServiceVersion: cfg.App.Version,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	if err := worker.Consumer.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start consumer", err)
	}
	go worker.Consumer.MonitorDLQ(ctx, time.Minute, dlqAlertThreshold)

	log := logger.FromContext(ctx)
	log.Info("analysis-worker started", "task_timeout", cfg.Analysis.TaskTimeout.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 先等待当前任务完成，再取消 ctx
	log.Info("analysis-worker shutting down")
	worker.Consumer.Stop()
}
