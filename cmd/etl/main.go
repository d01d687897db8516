// Command etl runs the Twitch Helix extract, transform, and load
// pipeline, either as a full run or one stage at a time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/config"
	"github.com/stream-insights/twitch-etl-go/internal/db"
	"github.com/stream-insights/twitch-etl-go/internal/db/repository"
	"github.com/stream-insights/twitch-etl-go/internal/extract"
	"github.com/stream-insights/twitch-etl-go/internal/load"
	"github.com/stream-insights/twitch-etl-go/internal/pipeline"
	"github.com/stream-insights/twitch-etl-go/internal/queue"
	"github.com/stream-insights/twitch-etl-go/internal/server"
	"github.com/stream-insights/twitch-etl-go/internal/twitch"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

func main() {
	var stageName string
	flag.StringVar(&stageName, "stage", "full", "Pipeline stage to run: extract, transform, load, or full")
	flag.Parse()

	if err := run(stageName); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(stageName string) error {
	stage, err := pipeline.ParseStage(stageName)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := twitch.NewClient(cfg.Twitch, cfg.ETL.MaxRetries, cfg.ETL.RetryDelay)

	needsAPI := stage == pipeline.StageExtract || stage == pipeline.StageFull
	if needsAPI {
		if err := client.ValidateToken(ctx); err != nil {
			return fmt.Errorf("validate access token: %w", err)
		}
	}

	var (
		sink    load.Sink
		counter pipeline.Counter
		pinger  server.Pinger
	)

	needsDB := stage == pipeline.StageLoad || stage == pipeline.StageFull
	if needsDB {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close(pool)

		store := repository.NewStore(pool)
		sink = store
		counter = store
		pinger = store
	}

	srv := server.New(pinger)
	if cfg.ETL.StatusServer {
		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: srv.Router(),
		}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("status server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
		logger.Log.Info("status server listening", zap.Int("port", cfg.Server.Port))
	}

	runner := pipeline.New(extract.New(client, cfg.ETL), load.New(sink, cfg.ETL.LoadBatchSize), counter, cfg.ETL)

	report := runner.Run(ctx, stage)
	srv.SetReport(report)

	if cfg.ETL.PublishReport {
		if err := publishReport(ctx, cfg, report); err != nil {
			logger.Log.Error("publishing run report failed", zap.Error(err))
		}
	}

	if !report.Success {
		return fmt.Errorf("pipeline run %s failed: %s", report.RunID, report.Error)
	}

	logger.Log.Info("pipeline run succeeded",
		zap.String("run_id", report.RunID),
		zap.Float64("duration_seconds", report.Duration))
	return nil
}

func publishReport(ctx context.Context, cfg *config.Config, report *pipeline.RunReport) error {
	publisher, err := queue.NewReportPublisher(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return publisher.PublishReport(publishCtx, report)
}
