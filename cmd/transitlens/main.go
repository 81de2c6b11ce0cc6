package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sanspareilsmyn/transitlens/internal/config"
	"github.com/sanspareilsmyn/transitlens/internal/logging"
	"github.com/sanspareilsmyn/transitlens/internal/pipeline"
)

var (
	configFile = flag.String("config", "configs/config.dev.yaml", "Path to the configuration file")
	logger     *zap.Logger
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config %s: %v\n", *configFile, err)
		os.Exit(1)
	}
	if logger, err = logging.NewLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	sugar := logger.Sugar()
	sugar.Infow("Configuration loaded successfully",
		"path", *configFile,
		"tool", cfg.Run.Tool,
		"max_workers", cfg.Run.MaxWorkers,
	)

	// SIGINT/SIGTERM cancel the run; units in flight stop at their next solve.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSrv *metricsServer
	if cfg.Metrics.Addr != "" {
		metricsSrv = startMetricsServer(cfg.Metrics.Addr, logger.Named("metrics"))
	}

	runErr := run(ctx, cfg, uuid.NewString(), logger)
	if metricsSrv != nil {
		metricsSrv.shutdown()
	}
	if runErr != nil {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run opens the sinks, executes the configured tool and logs the outcome.
// Every failure is returned so main can stop the metrics server and flush
// the logger before exiting.
func run(ctx context.Context, cfg *config.Config, runID string, logger *zap.Logger) error {
	snk, err := openSinks(ctx, cfg.Output, runID, logger)
	if err != nil {
		logger.Error("Failed to open output sinks", zap.String("run_id", runID), zap.Error(err))
		return err
	}

	runner := pipeline.NewWithRunID(runID, pipeline.Options{
		MaxWorkers: cfg.Run.MaxWorkers,
		ChunkSize:  cfg.Run.ChunkSize,
		TimeChunks: cfg.Run.TimeChunks,
	}, snk, logger)

	result, runErr := runner.Run(ctx, cfg.Run)
	if err := snk.Close(); err != nil {
		logger.Sugar().Warnw("Closing output sinks failed", zap.Error(err))
	}

	finalLevel := zapcore.InfoLevel
	reason := "completed"
	errField := zap.Skip()
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		reason = "cancelled"
	default:
		reason = "failed"
		finalLevel = zapcore.ErrorLevel
		errField = zap.Error(runErr)
	}
	logger.Log(finalLevel, fmt.Sprintf("Run %s.", reason),
		zap.String("run_id", runID),
		zap.String("tool", cfg.Run.Tool),
		zap.Int("rows_written", result.RowsWritten),
		zap.Int("skipped_timestamps", len(result.Skipped)),
		zap.Int("failed_units", len(result.FailedUnits)),
		errField,
	)
	return runErr
}
