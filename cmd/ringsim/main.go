// Package main implements ringsim, a producer/consumer simulator that drives a ring buffer
// under a chosen growth and boundary policy and reports what happened to every item.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/mzenz/CircularBuffer/health"
	"github.com/mzenz/CircularBuffer/metric"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "ringsim"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("Simulation failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	runID := uuid.New().String()

	cliCfg, logger, shouldExit, err := initializeCLI(args, runID, stdout, stderr)
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		logger.Info("Configuration is valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()
	monitor := health.NewMonitor()
	if cliCfg.MetricsPort > 0 {
		server := metric.NewServer(cliCfg.MetricsPort, "/metrics", registry)
		server.SetHealthHandler(monitor.Handler(appName))
		if err := server.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() { _ = server.Stop() }()
		logger.Info("Metrics server listening", "address", server.Address())
	}

	result, err := simulate(ctx, runID, cliCfg, cfg, registry, monitor, logger)
	if result != nil {
		if encErr := writeResult(stdout, result); encErr != nil {
			logger.Warn("Failed to write result", "error", encErr)
		}
	}
	if err != nil {
		return err
	}

	hold(ctx, cliCfg.Hold, logger)
	return nil
}

// initializeCLI parses flags and sets up logging
func initializeCLI(args []string, runID string, stdout, stderr io.Writer) (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg, err := parseFlags(args, stderr)
	if err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		cliCfg.usage()
		return nil, nil, true, nil
	}

	logger := setupLogger(stderr, cliCfg.LogLevel, cliCfg.LogFormat, runID)
	slog.SetDefault(logger)

	logger.Info("Starting ringsim", "config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration resolves and validates the workload
func initializeConfiguration(cliCfg *CLIConfig) (Config, error) {
	cfg, err := resolveWorkload(cliCfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// simulate runs one workload, bounded by the CLI timeout.
func simulate(
	ctx context.Context,
	runID string,
	cliCfg *CLIConfig,
	cfg Config,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	logger *slog.Logger,
) (*Result, error) {
	if cliCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliCfg.Timeout)
		defer cancel()
	}

	workload, err := NewWorkload(runID, cfg, registry, logger)
	if err != nil {
		return nil, fmt.Errorf("create workload: %w", err)
	}
	workload.ReportHealth(monitor)
	defer func() {
		if err := workload.Close(); err != nil {
			logger.Warn("Failed to close workload", "error", err)
		}
	}()

	return workload.Run(ctx)
}

// hold keeps the process (and its metrics endpoint) alive for d or until ctx is done.
func hold(ctx context.Context, d time.Duration, logger *slog.Logger) {
	if d <= 0 {
		return
	}
	logger.Info("Holding for metrics scrape", "duration", d)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func writeResult(w io.Writer, result *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
