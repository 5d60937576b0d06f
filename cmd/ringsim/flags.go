package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	Hold        time.Duration
	Timeout     time.Duration
	ShowVersion bool
	ShowHelp    bool
	Validate    bool

	// Workload holds the workload flags; see resolveWorkload for how they combine with a config file
	Workload Config

	set   map[string]bool
	usage func()
}

// workloadFlag ties a workload flag to its environment variable and the Config field it sets.
type workloadFlag struct {
	name  string
	env   string
	apply func(dst *Config, src Config)
}

var workloadFlags = []workloadFlag{
	{"capacity", "RINGSIM_CAPACITY", func(d *Config, s Config) { d.Capacity = s.Capacity }},
	{"growth", "RINGSIM_GROWTH", func(d *Config, s Config) { d.Growth = s.Growth }},
	{"boundary", "RINGSIM_BOUNDARY", func(d *Config, s Config) { d.Boundary = s.Boundary }},
	{"allocator", "RINGSIM_ALLOCATOR", func(d *Config, s Config) { d.Allocator = s.Allocator }},
	{"max-slots", "RINGSIM_MAX_SLOTS", func(d *Config, s Config) { d.MaxSlots = s.MaxSlots }},
	{"items", "RINGSIM_ITEMS", func(d *Config, s Config) { d.Items = s.Items }},
	{"producers", "RINGSIM_PRODUCERS", func(d *Config, s Config) { d.Producers = s.Producers }},
	{"consumers", "RINGSIM_CONSUMERS", func(d *Config, s Config) { d.Consumers = s.Consumers }},
	{"batch", "RINGSIM_BATCH", func(d *Config, s Config) { d.BatchSize = s.BatchSize }},
	{"rate", "RINGSIM_RATE", func(d *Config, s Config) { d.Rate = s.Rate }},
	{"retry", "RINGSIM_RETRY", func(d *Config, s Config) { d.Retry = s.Retry }},
}

func parseFlags(args []string, output io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{set: make(map[string]bool)}
	def := DefaultConfig()

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("RINGSIM_CONFIG", ""),
		"Path to a JSON workload file (env: RINGSIM_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("RINGSIM_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: RINGSIM_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("RINGSIM_LOG_FORMAT", "text"),
		"Log format: json, text (env: RINGSIM_LOG_FORMAT)")

	fs.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("RINGSIM_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: RINGSIM_METRICS_PORT)")

	fs.DurationVar(&cfg.Hold, "hold",
		getEnvDuration("RINGSIM_HOLD", 0),
		"Keep the metrics endpoint up this long after the run (env: RINGSIM_HOLD)")

	fs.DurationVar(&cfg.Timeout, "timeout",
		getEnvDuration("RINGSIM_TIMEOUT", time.Minute),
		"Abort the run after this long, 0 for no limit (env: RINGSIM_TIMEOUT)")

	w := &cfg.Workload
	fs.IntVar(&w.Capacity, "capacity", getEnvInt("RINGSIM_CAPACITY", def.Capacity),
		"Initial buffer capacity (env: RINGSIM_CAPACITY)")
	fs.StringVar(&w.Growth, "growth", getEnv("RINGSIM_GROWTH", def.Growth),
		"Growth policy: fixed, grow_by_one, grow_by_doubling (env: RINGSIM_GROWTH)")
	fs.StringVar(&w.Boundary, "boundary", getEnv("RINGSIM_BOUNDARY", def.Boundary),
		"Boundary policy: checked, unchecked (env: RINGSIM_BOUNDARY)")
	fs.StringVar(&w.Allocator, "allocator", getEnv("RINGSIM_ALLOCATOR", def.Allocator),
		"Storage allocator: heap, pool (env: RINGSIM_ALLOCATOR)")
	fs.IntVar(&w.MaxSlots, "max-slots", getEnvInt("RINGSIM_MAX_SLOTS", def.MaxSlots),
		"Cap on allocated slots, 0 for no cap (env: RINGSIM_MAX_SLOTS)")
	fs.IntVar(&w.Items, "items", getEnvInt("RINGSIM_ITEMS", def.Items),
		"Total items to produce (env: RINGSIM_ITEMS)")
	fs.IntVar(&w.Producers, "producers", getEnvInt("RINGSIM_PRODUCERS", def.Producers),
		"Producer goroutines (env: RINGSIM_PRODUCERS)")
	fs.IntVar(&w.Consumers, "consumers", getEnvInt("RINGSIM_CONSUMERS", def.Consumers),
		"Consumer goroutines (env: RINGSIM_CONSUMERS)")
	fs.IntVar(&w.BatchSize, "batch", getEnvInt("RINGSIM_BATCH", def.BatchSize),
		"Maximum items per consumer pop (env: RINGSIM_BATCH)")
	fs.Float64Var(&w.Rate, "rate", getEnvFloat("RINGSIM_RATE", def.Rate),
		"Producer rate in items/s, 0 for unlimited (env: RINGSIM_RATE)")
	fs.StringVar(&w.Retry, "retry", getEnv("RINGSIM_RETRY", def.Retry),
		"Retry preset on overflow/underflow: default, spin, persistent (env: RINGSIM_RETRY)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	// Custom usage
	fs.Usage = func() {
		printDetailedHelp(fs, output)
	}

	cfg.usage = fs.Usage

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })
	for _, wf := range workloadFlags {
		if os.Getenv(wf.env) != "" {
			cfg.set[wf.name] = true
		}
	}

	return cfg, nil
}

// resolveWorkload layers the workload settings: defaults, then the config file, then any
// workload flag given on the command line or through its environment variable.
func resolveWorkload(cli *CLIConfig) (Config, error) {
	if cli.ConfigPath == "" {
		return cli.Workload, nil
	}

	cfg, err := LoadConfig(cli.ConfigPath, DefaultConfig())
	if err != nil {
		return Config{}, err
	}
	for _, wf := range workloadFlags {
		if cli.set[wf.name] {
			wf.apply(&cfg, cli.Workload)
		}
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !slices.Contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	if cfg.Hold < 0 || cfg.Timeout < 0 {
		return fmt.Errorf("durations cannot be negative")
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet, output io.Writer) {
	_, _ = fmt.Fprintf(output, `%s - ring buffer producer/consumer simulator

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(output, `
Examples:
  # Bounded buffer, producers back off on overflow
  %s -capacity=32 -items=100000

  # Overwriting buffer, count what gets dropped
  %s -boundary=unchecked -producers=4 -consumers=1

  # Growable buffer capped at 4096 slots, metrics on :9090 for a minute
  %s -growth=grow_by_doubling -capacity=1 -max-slots=4096 -metrics-port=9090 -hold=1m

  # Workload from a file, one field overridden
  export RINGSIM_CONFIG=workload.json
  %s -rate=5000

Version: %s
`, appName, appName, appName, appName, Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
