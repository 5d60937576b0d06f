package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/mzenz/CircularBuffer/errors"
)

// Config describes one simulated workload.
type Config struct {
	Capacity  int     `json:"capacity"`
	Growth    string  `json:"growth"`    // fixed, grow_by_one, grow_by_doubling
	Boundary  string  `json:"boundary"`  // checked, unchecked
	Allocator string  `json:"allocator"` // heap, pool
	MaxSlots  int     `json:"max_slots"` // 0 = unlimited
	Items     int     `json:"items"`
	Producers int     `json:"producers"`
	Consumers int     `json:"consumers"`
	BatchSize int     `json:"batch_size"`
	Rate      float64 `json:"rate"`  // items/s across all producers, 0 = unlimited
	Retry     string  `json:"retry"` // default, spin, persistent
}

var (
	validGrowth     = []string{"fixed", "grow_by_one", "grow_by_doubling"}
	validBoundary   = []string{"checked", "unchecked"}
	validAllocators = []string{"heap", "pool"}
	validRetry      = []string{"default", "spin", "persistent"}
)

// DefaultConfig returns a small bounded producer/consumer run.
func DefaultConfig() Config {
	return Config{
		Capacity:  64,
		Growth:    "fixed",
		Boundary:  "checked",
		Allocator: "heap",
		Items:     10000,
		Producers: 2,
		Consumers: 2,
		BatchSize: 16,
		Retry:     "spin",
	}
}

// LoadConfig reads a JSON workload file. Fields absent from the file keep their value in base.
func LoadConfig(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, errors.WrapInvalid(err, "Config", "LoadConfig", "read file")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	cfg := base
	if err := dec.Decode(&cfg); err != nil {
		return base, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err),
			"Config", "LoadConfig", fmt.Sprintf("parse %s", path))
	}
	return cfg, nil
}

// Validate checks that the workload can run.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.WrapInvalid(fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidConfig}, args...)...),
			"Config", "Validate", "check workload")
	}

	if c.Capacity < 0 {
		return invalid("capacity cannot be negative: %d", c.Capacity)
	}
	if !slices.Contains(validGrowth, c.Growth) {
		return invalid("unknown growth policy %q", c.Growth)
	}
	if !slices.Contains(validBoundary, c.Boundary) {
		return invalid("unknown boundary policy %q", c.Boundary)
	}
	if !slices.Contains(validAllocators, c.Allocator) {
		return invalid("unknown allocator %q", c.Allocator)
	}
	if c.MaxSlots < 0 {
		return invalid("max_slots cannot be negative: %d", c.MaxSlots)
	}
	if c.MaxSlots > 0 && c.MaxSlots < c.Capacity {
		return invalid("max_slots %d cannot hold the initial capacity %d", c.MaxSlots, c.Capacity)
	}
	if c.Items <= 0 {
		return invalid("items must be positive: %d", c.Items)
	}
	if c.Producers <= 0 || c.Consumers <= 0 {
		return invalid("need at least one producer and one consumer")
	}
	if c.BatchSize <= 0 {
		return invalid("batch_size must be positive: %d", c.BatchSize)
	}
	if c.Rate < 0 {
		return invalid("rate cannot be negative: %g", c.Rate)
	}
	if !slices.Contains(validRetry, c.Retry) {
		return invalid("unknown retry preset %q", c.Retry)
	}
	// A fixed checked buffer with no slots can never accept an item
	if c.Capacity == 0 && c.Growth == "fixed" && c.Boundary == "checked" {
		return invalid("fixed checked buffer needs a positive capacity")
	}
	return nil
}
