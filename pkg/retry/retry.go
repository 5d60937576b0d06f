// Package retry provides exponential backoff for buffer operations that fail transiently,
// such as a push into a full buffer that a consumer is draining.
package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/mzenz/CircularBuffer/errors"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried regardless of their class
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return stderrors.As(err, &nre)
}

// Config provides retry configuration
type Config struct {
	MaxAttempts  int           // Maximum number of attempts (0 = no retry, just run once)
	InitialDelay time.Duration // Initial delay between attempts
	MaxDelay     time.Duration // Maximum delay between attempts
	Multiplier   float64       // Backoff multiplier (typically 2.0)
	AddJitter    bool          // Add up to 25% randomness to each delay

	// Retryable decides whether an error is worth another attempt.
	// Nil retries the errors the errors package classifies as transient.
	Retryable func(error) bool

	// OnRetry, if set, is called before each backoff with the attempt that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns defaults suited to waiting on another goroutine
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Microsecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Spin returns a config for tight producer/consumer loops: many short waits
func Spin() Config {
	return Config{
		MaxAttempts:  1000,
		InitialDelay: time.Microsecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.5,
		AddJitter:    false,
	}
}

// Persistent returns a config for consumers that can afford to wait on a slow producer
func Persistent() Config {
	return Config{
		MaxAttempts:  30,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// validate checks the configuration and fills in zero values.
func (cfg Config) validate() (Config, error) {
	if cfg.InitialDelay < 0 {
		return cfg, fmt.Errorf("%w: InitialDelay cannot be negative", errors.ErrInvalidConfig)
	}
	if cfg.MaxDelay < 0 {
		return cfg, fmt.Errorf("%w: MaxDelay cannot be negative", errors.ErrInvalidConfig)
	}
	if cfg.Multiplier < 0 {
		return cfg, fmt.Errorf("%w: Multiplier cannot be negative", errors.ErrInvalidConfig)
	}
	// Prevent overflow with extremely large multipliers
	if cfg.Multiplier > 1000 {
		cfg.Multiplier = 1000
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1 // At least try once
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Microsecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 50 * time.Millisecond
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Retryable == nil {
		cfg.Retryable = errors.IsTransient
	}

	if cfg.MaxDelay < cfg.InitialDelay {
		return cfg, fmt.Errorf("%w: MaxDelay must be >= InitialDelay", errors.ErrInvalidConfig)
	}
	return cfg, nil
}

// Do executes fn with exponential backoff until it succeeds, returns an error that is not
// retryable, runs out of attempts or ctx is done. Exhausting the attempts returns a fatal
// error wrapping both ErrMaxRetriesExceeded and the last failure.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg, err := cfg.validate()
	if err != nil {
		return errors.WrapInvalid(err, "retry", "Do", "validate config")
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsNonRetryable(err) || !cfg.Retryable(err) {
			return err
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled before attempt %d: %w", attempt+1, ctx.Err())
		}

		// Don't sleep after the last attempt
		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		sleepDuration := delay
		if cfg.AddJitter && delay >= 4 {
			randMu.Lock()
			jitter := time.Duration(randSource.Int63n(int64(delay / 4)))
			randMu.Unlock()
			sleepDuration = delay + jitter
		}

		timer := time.NewTimer(sleepDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}

		// Calculate next delay with overflow protection
		nextDelay := float64(delay) * cfg.Multiplier
		if nextDelay > float64(cfg.MaxDelay) {
			delay = cfg.MaxDelay
		} else {
			delay = time.Duration(nextDelay)
		}
	}

	return errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrMaxRetriesExceeded, lastErr),
		"retry", "Do", fmt.Sprintf("%d attempts", cfg.MaxAttempts))
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
