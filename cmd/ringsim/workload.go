package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mzenz/CircularBuffer/errors"
	"github.com/mzenz/CircularBuffer/health"
	"github.com/mzenz/CircularBuffer/metric"
	"github.com/mzenz/CircularBuffer/pkg/buffer"
	"github.com/mzenz/CircularBuffer/pkg/retry"
)

// Workload status values reported through the workload status gauge
const (
	statusStopped = 0
	statusRunning = 1
	statusFailed  = 2
)

// healthInterval is how often a running workload samples buffer health
const healthInterval = 500 * time.Millisecond

// Workload drives one buffer with concurrent producers and consumers. The buffer itself is
// single-owner, so every access goes through mu.
type Workload struct {
	id      string
	cfg     Config
	logger  *slog.Logger
	core    *metric.Metrics
	limiter *rate.Limiter
	monitor *health.Monitor

	mu       sync.Mutex
	buf      buffer.Buffer[int]
	lastSeq  []int // per producer, guarded by mu
	disorder int   // guarded by mu

	produced atomic.Int64
	consumed atomic.Int64
	dropped  atomic.Int64
}

// Result summarizes a finished run.
type Result struct {
	RunID    string              `json:"run_id"`
	Config   Config              `json:"config"`
	Produced int64               `json:"produced"`
	Consumed int64               `json:"consumed"`
	Dropped  int64               `json:"dropped"`
	Disorder int                 `json:"out_of_order"`
	Duration time.Duration       `json:"duration"`
	Buffer   buffer.StatsSummary `json:"buffer"`
}

// NewWorkload builds the buffer described by cfg. registry may be nil to run without metrics.
func NewWorkload(id string, cfg Config, registry *metric.MetricsRegistry, logger *slog.Logger) (*Workload, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	w := &Workload{
		id:      id,
		cfg:     cfg,
		logger:  logger,
		lastSeq: make([]int, cfg.Producers),
	}
	for i := range w.lastSeq {
		w.lastSeq[i] = -1
	}

	if cfg.Rate > 0 {
		burst := max(1, int(cfg.Rate/10))
		w.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}

	opts := []buffer.Option[int]{
		buffer.WithAllocator[int](newAllocator(cfg)),
		buffer.WithLogger[int](logger),
		buffer.WithDropCallback[int](func(int) { w.dropped.Add(1) }),
	}
	if registry != nil {
		w.core = registry.CoreMetrics()
		opts = append(opts, buffer.WithMetrics[int](registry, "ringsim_"+id))
	}

	buf, err := newBuffer(cfg, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "Workload", "NewWorkload", "create buffer")
	}
	w.buf = buf

	return w, nil
}

// ReportHealth makes Run publish the workload and buffer health to monitor.
func (w *Workload) ReportHealth(monitor *health.Monitor) {
	w.monitor = monitor
}

// Run starts the producers and consumers and waits until every produced item has been
// consumed or dropped. The first failure cancels the run.
func (w *Workload) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	w.setStatus(statusRunning)

	w.logger.Info("Workload starting",
		"capacity", w.cfg.Capacity,
		"growth", w.cfg.Growth,
		"boundary", w.cfg.Boundary,
		"allocator", w.cfg.Allocator,
		"items", w.cfg.Items,
		"producers", w.cfg.Producers,
		"consumers", w.cfg.Consumers)

	stopSampling := w.sampleHealth()

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var producers sync.WaitGroup
	for p := 0; p < w.cfg.Producers; p++ {
		p := p
		producers.Add(1)
		g.Go(func() error {
			defer producers.Done()
			return w.produce(gctx, p)
		})
	}
	g.Go(func() error {
		producers.Wait()
		close(done)
		return nil
	})
	for c := 0; c < w.cfg.Consumers; c++ {
		g.Go(func() error {
			return w.consume(gctx, done)
		})
	}

	err := g.Wait()
	stopSampling()
	result := w.result(time.Since(start))
	w.publishHealth(result, err)
	if err != nil {
		w.setStatus(statusFailed)
		w.logger.Error("Workload failed", "error", err, "class", errors.Classify(err).String())
		return result, err
	}

	w.setStatus(statusStopped)
	w.logger.Info("Workload finished",
		"produced", result.Produced,
		"consumed", result.Consumed,
		"dropped", result.Dropped,
		"duration", result.Duration)
	return result, nil
}

// Close releases the buffer.
func (w *Workload) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Close()
}

// share returns how many items producer p emits.
func (w *Workload) share(p int) int {
	n := w.cfg.Items / w.cfg.Producers
	if p < w.cfg.Items%w.cfg.Producers {
		n++
	}
	return n
}

// Items carry their producer and sequence number so consumers can check per-producer order.
func (w *Workload) encode(p, seq int) int { return p*w.cfg.Items + seq }

func (w *Workload) decode(item int) (p, seq int) { return item / w.cfg.Items, item % w.cfg.Items }

func (w *Workload) produce(ctx context.Context, p int) error {
	cfg := w.retryConfig("push", nil)

	for seq := 0; seq < w.share(p); seq++ {
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		item := w.encode(p, seq)
		start := time.Now()
		err := retry.Do(ctx, cfg, func() error { return w.push(item) })
		w.recordDuration("push", time.Since(start))
		if err != nil {
			w.recordFailure("push", err)
			return errors.Wrap(err, "Workload", "produce", "push item")
		}

		w.recordSuccess("push")
		w.produced.Add(1)
	}
	return nil
}

func (w *Workload) push(item int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Push(item)
}

func (w *Workload) consume(ctx context.Context, done <-chan struct{}) error {
	// Once producers are done an empty buffer is final, so stop retrying on it
	cfg := w.retryConfig("pop", func(err error) bool {
		return errors.IsTransient(err) && !closed(done)
	})

	for {
		start := time.Now()
		batch, err := retry.DoWithResult(ctx, cfg, w.popBatch)
		w.recordDuration("pop", time.Since(start))

		switch {
		case err == nil:
			w.recordSuccess("pop")
			w.consumed.Add(int64(len(batch)))
		case errors.IsUnderflow(err) && closed(done) && w.isEmpty():
			return nil
		case errors.IsUnderflow(err):
			// Retries ran out while producers were stalled, or the last push landed after the check
			w.logger.Debug("Consumer idle", "error", err)
		default:
			w.recordFailure("pop", err)
			return errors.Wrap(err, "Workload", "consume", "pop batch")
		}
	}
}

// popBatch pops up to BatchSize items. An empty buffer reports ErrBufferEmpty whatever the
// boundary policy, since an Unchecked buffer would otherwise yield zero values.
func (w *Workload) popBatch() ([]int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.IsEmpty() {
		return nil, errors.ErrBufferEmpty
	}
	batch, err := w.buf.PopBatch(w.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	for _, item := range batch {
		p, seq := w.decode(item)
		if seq <= w.lastSeq[p] {
			w.disorder++
		}
		w.lastSeq[p] = seq
	}
	return batch, nil
}

func (w *Workload) isEmpty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.IsEmpty()
}

func (w *Workload) retryConfig(operation string, retryable func(error) bool) retry.Config {
	var cfg retry.Config
	switch w.cfg.Retry {
	case "default":
		cfg = retry.DefaultConfig()
	case "persistent":
		cfg = retry.Persistent()
	default:
		cfg = retry.Spin()
	}

	cfg.Retryable = retryable
	cfg.OnRetry = func(int, error) {
		if w.core != nil {
			w.core.RecordRetry(w.id, operation)
		}
	}
	return cfg
}

func (w *Workload) result(elapsed time.Duration) *Result {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &Result{
		RunID:    w.id,
		Config:   w.cfg,
		Produced: w.produced.Load(),
		Consumed: w.consumed.Load(),
		Dropped:  w.dropped.Load(),
		Disorder: w.disorder,
		Duration: elapsed,
		Buffer:   w.buf.Stats().Summary(),
	}
}

// sampleHealth publishes buffer health every healthInterval until the returned func is called.
func (w *Workload) sampleHealth() (stop func()) {
	if w.monitor == nil {
		return func() {}
	}
	w.monitor.UpdateHealthy("workload", "Running")

	quit := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(healthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				w.mu.Lock()
				summary := w.buf.Stats().Summary()
				w.mu.Unlock()
				w.monitor.Update("buffer", health.FromBufferStats("buffer", summary, health.DefaultThresholds()))
			}
		}
	}()

	return func() {
		close(quit)
		<-finished
	}
}

func (w *Workload) publishHealth(result *Result, err error) {
	if w.monitor == nil {
		return
	}
	w.monitor.Update("buffer", health.FromBufferStats("buffer", result.Buffer, health.DefaultThresholds()))
	if err != nil {
		w.monitor.Update("workload", health.FromError("workload", err))
		return
	}
	w.monitor.UpdateHealthy("workload", "Finished")
}

func (w *Workload) recordSuccess(operation string) {
	if w.core != nil {
		w.core.RecordOperation(w.id, operation, "ok")
	}
}

func (w *Workload) recordFailure(operation string, err error) {
	if w.core != nil {
		w.core.RecordOperation(w.id, operation, "error")
		w.core.RecordError(w.id, errors.Classify(err).String())
	}
}

func (w *Workload) recordDuration(operation string, d time.Duration) {
	if w.core != nil {
		w.core.RecordOperationDuration(w.id, operation, d)
	}
}

func (w *Workload) setStatus(status int) {
	if w.core != nil {
		w.core.RecordWorkloadStatus(w.id, status)
	}
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
