package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"

	"github.com/couchcryptid/storm-resilience/internal/domain"
	"github.com/couchcryptid/storm-resilience/internal/observability"
)

// BatchExtractor reads up to batchSize units from the source.
// It returns io.EOF once every unit has been handed out.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.UnitRows, error)
}

// Analyzer runs preprocessing and the resilience model for one unit.
type Analyzer interface {
	Analyze(ctx context.Context, unit domain.UnitRows) (Analysis, error)
}

// BatchLoader writes unit summaries to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, summaries []domain.Summary) error
}

// Sink is a named BatchLoader. The name labels the published-summaries metric.
type Sink struct {
	Name   string
	Loader BatchLoader
}

// RunReport tallies one batch run.
type RunReport struct {
	RunID      string       `json:"run_id"`
	Model      domain.Model `json:"model,omitempty"`
	Total      int          `json:"total"`
	Special    int          `json:"special"`
	Normal     int          `json:"normal"`
	Failed     int          `json:"failed"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
}

const (
	defaultInitialBackoff  = 200 * time.Millisecond
	defaultMaxBackoff      = 5 * time.Second
	defaultMaxLoadAttempts = 5
)

// Option tunes a Pipeline.
type Option func(*Pipeline)

// WithBackoff overrides the load retry backoff bounds.
func WithBackoff(initial, maxBackoff time.Duration) Option {
	return func(p *Pipeline) {
		p.initialBackoff = initial
		p.maxBackoff = maxBackoff
	}
}

// WithMaxLoadAttempts caps how often a sink is tried per batch.
func WithMaxLoadAttempts(n int) Option {
	return func(p *Pipeline) { p.maxLoadAttempts = max(n, 1) }
}

// Pipeline orchestrates the extract-analyze-load loop over every unit in a table.
type Pipeline struct {
	extractor BatchExtractor
	analyzer  Analyzer
	sinks     []Sink
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int

	initialBackoff  time.Duration
	maxBackoff      time.Duration
	maxLoadAttempts int

	mu   sync.RWMutex
	last *RunReport
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, a Analyzer, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, batchSize int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:       e,
		analyzer:        a,
		sinks:           sinks,
		logger:          logger,
		metrics:         metrics,
		batchSize:       batchSize,
		initialBackoff:  defaultInitialBackoff,
		maxBackoff:      defaultMaxBackoff,
		maxLoadAttempts: defaultMaxLoadAttempts,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once the pipeline has loaded at least one batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any summaries yet")
	}
	return nil
}

// LastReport returns the tally of the current or most recent run.
func (p *Pipeline) LastReport() (RunReport, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return RunReport{}, false
	}
	return *p.last, true
}

// Run analyzes every unit the extractor yields and loads the summaries into
// every sink. A unit whose analysis fails is logged and skipped. Run stops
// early when the context is cancelled or a sink keeps failing.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	p.logger.Info("pipeline started", "run_id", report.RunID, "batch_size", p.batchSize, "sinks", len(p.sinks))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			return p.finish(report), fmt.Errorf("run interrupted: %w", err)
		}

		done, err := p.processBatch(ctx, &report)
		if err != nil {
			return p.finish(report), err
		}
		p.publish(report)
		if done {
			break
		}
	}

	report = p.finish(report)
	p.logger.Info("pipeline finished",
		"run_id", report.RunID,
		"total", report.Total,
		"special", report.Special,
		"normal", report.Normal,
		"failed", report.Failed,
	)
	return report, nil
}

// processBatch runs one extract-analyze-load cycle. It reports done once the extractor is exhausted.
func (p *Pipeline) processBatch(ctx context.Context, report *RunReport) (bool, error) {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("run interrupted: %w", ctx.Err())
		}
		return false, fmt.Errorf("extract batch: %w", err)
	}
	if len(batch) == 0 {
		return false, nil
	}
	p.metrics.BatchSize.Observe(float64(len(batch)))

	summaries, err := p.analyzeBatch(ctx, batch, report)
	if err != nil {
		return false, err
	}
	if len(summaries) == 0 {
		return false, nil
	}

	for _, sink := range p.sinks {
		if err := p.loadWithRetry(ctx, sink, summaries); err != nil {
			return false, err
		}
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return false, nil
}

// analyzeBatch evaluates every unit in the batch, isolating per-unit failures.
func (p *Pipeline) analyzeBatch(ctx context.Context, batch []domain.UnitRows, report *RunReport) ([]domain.Summary, error) {
	summaries := make([]domain.Summary, 0, len(batch))
	for _, unit := range batch {
		a, err := p.analyzer.Analyze(ctx, unit)
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("run interrupted: %w", ctx.Err())
		}
		report.Total++
		p.metrics.UnitsProcessed.Inc()

		if err != nil {
			p.logger.Error("unit analysis failed, skipping unit", "unit_id", unit.Unit, "error", err)
			p.metrics.UnitFailures.Inc()
			report.Failed++
			continue
		}

		s := a.Summary
		s.RunID = report.RunID
		if report.Model == "" {
			report.Model = s.Model
		}
		if s.IsSpecialCase {
			p.logger.Warn("special case detected", "unit_id", s.Unit, "model", s.Model, "message", s.Message)
			p.metrics.SpecialCases.WithLabelValues(string(s.Model)).Inc()
			report.Special++
		} else {
			report.Normal++
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// loadWithRetry loads the batch into one sink, backing off exponentially between attempts.
func (p *Pipeline) loadWithRetry(ctx context.Context, sink Sink, summaries []domain.Summary) error {
	backoff := p.initialBackoff
	for attempt := 1; ; attempt++ {
		err := sink.Loader.LoadBatch(ctx, summaries)
		if err == nil {
			p.metrics.SummariesPublished.WithLabelValues(sink.Name).Add(float64(len(summaries)))
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("run interrupted: %w", ctx.Err())
		}
		if attempt >= p.maxLoadAttempts {
			return fmt.Errorf("load batch into %s after %d attempts: %w", sink.Name, attempt, err)
		}

		p.logger.Error("load batch failed", "sink", sink.Name, "error", err, "batch_size", len(summaries), "attempt", attempt)
		p.metrics.LoadRetries.Inc()
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("run interrupted: %w", ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
}

func (p *Pipeline) publish(report RunReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &report
}

func (p *Pipeline) finish(report RunReport) RunReport {
	report.FinishedAt = time.Now().UTC()
	p.publish(report)
	return report
}
