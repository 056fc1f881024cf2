package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-resilience/internal/adapter/csvtable"
	"github.com/couchcryptid/storm-resilience/internal/domain"
	"github.com/couchcryptid/storm-resilience/internal/mockdata"
	"github.com/couchcryptid/storm-resilience/internal/observability"
	"github.com/couchcryptid/storm-resilience/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	units []domain.UnitRows
	next  int
	err   error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.UnitRows, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.next >= len(m.units) {
		return nil, io.EOF
	}
	end := min(m.next+batchSize, len(m.units))
	batch := m.units[m.next:end]
	m.next = end
	return batch, nil
}

// mockAnalyzer fails units listed in fail and flags units listed in special.
type mockAnalyzer struct {
	fail    map[string]bool
	special map[string]bool
}

func (m *mockAnalyzer) Analyze(_ context.Context, unit domain.UnitRows) (pipeline.Analysis, error) {
	if m.fail[unit.Unit] {
		return pipeline.Analysis{}, domain.ErrMultipleUnits
	}
	s := domain.Summary{Unit: unit.Unit, Model: domain.ModelTriangle, Status: domain.StatusRecovered, Resilience: 50}
	if m.special[unit.Unit] {
		s.Status = domain.StatusNoTrend
		s.IsSpecialCase = true
		s.Message = "abnormal"
		s.Resilience = 0
	}
	return pipeline.Analysis{Summary: s}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	failures int
	calls    int
	loaded   []domain.Summary
}

func (m *mockLoader) LoadBatch(_ context.Context, summaries []domain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, summaries...)
	return nil
}

func units(names ...string) []domain.UnitRows {
	out := make([]domain.UnitRows, len(names))
	for i, n := range names {
		out[i] = domain.UnitRows{Unit: n, Rows: domain.Table{{DestinationUnit: n}}}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(e pipeline.BatchExtractor, a pipeline.Analyzer, metrics *observability.Metrics, batchSize int, loaders ...*mockLoader) *pipeline.Pipeline {
	sinks := make([]pipeline.Sink, len(loaders))
	for i, l := range loaders {
		sinks[i] = pipeline.Sink{Name: "mock" + string(rune('a'+i)), Loader: l}
	}
	return pipeline.New(e, a, sinks, discardLogger(), metrics, batchSize,
		pipeline.WithBackoff(time.Millisecond, 5*time.Millisecond))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	ext := &mockExtractor{units: units("a", "b", "c", "d", "e")}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(ext, &mockAnalyzer{special: map[string]bool{"c": true}}, metrics, 2, ldr)

	require.Error(t, p.CheckReadiness(context.Background()))

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 1, report.Special)
	assert.Equal(t, 4, report.Normal)
	assert.Zero(t, report.Failed)
	assert.Equal(t, domain.ModelTriangle, report.Model)
	_, err = uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	require.Len(t, ldr.loaded, 5)
	assert.Equal(t, 3, ldr.calls, "five units in batches of two")
	for _, s := range ldr.loaded {
		assert.Equal(t, report.RunID, s.RunID)
	}
	require.NoError(t, p.CheckReadiness(context.Background()))

	last, ok := p.LastReport()
	require.True(t, ok)
	assert.Equal(t, report, last)

	assert.InDelta(t, 5, testutil.ToFloat64(metrics.UnitsProcessed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SpecialCases.WithLabelValues("triangle")), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(metrics.SummariesPublished.WithLabelValues("mocka")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_IsolatesUnitFailures(t *testing.T) {
	ext := &mockExtractor{units: units("a", "b", "c")}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(ext, &mockAnalyzer{fail: map[string]bool{"b": true}}, metrics, 10, ldr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Normal)
	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "a", ldr.loaded[0].Unit)
	assert.Equal(t, "c", ldr.loaded[1].Unit)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.UnitFailures), 0)
}

func TestPipeline_Run_AllUnitsFailNeverReady(t *testing.T) {
	ext := &mockExtractor{units: units("a")}
	ldr := &mockLoader{}
	p := newPipeline(ext, &mockAnalyzer{fail: map[string]bool{"a": true}}, observability.NewMetricsForTesting(), 10, ldr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, ldr.calls)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_RetriesLoad(t *testing.T) {
	ext := &mockExtractor{units: units("a", "b")}
	flaky := &mockLoader{failures: 2}
	steady := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := newPipeline(ext, &mockAnalyzer{}, metrics, 10, steady, flaky)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, flaky.calls)
	assert.Len(t, flaky.loaded, 2)
	assert.Equal(t, 1, steady.calls, "a healthy sink is not reloaded when another sink retries")
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.LoadRetries), 0)
}

func TestPipeline_Run_GivesUpAfterMaxLoadAttempts(t *testing.T) {
	ext := &mockExtractor{units: units("a")}
	dead := &mockLoader{failures: 100}
	p := pipeline.New(ext, &mockAnalyzer{}, []pipeline.Sink{{Name: "kafka", Loader: dead}},
		discardLogger(), observability.NewMetricsForTesting(), 10,
		pipeline.WithBackoff(time.Millisecond, time.Millisecond), pipeline.WithMaxLoadAttempts(3))

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka after 3 attempts")
	assert.Equal(t, 3, dead.calls)
	assert.Equal(t, 1, report.Total)
	assert.False(t, report.FinishedAt.IsZero())
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	ext := &mockExtractor{err: errors.New("corrupt table")}
	p := newPipeline(ext, &mockAnalyzer{}, observability.NewMetricsForTesting(), 10, &mockLoader{})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt table")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{units: units("a", "b")}
	ldr := &mockLoader{}
	p := newPipeline(ext, &mockAnalyzer{}, observability.NewMetricsForTesting(), 1, ldr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Total)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_EmptySource(t *testing.T) {
	ldr := &mockLoader{}
	p := newPipeline(&mockExtractor{}, &mockAnalyzer{}, observability.NewMetricsForTesting(), 10, ldr)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Zero(t, ldr.calls)
}

func TestPipeline_LastReport_BeforeRun(t *testing.T) {
	p := newPipeline(&mockExtractor{}, &mockAnalyzer{}, observability.NewMetricsForTesting(), 10)
	_, ok := p.LastReport()
	assert.False(t, ok)
}

// TestPipeline_EndToEnd runs the real analyzer over a generated table and
// writes the CSV summary, mirroring a batch run over a whole region.
func TestPipeline_EndToEnd(t *testing.T) {
	gen := mockdata.DefaultConfig()
	table, err := mockdata.Generate(gen)
	require.NoError(t, err)

	params := domain.DefaultParams(gen.DisasterStart, gen.DisasterEnd)
	params.SmoothingWindow = 7
	metrics := observability.NewMetricsForTesting()
	analyzer, err := pipeline.NewAnalyzer(domain.ModelTriangle, params, discardLogger(), metrics)
	require.NoError(t, err)

	var full, filtered bytes.Buffer
	sinks := []pipeline.Sink{
		{Name: "csv", Loader: csvtable.NewSummaryWriter(&full, domain.ModelTriangle)},
		{Name: "csv_filtered", Loader: csvtable.NewSummaryWriter(&filtered, domain.ModelTriangle, csvtable.WithoutNoTrend())},
	}
	p := pipeline.New(csvtable.NewSource(table), analyzer, sinks, discardLogger(), metrics, 4)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, gen.Units, report.Total)
	assert.Equal(t, gen.FlatUnits, report.Special, "flat units never dip below baseline")
	assert.Equal(t, gen.Units-gen.FlatUnits, report.Normal)
	assert.Zero(t, report.Failed)

	fullRows := strings.Split(strings.TrimSpace(full.String()), "\n")
	assert.Len(t, fullRows, gen.Units+1)
	filteredRows := strings.Split(strings.TrimSpace(filtered.String()), "\n")
	assert.Len(t, filteredRows, gen.Units-gen.FlatUnits+1)
	for _, row := range filteredRows[1:] {
		assert.True(t, strings.HasSuffix(row, ",Recovered"), row)
	}
}
