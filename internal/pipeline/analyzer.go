package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-resilience/internal/domain"
	"github.com/couchcryptid/storm-resilience/internal/observability"
)

// Analysis is everything computed for one unit: the flattened summary plus
// the full model result and plotting payload.
type Analysis struct {
	Summary  domain.Summary
	Signal   domain.DailySignal
	Baseline float64

	// Exactly one of the model pairs is set, matching Summary.Model.
	Triangle      *domain.TriangleResult
	TriangleGraph *domain.TriangleGraph
	AUC           *domain.AUCResult
	AUCGraph      *domain.AUCGraph
}

// UnitAnalyzer implements Analyzer: preprocess, baseline, then the configured model.
type UnitAnalyzer struct {
	model   domain.Model
	params  domain.Params
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAnalyzer validates params and returns an analyzer for model.
func NewAnalyzer(model domain.Model, params domain.Params, logger *slog.Logger, metrics *observability.Metrics) (*UnitAnalyzer, error) {
	if _, err := domain.ParseModel(string(model)); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis parameters: %w", err)
	}
	return &UnitAnalyzer{model: model, params: params, logger: logger, metrics: metrics}, nil
}

// Model reports which resilience model the analyzer runs.
func (a *UnitAnalyzer) Model() domain.Model { return a.model }

func (a *UnitAnalyzer) Analyze(ctx context.Context, unit domain.UnitRows) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	if len(unit.Rows) == 0 {
		return Analysis{}, fmt.Errorf("%w: %s", domain.ErrUnitNotFound, unit.Unit)
	}

	start := time.Now()
	defer func() {
		a.metrics.AnalysisDuration.WithLabelValues(string(a.model)).Observe(time.Since(start).Seconds())
	}()

	sig, err := domain.Preprocess(unit.Rows, unit.Unit, a.params.SmoothingWindow)
	if err != nil {
		return Analysis{}, fmt.Errorf("preprocess unit %s: %w", unit.Unit, err)
	}
	baseline := domain.CalculateBaseline(sig, a.params.DisasterStart, a.params.BaselineLookbackDays)

	out := Analysis{Signal: sig, Baseline: baseline}
	switch a.model {
	case domain.ModelAUC:
		normalized := domain.NormalizeToBaseline(sig, baseline)
		res, graph := domain.CalculateAUC(normalized, a.params.DisasterStart, a.params.DisasterEnd, a.params.AUCThreshold)
		out.Signal = normalized
		out.AUC, out.AUCGraph = &res, &graph
		out.Summary = domain.SummarizeAUC(unit.Unit, baseline, res)
	default:
		res, graph := domain.CalculateTriangle(sig, baseline, a.params.DisasterStart, a.params.DisasterEnd, a.params.Slope)
		out.Triangle, out.TriangleGraph = &res, &graph
		out.Summary = domain.SummarizeTriangle(unit.Unit, baseline, res)
	}

	a.logger.Debug("unit analyzed",
		"unit_id", unit.Unit,
		"model", a.model,
		"days", sig.Len(),
		"baseline", baseline,
		"resilience", out.Summary.Resilience,
		"status", out.Summary.Status,
	)
	return out, nil
}
