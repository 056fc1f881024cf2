package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-resilience/internal/adapter/csvtable"
	"github.com/couchcryptid/storm-resilience/internal/config"
	"github.com/couchcryptid/storm-resilience/internal/domain"
	"github.com/couchcryptid/storm-resilience/internal/observability"
	"github.com/couchcryptid/storm-resilience/internal/pipeline"
	"github.com/couchcryptid/storm-resilience/internal/report"
)

func newUnitCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "unit <cbg>",
		Short: "Analyze a single CBG and print its report",
		Long: `Analyze one destination CBG from MOBILITY_CSV with RESILIENCE_MODEL and
print the resilience summary. With --json the full model result and the
graph payload are written instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg)
			return runUnit(cmd, cfg, logger, observability.NewMetricsForTesting(), args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "write the result and graph payload as JSON")
	return cmd
}

// unitOutput is the --json document for one unit.
type unitOutput struct {
	Unit          string                 `json:"cbg"`
	Model         domain.Model           `json:"model"`
	Baseline      float64                `json:"baseline"`
	Triangle      *domain.TriangleResult `json:"triangle,omitempty"`
	TriangleGraph *domain.TriangleGraph  `json:"triangle_graph,omitempty"`
	AUC           *domain.AUCResult      `json:"auc,omitempty"`
	AUCGraph      *domain.AUCGraph       `json:"auc_graph,omitempty"`
}

func runUnit(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, unit string, asJSON bool) error {
	table, err := csvtable.LoadFile(cfg.MobilityCSV)
	if err != nil {
		return err
	}
	rows := domain.FilterToUnit(table, unit)

	analyzer, err := pipeline.NewAnalyzer(cfg.Model, cfg.Params, logger, metrics)
	if err != nil {
		return err
	}
	a, err := analyzer.Analyze(cmd.Context(), domain.UnitRows{Unit: unit, Rows: rows})
	if err != nil {
		return err
	}
	if a.Summary.IsSpecialCase {
		logger.Warn("special case detected", "unit_id", unit, "message", a.Summary.Message)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeUnitJSON(out, unit, cfg.Model, a)
	}
	if a.AUC != nil {
		return report.AUCSummary(out, unit, cfg.DisasterName, *a.AUC)
	}
	return report.TriangleSummary(out, unit, cfg.DisasterName, a.Baseline, *a.Triangle, cfg.Params.DisasterStart, cfg.Params.DisasterEnd)
}

func writeUnitJSON(w io.Writer, unit string, model domain.Model, a pipeline.Analysis) error {
	if math.IsNaN(a.Baseline) {
		return errors.New("baseline is undefined: no observations in the lookback window before disaster start")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(unitOutput{
		Unit:          unit,
		Model:         model,
		Baseline:      a.Baseline,
		Triangle:      a.Triangle,
		TriangleGraph: a.TriangleGraph,
		AUC:           a.AUC,
		AUCGraph:      a.AUCGraph,
	}); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
