package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-resilience/internal/adapter/csvtable"
	"github.com/couchcryptid/storm-resilience/internal/domain"
	"github.com/couchcryptid/storm-resilience/internal/mockdata"
)

func newGenmockCmd() *cobra.Command {
	var out, start, disasterStart, disasterEnd string
	cfg := mockdata.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "genmock",
		Short: "Write a synthetic mobility table",
		Long: `Generate a mobility CSV in the layout "batch" reads: one row per origin,
destination CBG, and day, with in-degree dipping during the disaster window
and climbing back afterwards. The first --flat-units CBGs never dip, so they
come out as special cases.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfg.Start, err = domain.ParseDay(start); err != nil {
				return err
			}
			if cfg.DisasterStart, err = domain.ParseDay(disasterStart); err != nil {
				return err
			}
			if cfg.DisasterEnd, err = domain.ParseDay(disasterEnd); err != nil {
				return err
			}

			table, err := mockdata.Generate(cfg)
			if err != nil {
				return err
			}
			if err := writeTableFile(out, table); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows for %d cbgs to %s\n", len(table), cfg.Units, out)
			return nil
		},
	}

	def := mockdata.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&out, "out", "data/mock/mobility.csv", "output CSV path")
	f.IntVar(&cfg.Units, "units", def.Units, "number of destination CBGs")
	f.IntVar(&cfg.FlatUnits, "flat-units", def.FlatUnits, "leading CBGs without a dip")
	f.IntVar(&cfg.OriginsPerUnit, "origins", def.OriginsPerUnit, "origin rows per CBG and day")
	f.IntVar(&cfg.Days, "days", def.Days, "number of observed days")
	f.StringVar(&start, "start", def.Start.Format(time.DateOnly), "first observed day (YYYY-MM-DD)")
	f.StringVar(&disasterStart, "disaster-start", def.DisasterStart.Format(time.DateOnly), "disaster start (YYYY-MM-DD)")
	f.StringVar(&disasterEnd, "disaster-end", def.DisasterEnd.Format(time.DateOnly), "disaster end (YYYY-MM-DD)")
	f.Float64Var(&cfg.Level, "level", def.Level, "pre-disaster daily in-degree")
	f.Float64Var(&cfg.DipDepth, "dip", def.DipDepth, "fraction of in-degree lost during the disaster")
	f.IntVar(&cfg.RecoveryDays, "recovery-days", def.RecoveryDays, "days to climb back after disaster end")
	f.Float64Var(&cfg.Noise, "noise", def.Noise, "uniform relative noise amplitude")
	f.Uint64Var(&cfg.Seed, "seed", def.Seed, "random seed")
	return cmd
}

func writeTableFile(path string, table domain.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csvtable.WriteTable(f, table); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
