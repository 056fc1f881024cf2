package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "resilience",
		Short: "Community resilience metrics from mobility data",
		Long: `resilience measures how census block groups absorb and recover from a
disaster using daily mobility in-degree.

Configuration is read from the environment (MOBILITY_CSV, DISASTER_START,
DISASTER_END, RESILIENCE_MODEL, ...); see the README for the full list.

Examples:
  resilience batch                         # Analyze every CBG in MOBILITY_CSV
  resilience batch --hold                  # Keep /metrics and /report up afterwards
  resilience unit 483610223005             # Print the report for one CBG
  resilience unit 483610223005 --json      # Emit the result and graph payload
  resilience genmock --out mobility.csv    # Write a synthetic mobility table`,
		SilenceUsage: true,
	}

	root.AddCommand(newBatchCmd(), newUnitCmd(), newGenmockCmd())
	return root
}
