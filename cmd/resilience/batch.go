package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/storm-resilience/internal/adapter/csvtable"
	httpadapter "github.com/couchcryptid/storm-resilience/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-resilience/internal/adapter/kafka"
	"github.com/couchcryptid/storm-resilience/internal/config"
	"github.com/couchcryptid/storm-resilience/internal/observability"
	"github.com/couchcryptid/storm-resilience/internal/pipeline"
)

func newBatchCmd() *cobra.Command {
	var hold bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every CBG in the mobility table",
		Long: `Analyze every destination CBG in MOBILITY_CSV and write one summary row
per CBG to SUMMARY_CSV, plus a filtered copy without "No Trend Shown" rows.
When KAFKA_ENABLED is true each summary is also published to KAFKA_SINK_TOPIC.

Health, readiness, metrics, and the run report are served on HTTP_ADDR while
the run is in progress.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runBatch(ctx, cfg, logger, observability.NewMetrics(), cmd.OutOrStdout(), hold)
		},
	}

	cmd.Flags().BoolVar(&hold, "hold", false, "keep the HTTP server running after the batch finishes, until interrupted")
	return cmd
}

func runBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, out io.Writer, hold bool) error {
	table, err := csvtable.LoadFile(cfg.MobilityCSV)
	if err != nil {
		return err
	}
	logger.Info("mobility table loaded", "path", cfg.MobilityCSV, "rows", len(table))

	analyzer, err := pipeline.NewAnalyzer(cfg.Model, cfg.Params, logger, metrics)
	if err != nil {
		return err
	}

	sinks, closers, err := openSinks(cfg, logger)
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("sink close error", "error", err)
			}
		}
	}()
	if err != nil {
		return err
	}

	source := csvtable.NewSource(table)
	p := pipeline.New(source, analyzer, sinks, logger, metrics, cfg.BatchSize)
	fmt.Fprintf(out, "Total no. of cbgs - %d\n", source.Len())

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	report, runErr := p.Run(ctx)

	fmt.Fprintf(out, "Total no. of special cbgs - %d\n", report.Special)
	fmt.Fprintf(out, "Total no. of normal cbgs - %d\n", report.Normal)
	if report.Failed > 0 {
		fmt.Fprintf(out, "Total no. of failed cbgs - %d\n", report.Failed)
	}

	if hold && runErr == nil && srv != nil {
		logger.Info("batch finished, holding http server until interrupted", "addr", cfg.HTTPAddr)
		<-ctx.Done()
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

// openSinks opens the summary CSVs and, when enabled, the Kafka writer.
// Closers are returned even on error so the caller can release what was opened.
func openSinks(cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, []io.Closer, error) {
	var (
		sinks   []pipeline.Sink
		closers []io.Closer
	)

	summary, err := csvtable.CreateSummaryFile(cfg.SummaryCSV, cfg.Model)
	if err != nil {
		return nil, closers, err
	}
	closers = append(closers, summary)
	sinks = append(sinks, pipeline.Sink{Name: "csv", Loader: summary})

	filtered, err := csvtable.CreateSummaryFile(csvtable.FilteredPath(cfg.SummaryCSV), cfg.Model, csvtable.WithoutNoTrend())
	if err != nil {
		return nil, closers, err
	}
	closers = append(closers, filtered)
	sinks = append(sinks, pipeline.Sink{Name: "csv_filtered", Loader: filtered})

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, writer)
		sinks = append(sinks, pipeline.Sink{Name: "kafka", Loader: writer})
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	return sinks, closers, nil
}
