package csvtable

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/storm-resilience/internal/domain"
)

var (
	triangleHeader = []string{"CBG", "Resilience", "Robustness", "Vulnerability", "Status"}
	aucHeader      = []string{"CBG", "Resilience", "RecoveryPoint", "Status"}
)

// SummaryWriter writes one CSV row per unit summary.
// It implements pipeline.BatchLoader.
type SummaryWriter struct {
	mu            sync.Mutex
	csv           *csv.Writer
	closer        io.Closer
	model         domain.Model
	skipNoTrend   bool
	headerWritten bool
	rows          int
}

// Option configures a SummaryWriter.
type Option func(*SummaryWriter)

// WithoutNoTrend drops summaries whose status is "No Trend Shown".
func WithoutNoTrend() Option {
	return func(w *SummaryWriter) { w.skipNoTrend = true }
}

// NewSummaryWriter writes summaries for model to w.
func NewSummaryWriter(w io.Writer, model domain.Model, opts ...Option) *SummaryWriter {
	sw := &SummaryWriter{csv: csv.NewWriter(w), model: model}
	if c, ok := w.(io.Closer); ok {
		sw.closer = c
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// CreateSummaryFile creates (or truncates) path and returns a writer over it.
func CreateSummaryFile(path string, model domain.Model, opts ...Option) (*SummaryWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create summary dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create summary file: %w", err)
	}
	return NewSummaryWriter(f, model, opts...), nil
}

// FilteredPath derives the path of the filtered summary, e.g.
// summary.csv -> summary_filtered.csv.
func FilteredPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_filtered" + ext
}

// Rows reports how many summary rows have been written.
func (w *SummaryWriter) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// LoadBatch appends the summaries and flushes them to the underlying writer.
func (w *SummaryWriter) LoadBatch(ctx context.Context, summaries []domain.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeHeader(); err != nil {
		return err
	}
	for i := range summaries {
		s := &summaries[i]
		if w.skipNoTrend && s.Status == domain.StatusNoTrend {
			continue
		}
		if err := w.csv.Write(w.row(s)); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
		w.rows++
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush summaries: %w", err)
	}
	return nil
}

// Close writes the header if no batch was loaded, flushes, and closes the
// underlying file when there is one.
func (w *SummaryWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writeHeader(); err != nil {
		return err
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush summaries: %w", err)
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

func (w *SummaryWriter) writeHeader() error {
	if w.headerWritten {
		return nil
	}
	header := triangleHeader
	if w.model == domain.ModelAUC {
		header = aucHeader
	}
	if err := w.csv.Write(header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	w.headerWritten = true
	return nil
}

func (w *SummaryWriter) row(s *domain.Summary) []string {
	if w.model == domain.ModelAUC {
		return []string{s.Unit, formatFloat(s.Resilience), formatDate(s.RecoveryPoint), string(s.Status)}
	}
	return []string{
		s.Unit,
		formatFloat(s.Resilience),
		formatFloat(s.Robustness),
		formatFloat(s.Vulnerability),
		string(s.Status),
	}
}

// formatFloat renders NaN as an empty cell.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
