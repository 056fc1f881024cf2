// Package csvtable reads mobility tables from CSV and writes per-unit
// resilience summaries back out.
package csvtable

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/couchcryptid/storm-resilience/internal/domain"
)

// Column names of the mobility table.
const (
	ColOrigin            = "origin_census_block_group"
	ColDestination       = "destination_cbg"
	ColDeviceCount       = "device_count"
	ColDestinationDevice = "destination_device_count"
	ColYear              = "year"
	ColUID               = "uid"
)

var requiredColumns = []string{ColOrigin, ColDestination, ColDeviceCount, ColDestinationDevice, ColYear, ColUID}

// LoadFile opens path and loads it with Load.
func LoadFile(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mobility table: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a mobility table. Device counts that do not parse become NaN;
// year and uid must be integers and uid at least 1.
func Load(r io.Reader) (domain.Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("mobility table is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}
	for _, c := range requiredColumns {
		if _, ok := colIdx[c]; !ok {
			return nil, fmt.Errorf("mobility table is missing column %q", c)
		}
	}

	var table domain.Table
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := parseRecord(row, colIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		table = append(table, rec)
	}
	return table, nil
}

func parseRecord(row []string, colIdx map[string]int) (domain.MobilityRecord, error) {
	year, err := strconv.Atoi(get(row, colIdx, ColYear))
	if err != nil {
		return domain.MobilityRecord{}, fmt.Errorf("invalid year %q", get(row, colIdx, ColYear))
	}
	uid, err := strconv.Atoi(get(row, colIdx, ColUID))
	if err != nil {
		return domain.MobilityRecord{}, fmt.Errorf("%w: %q", domain.ErrInvalidUID, get(row, colIdx, ColUID))
	}
	date, err := domain.DateFromUID(uid)
	if err != nil {
		return domain.MobilityRecord{}, err
	}

	return domain.MobilityRecord{
		OriginUnit:             get(row, colIdx, ColOrigin),
		DestinationUnit:        get(row, colIdx, ColDestination),
		DeviceCount:            coerceFloat(get(row, colIdx, ColDeviceCount)),
		DestinationDeviceCount: coerceFloat(get(row, colIdx, ColDestinationDevice)),
		Year:                   year,
		UID:                    uid,
		Date:                   date,
	}, nil
}

// coerceFloat parses s, mapping anything unparsable to NaN.
func coerceFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Units lists the distinct destination units in first-seen order.
func Units(table domain.Table) []string {
	parts := domain.PartitionByUnit(table)
	units := make([]string, len(parts))
	for i, p := range parts {
		units[i] = p.Unit
	}
	return units
}

// Source hands out a loaded table one batch of units at a time.
// It implements pipeline.BatchExtractor.
type Source struct {
	mu    sync.Mutex
	units []domain.UnitRows
	next  int
}

// NewSource partitions table by destination unit.
func NewSource(table domain.Table) *Source {
	return &Source{units: domain.PartitionByUnit(table)}
}

// Len reports the number of units in the source.
func (s *Source) Len() int { return len(s.units) }

// ExtractBatch returns up to batchSize units, or io.EOF once every unit has been handed out.
func (s *Source) ExtractBatch(ctx context.Context, batchSize int) ([]domain.UnitRows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.units) {
		return nil, io.EOF
	}
	end := min(s.next+max(batchSize, 1), len(s.units))
	batch := s.units[s.next:end]
	s.next = end
	return batch, nil
}

// WriteTable writes table in the layout Load reads.
func WriteTable(w io.Writer, table domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(requiredColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range table {
		rec := &table[i]
		row := []string{
			rec.OriginUnit,
			rec.DestinationUnit,
			formatFloat(rec.DeviceCount),
			formatFloat(rec.DestinationDeviceCount),
			strconv.Itoa(rec.Year),
			strconv.Itoa(rec.UID),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
