package domain

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultSmoothingWindow is the standalone Smooth window.
	DefaultSmoothingWindow = 7
	// DefaultPreprocessWindow is the Preprocess smoothing window.
	DefaultPreprocessWindow = 25
)

// FilterToUnit returns the rows whose destination unit equals unit.
func FilterToUnit(table Table, unit string) Table {
	out := make(Table, 0)
	for _, r := range table {
		if r.DestinationUnit == unit {
			out = append(out, r)
		}
	}
	return out
}

// PartitionByUnit splits a table into per-destination row sets in
// first-seen unit order.
func PartitionByUnit(table Table) []UnitRows {
	index := make(map[string]int)
	var parts []UnitRows
	for _, r := range table {
		i, ok := index[r.DestinationUnit]
		if !ok {
			i = len(parts)
			index[r.DestinationUnit] = i
			parts = append(parts, UnitRows{Unit: r.DestinationUnit})
		}
		parts[i].Rows = append(parts[i].Rows, r)
	}
	return parts
}

// AggregateDaily sums destination device counts per date into in_degree.
// The rows must already be filtered to a single destination unit.
// NaN counts are skipped; a date with only NaN counts sums to 0.
func AggregateDaily(rows Table) (DailySignal, error) {
	units := make(map[string]struct{})
	for _, r := range rows {
		units[r.DestinationUnit] = struct{}{}
	}
	if len(units) > 1 {
		return DailySignal{}, fmt.Errorf("aggregate daily: %w (%d units)", ErrMultipleUnits, len(units))
	}

	sums := make(map[time.Time]float64)
	for _, r := range rows {
		d := Day(r.Date)
		if _, ok := sums[d]; !ok {
			sums[d] = 0
		}
		if !math.IsNaN(r.DestinationDeviceCount) {
			sums[d] += r.DestinationDeviceCount
		}
	}

	sig := DailySignal{Points: make([]SignalPoint, 0, len(sums))}
	if len(rows) > 0 {
		sig.Unit = rows[0].DestinationUnit
	}
	for d, v := range sums {
		sig.Points = append(sig.Points, SignalPoint{Date: d, Value: v})
	}
	sortByDate(sig.Points)
	return sig, nil
}

// Smooth applies a centered moving average of the given window with a
// minimum of one observation per window, then back-fills and forward-fills
// any remaining gaps. Even windows lean one step toward the past.
func Smooth(signal DailySignal, window int) (DailySignal, error) {
	if window < 1 {
		return DailySignal{}, fmt.Errorf("smooth: %w (got %d)", ErrInvalidWindow, window)
	}
	out := signal.clone()
	n := len(out.Points)
	if n == 0 {
		return out, nil
	}

	values := signal.Values()
	offset := (window - 1) / 2
	buf := make([]float64, 0, window)
	for i := range out.Points {
		lo := max(i+offset+1-window, 0)
		hi := min(i+offset, n-1)
		buf = buf[:0]
		for _, v := range values[lo : hi+1] {
			if !math.IsNaN(v) {
				buf = append(buf, v)
			}
		}
		if len(buf) == 0 {
			out.Points[i].Value = math.NaN()
			continue
		}
		out.Points[i].Value = stat.Mean(buf, nil)
	}

	fillGaps(out.Points)
	return out, nil
}

// fillGaps back-fills then forward-fills NaN values in place.
func fillGaps(pts []SignalPoint) {
	next := math.NaN()
	for i := len(pts) - 1; i >= 0; i-- {
		if math.IsNaN(pts[i].Value) {
			pts[i].Value = next
			continue
		}
		next = pts[i].Value
	}
	prev := math.NaN()
	for i := range pts {
		if math.IsNaN(pts[i].Value) {
			pts[i].Value = prev
			continue
		}
		prev = pts[i].Value
	}
}

// NormalizeMinMax rescales the signal to [0, 1] using its own finite
// min and max. A constant signal maps every value to 0.
func NormalizeMinMax(signal DailySignal) DailySignal {
	out := signal.clone()
	finite := finiteValues(signal)
	if len(finite) == 0 {
		return out
	}

	lo, hi := floats.Min(finite), floats.Max(finite)
	span := hi - lo
	for i := range out.Points {
		if span == 0 {
			out.Points[i].Value = 0
			continue
		}
		out.Points[i].Value = (out.Points[i].Value - lo) / span
	}
	return out
}

// NormalizeToBaseline rescales the signal to (v - baseline) / baseline.
// A zero baseline maps every value to NaN.
func NormalizeToBaseline(signal DailySignal, baseline float64) DailySignal {
	out := signal.clone()
	for i := range out.Points {
		if baseline == 0 {
			out.Points[i].Value = math.NaN()
			continue
		}
		out.Points[i].Value = (out.Points[i].Value - baseline) / baseline
	}
	return out
}

// Preprocess runs FilterToUnit, AggregateDaily, NormalizeMinMax and Smooth
// in that order.
func Preprocess(table Table, unit string, window int) (DailySignal, error) {
	rows := FilterToUnit(table, unit)
	sig, err := AggregateDaily(rows)
	if err != nil {
		return DailySignal{}, fmt.Errorf("preprocess %s: %w", unit, err)
	}
	sig.Unit = unit
	sig = NormalizeMinMax(sig)
	sig, err = Smooth(sig, window)
	if err != nil {
		return DailySignal{}, fmt.Errorf("preprocess %s: %w", unit, err)
	}
	return sig, nil
}

func finiteValues(signal DailySignal) []float64 {
	out := make([]float64, 0, len(signal.Points))
	for _, p := range signal.Points {
		if !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0) {
			out = append(out, p.Value)
		}
	}
	return out
}

func sortByDate(pts []SignalPoint) {
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
}
