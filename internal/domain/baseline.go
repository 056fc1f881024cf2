package domain

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultBaselineLookbackDays is the default pre-event averaging window.
const DefaultBaselineLookbackDays = 15

// CalculateBaseline averages the signal over [start - lookbackDays, start - 1]
// inclusive, skipping NaN values. The result is NaN when the window holds
// no values.
func CalculateBaseline(signal DailySignal, start time.Time, lookbackDays int) float64 {
	from := start.AddDate(0, 0, -lookbackDays)
	to := start.AddDate(0, 0, -1)

	var window []float64
	for _, p := range signal.Points {
		if p.Date.Before(from) || p.Date.After(to) || math.IsNaN(p.Value) {
			continue
		}
		window = append(window, p.Value)
	}
	if len(window) == 0 {
		return math.NaN()
	}
	return stat.Mean(window, nil)
}
