package domain

import (
	"fmt"
	"math"
	"time"
)

// SlopeMode selects the x-axis used for robustness and vulnerability slopes.
type SlopeMode string

const (
	// SlopeElapsedDays divides by the number of days between the two points.
	SlopeElapsedDays SlopeMode = "elapsed"
	// SlopeYearRelative divides by the difference of each point's day offset
	// from January 1 of its own year. Points in different years produce
	// misleading denominators.
	SlopeYearRelative SlopeMode = "year_relative"
)

// ParseSlopeMode validates a slope mode name.
func ParseSlopeMode(s string) (SlopeMode, error) {
	switch SlopeMode(s) {
	case SlopeElapsedDays, SlopeYearRelative:
		return SlopeMode(s), nil
	default:
		return "", fmt.Errorf("unknown slope mode %q", s)
	}
}

// SlopePolicy controls how Slope measures x and what it returns when both
// points share the same x (vertical segment).
type SlopePolicy struct {
	Mode       SlopeMode
	Degenerate float64
}

// DefaultSlopePolicy measures elapsed days and returns 0 for vertical segments.
func DefaultSlopePolicy() SlopePolicy {
	return SlopePolicy{Mode: SlopeElapsedDays, Degenerate: 0}
}

// Slope returns |Δvalue / Δday| between two points.
func Slope(p1, p2 Point, policy SlopePolicy) float64 {
	var dx int
	switch policy.Mode {
	case SlopeYearRelative:
		dx = dayOfYearOffset(p2.Date) - dayOfYearOffset(p1.Date)
	default:
		dx = daysBetween(p1.Date, p2.Date)
	}
	if dx == 0 {
		return policy.Degenerate
	}
	return math.Abs((p2.Value - p1.Value) / float64(dx))
}

// TriangleArea applies the shoelace formula to three relative points.
func TriangleArea(a, b, c RelativePoint) float64 {
	x1, y1 := float64(a.Day), a.Value
	x2, y2 := float64(b.Day), b.Value
	x3, y3 := float64(c.Day), c.Value
	return 0.5 * math.Abs(x1*(y2-y3)+x2*(y3-y1)+x3*(y1-y2))
}

// AreaUnderBaseline is the rectangle baseline × whole days in [start, end].
func AreaUnderBaseline(baseline float64, start, end time.Time) float64 {
	return float64(daysBetween(start, end)) * baseline
}

// RelativePoints re-expresses three points as day offsets from the first.
func RelativePoints(p1, p2, p3 Point) (RelativePoint, RelativePoint, RelativePoint) {
	return RelativePoint{Day: 0, Value: p1.Value},
		RelativePoint{Day: daysBetween(p1.Date, p2.Date), Value: p2.Value},
		RelativePoint{Day: daysBetween(p1.Date, p3.Date), Value: p3.Value}
}

// daysBetween returns whole days from a to b, negative when b precedes a.
func daysBetween(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}

func dayOfYearOffset(t time.Time) int {
	return t.YearDay() - 1
}
