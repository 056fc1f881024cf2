package domain

import (
	"fmt"
	"time"
)

// Epoch is the calendar date of uid 1.
var Epoch = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)

// MobilityRecord is one origin/destination row of the mobility panel.
type MobilityRecord struct {
	OriginUnit             string
	DestinationUnit        string
	DeviceCount            float64 // NaN when unparsable
	DestinationDeviceCount float64 // NaN when unparsable
	Year                   int
	UID                    int
	Date                   time.Time
}

// Table is an in-memory mobility dataset.
type Table []MobilityRecord

// UnitRows pairs a destination unit with its pre-filtered rows.
type UnitRows struct {
	Unit string
	Rows Table
}

// SignalPoint is one (date, in_degree) observation.
type SignalPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"in_degree"`
}

// DailySignal is a date-ordered daily series for a single destination unit.
type DailySignal struct {
	Unit   string
	Points []SignalPoint
}

// Len returns the number of observations.
func (s DailySignal) Len() int { return len(s.Points) }

// Values returns a copy of the signal values in order.
func (s DailySignal) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// clone returns a deep copy so transformations never alias caller data.
func (s DailySignal) clone() DailySignal {
	pts := make([]SignalPoint, len(s.Points))
	copy(pts, s.Points)
	return DailySignal{Unit: s.Unit, Points: pts}
}

// DateFromUID converts a sequential day index into a calendar date.
func DateFromUID(uid int) (time.Time, error) {
	if uid < 1 {
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidUID, uid)
	}
	return Epoch.AddDate(0, 0, uid-1), nil
}

// UIDFromDate is the inverse of DateFromUID.
func UIDFromDate(d time.Time) int {
	return daysBetween(Epoch, d) + 1
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date in UTC.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}
