package domain

import (
	"fmt"
	"time"
)

// RecoveryStatus classifies how a unit came out of the disruption.
type RecoveryStatus string

const (
	StatusRecovered RecoveryStatus = "Recovered"
	StatusNewNormal RecoveryStatus = "New normal"
	StatusNoTrend   RecoveryStatus = "No Trend Shown"
)

// Model names a resilience model.
type Model string

const (
	ModelTriangle Model = "triangle"
	ModelAUC      Model = "auc"
)

// ParseModel validates a model name.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case ModelTriangle, ModelAUC:
		return Model(s), nil
	default:
		return "", fmt.Errorf("unknown resilience model %q", s)
	}
}

// Point is a structurally significant (date, value) pair on a signal.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// RelativePoint is a Point re-expressed as whole days since a reference date.
type RelativePoint struct {
	Day   int
	Value float64
}

// Region is an inclusive date span used by the plotting collaborator.
type Region struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CriticalEvents labels the dates drawn as vertical markers on a graph.
type CriticalEvents struct {
	DisasterStart    time.Time `json:"disaster_start"`
	DisasterEnd      time.Time `json:"disaster_end"`
	SystematicImpact time.Time `json:"systematic_impact,omitempty"`
	Recovery         time.Time `json:"recovery"`
}

// TriangleResult holds the resilience triangle metrics for one unit.
// Points are nil when the model stopped before resolving them.
type TriangleResult struct {
	Resilience    float64        `json:"resilience"`
	Robustness    float64        `json:"robustness"`
	Vulnerability float64        `json:"vulnerability"`
	Status        RecoveryStatus `json:"recovery_status"`
	Message       string         `json:"message,omitempty"`
	IsSpecialCase bool           `json:"is_special_case"`

	T0       *Point `json:"point_t0,omitempty"`
	Inactive *Point `json:"point_inactive,omitempty"`
	TD       *Point `json:"point_tD,omitempty"`
	T1       *Point `json:"point_t1,omitempty"`
}

// TriangleGraph is the plotting payload for the triangle model.
type TriangleGraph struct {
	DisasterRegion Region          `json:"disaster_region"`
	DABRegion      *Region         `json:"dab_region,omitempty"`
	Triangle       []Point         `json:"triangle_coordinates,omitempty"`
	CriticalEvents *CriticalEvents `json:"critical_events,omitempty"`

	ShowTriangle bool `json:"resilience_triangle"`
	ShowCritical bool `json:"critical_show"`
	FillDAB      bool `json:"fill_dab"`
}

// AUCResult holds the area-under-the-curve metrics for one unit.
type AUCResult struct {
	Resilience    float64    `json:"resilience"`
	RecoveryPoint *time.Time `json:"recovery_point,omitempty"`
	Recovered     bool       `json:"recovered"`
	DisasterStart time.Time  `json:"disaster_start"`
	DisasterEnd   time.Time  `json:"disaster_end"`
	Message       string     `json:"message,omitempty"`
	IsSpecialCase bool       `json:"is_special_case"`
}

// Status maps the AUC outcome onto the shared recovery classification.
func (r AUCResult) Status() RecoveryStatus {
	switch {
	case r.IsSpecialCase:
		return StatusNoTrend
	case r.Recovered:
		return StatusRecovered
	default:
		return StatusNewNormal
	}
}

// DaysToRecovery returns whole days from disaster start to recovery, or -1
// when no recovery point was resolved.
func (r AUCResult) DaysToRecovery() int {
	if r.RecoveryPoint == nil {
		return -1
	}
	return daysBetween(r.DisasterStart, *r.RecoveryPoint)
}

// AUCGraph is the plotting payload for the AUC model.
type AUCGraph struct {
	DisasterRegion   *Region         `json:"disaster_region,omitempty"`
	ResilienceRegion *Region         `json:"resilience_region,omitempty"`
	CriticalEvents   *CriticalEvents `json:"critical_events,omitempty"`

	FillRegion   bool `json:"fill_region"`
	ShowCritical bool `json:"critical_show"`
}

// Summary is the one-row-per-unit output of a batch run.
type Summary struct {
	RunID         string
	Unit          string
	Model         Model
	Baseline      float64
	Resilience    float64
	Robustness    float64
	Vulnerability float64
	Status        RecoveryStatus
	RecoveryPoint time.Time
	IsSpecialCase bool
	Message       string
	ComputedAt    time.Time
}

// SummarizeTriangle flattens a triangle result into a Summary.
func SummarizeTriangle(unit string, baseline float64, r TriangleResult) Summary {
	s := Summary{
		Unit:          unit,
		Model:         ModelTriangle,
		Baseline:      baseline,
		Resilience:    r.Resilience,
		Robustness:    r.Robustness,
		Vulnerability: r.Vulnerability,
		Status:        r.Status,
		IsSpecialCase: r.IsSpecialCase,
		Message:       r.Message,
		ComputedAt:    clock.Now().UTC(),
	}
	if r.T1 != nil {
		s.RecoveryPoint = r.T1.Date
	}
	return s
}

// SummarizeAUC flattens an AUC result into a Summary.
func SummarizeAUC(unit string, baseline float64, r AUCResult) Summary {
	s := Summary{
		Unit:          unit,
		Model:         ModelAUC,
		Baseline:      baseline,
		Resilience:    r.Resilience,
		Status:        r.Status(),
		IsSpecialCase: r.IsSpecialCase,
		Message:       r.Message,
		ComputedAt:    clock.Now().UTC(),
	}
	if r.RecoveryPoint != nil {
		s.RecoveryPoint = *r.RecoveryPoint
	}
	return s
}
