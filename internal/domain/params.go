package domain

import (
	"errors"
	"time"
)

// DefaultAUCThreshold is the absolute baseline-relative deviation treated as recovered.
const DefaultAUCThreshold = 0.01

// Params is the explicit configuration record for one analysis run.
type Params struct {
	DisasterStart        time.Time
	DisasterEnd          time.Time
	SmoothingWindow      int
	BaselineLookbackDays int
	AUCThreshold         float64
	Slope                SlopePolicy
}

// DefaultParams returns the standard parameters for a disaster window.
func DefaultParams(start, end time.Time) Params {
	return Params{
		DisasterStart:        start,
		DisasterEnd:          end,
		SmoothingWindow:      DefaultPreprocessWindow,
		BaselineLookbackDays: DefaultBaselineLookbackDays,
		AUCThreshold:         DefaultAUCThreshold,
		Slope:                DefaultSlopePolicy(),
	}
}

// Validate reports the first inconsistent parameter.
func (p Params) Validate() error {
	switch {
	case p.DisasterStart.IsZero() || p.DisasterEnd.IsZero():
		return errors.New("disaster start and end are required")
	case p.DisasterEnd.Before(p.DisasterStart):
		return errors.New("disaster end precedes disaster start")
	case p.SmoothingWindow < 1:
		return ErrInvalidWindow
	case p.BaselineLookbackDays < 1:
		return errors.New("baseline lookback must be at least 1 day")
	case p.AUCThreshold < 0:
		return errors.New("AUC threshold must not be negative")
	}
	return nil
}
