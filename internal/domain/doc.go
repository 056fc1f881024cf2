// Package domain models community resilience to disruptive events (storms,
// floods) measured from human-mobility time series.
//
// # Data Source
//
// Mobility records originate from device-level origin/destination panels
// aggregated to census block groups (CBGs). Each record carries an origin
// CBG, a destination CBG, a device count, a destination device count, the
// panel year, and a sequential day index ("uid").
//
// Date convention:
//
//	uid 1 = 2019-01-01, one calendar day per increment.
//	date = Epoch + (uid - 1) days. uid must be a positive integer.
//
// # Signal
//
// For one destination CBG the daily in-degree is the sum of destination
// device counts arriving on that date. The standard preprocessing chain is
//
//	FilterToUnit → AggregateDaily → NormalizeMinMax → Smooth
//
// Normalization runs before smoothing. Every step returns a new signal and
// never mutates its input.
//
// Normalization policies:
//
//	Min-max:  (v - min) / (max - min); a constant signal maps to all zeros.
//	Baseline: (v - b) / b; a zero baseline maps every value to NaN.
//
// # Baseline
//
// The baseline is the mean in-degree over the lookback window
// [start - lookback, start - 1] (inclusive, default 15 days). An empty window
// yields NaN, which propagates into the models.
//
// # Resilience Triangle
//
// Four points are resolved in order on the preprocessed signal:
//
//	t0          disaster start (exact date, else nearest date)
//	t_inactive  disaster end (exact date, else nearest date), informational
//	t1          first value ≥ baseline on or after disaster end ("Recovered"),
//	            else the post-minimum peak ("New normal")
//	tD          minimum value within [t0, t1] (systematic impact)
//
// Resilience is the triangle (t0, tD, t1) area as a percentage of the area
// under the baseline between t0 and t1. Robustness is |slope(tD, t1)| and
// vulnerability is |slope(t0, tD)|; see [SlopePolicy] for the day convention.
//
// # Area Under the Curve
//
// On a baseline-normalized signal the recovery date is the first date after
// disaster end whose absolute value is within the threshold, else the date
// closest to zero. Resilience capacity is the trapezoidal integral of the
// signal between disaster start and recovery, over integer day offsets.
//
// # Special Cases
//
// Patterns the models cannot interpret (no data, baseline never breached,
// mobility rising at the start of the disaster) are reported as result
// variants with IsSpecialCase set, zeroed metrics, status [StatusNoTrend],
// and a diagnostic message. They are never returned as errors.
package domain
