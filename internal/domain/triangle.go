package domain

import (
	"errors"
	"math"
	"time"
)

// SpecialCase describes a signal pattern a model cannot interpret.
// Model entry points convert it into a result variant; it never escapes them.
type SpecialCase struct {
	Message string
}

func (s *SpecialCase) Error() string { return s.Message }

func specialCase(msg string) error { return &SpecialCase{Message: msg} }

// DisasterStartPoint resolves t0: the observation at start, else the
// observation whose date is nearest to start.
func DisasterStartPoint(signal DailySignal, start time.Time) (Point, error) {
	return nearestPoint(signal, start)
}

// DisasterEndPoint resolves t_inactive with the same lookup as t0.
func DisasterEndPoint(signal DailySignal, end time.Time) (Point, error) {
	return nearestPoint(signal, end)
}

func nearestPoint(signal DailySignal, target time.Time) (Point, error) {
	if len(signal.Points) == 0 {
		return Point{}, specialCase(msgNoData)
	}
	best := -1
	var bestDist time.Duration
	for i, p := range signal.Points {
		if p.Date.Equal(target) {
			return Point(p), nil
		}
		d := p.Date.Sub(target)
		if d < 0 {
			d = -d
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return Point(signal.Points[best]), nil
}

// RecoveryPoint resolves t1 on or after end. The first value at or above
// baseline marks recovery. Otherwise the highest value at or after the
// post-event minimum marks a new normal; when that peak is the minimum
// itself the baseline stands in as its value. An empty post-event window
// yields (end, 0) without recovery.
func RecoveryPoint(signal DailySignal, end time.Time, baseline float64) (Point, bool, error) {
	post := pointsFrom(signal, end, true)
	if len(post) == 0 {
		return Point{Date: end, Value: 0}, false, nil
	}

	for _, p := range post {
		if p.Value >= baseline {
			return Point(p), true, nil
		}
	}

	minIdx := argExtreme(post, func(a, b float64) bool { return a < b })
	if minIdx < 0 {
		return Point{}, false, specialCase(msgNoPostEventValues)
	}
	tail := post[minIdx:]
	peakIdx := argExtreme(tail, func(a, b float64) bool { return a > b })
	t1 := Point(tail[peakIdx])
	if peakIdx == 0 {
		t1.Value = baseline
	}
	return t1, false, nil
}

// SystematicImpactPoint resolves tD, the first minimum within [t0, t1].
// It reports a special case when the minimum does not fall below baseline
// or when it sits on t0.
func SystematicImpactPoint(signal DailySignal, baseline float64, t0, t1 time.Time) (Point, error) {
	var window []SignalPoint
	for _, p := range signal.Points {
		if !p.Date.Before(t0) && !p.Date.After(t1) {
			window = append(window, p)
		}
	}

	idx := argExtreme(window, func(a, b float64) bool { return a < b })
	if idx < 0 {
		return Point{}, specialCase(msgNoImpactWindow)
	}
	tD := Point(window[idx])
	if tD.Value >= baseline {
		return Point{}, specialCase(msgNeverBreached)
	}
	if tD.Date.Equal(t0) {
		return Point{}, specialCase(msgRoseDuringEvent)
	}
	return tD, nil
}

// CalculateTriangle runs the resilience triangle model on a preprocessed signal.
// Special cases come back as a zeroed result with status StatusNoTrend.
func CalculateTriangle(signal DailySignal, baseline float64, start, end time.Time, policy SlopePolicy) (TriangleResult, TriangleGraph) {
	res := TriangleResult{Status: StatusNewNormal}
	graph := TriangleGraph{DisasterRegion: Region{Start: start, End: end}}

	if err := resolveTriangle(signal, baseline, start, end, policy, &res, &graph); err != nil {
		var sc *SpecialCase
		if !errors.As(err, &sc) {
			sc = &SpecialCase{Message: err.Error()}
		}
		res.Resilience, res.Robustness, res.Vulnerability = 0, 0, 0
		res.IsSpecialCase = true
		res.Message = sc.Message
		res.Status = StatusNoTrend
		graph.ShowTriangle, graph.ShowCritical, graph.FillDAB = false, false, false
	}
	return res, graph
}

func resolveTriangle(signal DailySignal, baseline float64, start, end time.Time, policy SlopePolicy, res *TriangleResult, graph *TriangleGraph) error {
	t0, err := DisasterStartPoint(signal, start)
	if err != nil {
		return err
	}
	res.T0 = &t0

	inactive, err := DisasterEndPoint(signal, end)
	if err != nil {
		return err
	}
	res.Inactive = &inactive

	t1, recovered, err := RecoveryPoint(signal, end, baseline)
	if err != nil {
		return err
	}
	res.T1 = &t1
	if recovered {
		res.Status = StatusRecovered
	}

	tD, err := SystematicImpactPoint(signal, baseline, t0.Date, t1.Date)
	if err != nil {
		return err
	}
	res.TD = &tD

	r0, rD, r1 := RelativePoints(t0, tD, t1)
	area := TriangleArea(r0, rD, r1)
	dab := AreaUnderBaseline(baseline, t0.Date, t1.Date)
	if dab != 0 {
		res.Resilience = area / dab * 100
	}
	res.Robustness = Slope(t1, tD, policy)
	res.Vulnerability = Slope(tD, t0, policy)

	graph.Triangle = []Point{t0, tD, t1}
	graph.DABRegion = &Region{Start: t0.Date, End: t1.Date}
	graph.CriticalEvents = &CriticalEvents{
		DisasterStart:    t0.Date,
		DisasterEnd:      inactive.Date,
		SystematicImpact: tD.Date,
		Recovery:         t1.Date,
	}
	graph.ShowTriangle, graph.ShowCritical, graph.FillDAB = true, true, true
	return nil
}

// pointsFrom returns the date-sorted points after from (inclusive when
// inclusive is set), as a fresh slice.
func pointsFrom(signal DailySignal, from time.Time, inclusive bool) []SignalPoint {
	out := make([]SignalPoint, 0, len(signal.Points))
	for _, p := range signal.Points {
		if p.Date.After(from) || (inclusive && p.Date.Equal(from)) {
			out = append(out, p)
		}
	}
	sortByDate(out)
	return out
}

// argExtreme returns the index of the first non-NaN value that wins every
// better(candidate, current) comparison, or -1 when all values are NaN.
func argExtreme(pts []SignalPoint, better func(a, b float64) bool) int {
	best := -1
	for i, p := range pts {
		if math.IsNaN(p.Value) {
			continue
		}
		if best < 0 || better(p.Value, pts[best].Value) {
			best = i
		}
	}
	return best
}
