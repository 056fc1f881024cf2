package domain

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/integrate"
)

// FindRecoveryPoint returns the first date after end whose baseline-relative
// value is within threshold of zero. Failing that it returns the date of the
// value closest to zero, and end itself when nothing follows end.
// The boolean reports whether the threshold was met.
func FindRecoveryPoint(signal DailySignal, end time.Time, threshold float64) (time.Time, bool, error) {
	post := pointsFrom(signal, end, false)
	if len(post) == 0 {
		return end, false, nil
	}

	for _, p := range post {
		if math.Abs(p.Value) <= threshold {
			return p.Date, true, nil
		}
	}

	abs := make([]SignalPoint, len(post))
	for i, p := range post {
		abs[i] = SignalPoint{Date: p.Date, Value: math.Abs(p.Value)}
	}
	idx := argExtreme(abs, func(a, b float64) bool { return a < b })
	if idx < 0 {
		return time.Time{}, false, specialCase(msgNoPostEventValues)
	}
	return post[idx].Date, false, nil
}

// Integrate applies the trapezoidal rule to the signal over [start, end],
// using whole days since the first observation in the window as x.
// Fewer than two observations integrate to 0.
func Integrate(signal DailySignal, start, end time.Time) float64 {
	var curve []SignalPoint
	for _, p := range signal.Points {
		if !p.Date.Before(start) && !p.Date.After(end) {
			curve = append(curve, p)
		}
	}
	if len(curve) < 2 {
		return 0
	}
	sortByDate(curve)

	origin := curve[0].Date
	x := make([]float64, len(curve))
	y := make([]float64, len(curve))
	for i, p := range curve {
		x[i] = float64(daysBetween(origin, p.Date))
		y[i] = p.Value
	}
	return integrate.Trapezoidal(x, y)
}

// CalculateAUC runs the area-under-the-curve model on a baseline-normalized
// signal. Special cases come back with zero resilience and no recovery point.
func CalculateAUC(signal DailySignal, start, end time.Time, threshold float64) (AUCResult, AUCGraph) {
	res := AUCResult{DisasterStart: start, DisasterEnd: end}

	recovery, recovered, err := FindRecoveryPoint(signal, end, threshold)
	if err != nil {
		var sc *SpecialCase
		if !errors.As(err, &sc) {
			sc = &SpecialCase{Message: err.Error()}
		}
		res.IsSpecialCase = true
		res.Message = sc.Message
		return res, AUCGraph{}
	}

	res.RecoveryPoint = &recovery
	res.Recovered = recovered
	res.Resilience = Integrate(signal, start, recovery)

	graph := AUCGraph{
		DisasterRegion:   &Region{Start: start, End: end},
		ResilienceRegion: &Region{Start: start, End: recovery},
		CriticalEvents: &CriticalEvents{
			DisasterStart: start,
			DisasterEnd:   end,
			Recovery:      recovery,
		},
		FillRegion:   true,
		ShowCritical: true,
	}
	return res, graph
}
