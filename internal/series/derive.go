package series

import (
	"fmt"
	"math"
)

// YoY returns the year-over-year percent change (x_t/x_{t-k} - 1) * 100 with
// k = periods per year. Values without a comparison period are NaN.
func YoY(s Series) (Series, error) {
	k := s.Frequency.PeriodsPerYear()
	if k == 0 {
		return Series{}, fmt.Errorf("yoy %s: no annual lag for %s data", s.Name, s.Frequency)
	}
	return lagTransform(s, k, func(cur, prev float64) float64 {
		if prev == 0 {
			return math.NaN()
		}
		return (cur/prev - 1) * 100
	})
}

// Diff returns the first difference x_t - x_{t-1}.
func Diff(s Series) (Series, error) {
	return lagTransform(s, 1, func(cur, prev float64) float64 { return cur - prev })
}

// lagTransform applies f to each value and the value lag periods earlier.
// The comparison period is looked up by calendar date, not position.
func lagTransform(s Series, lag int, f func(cur, prev float64) float64) (Series, error) {
	step := s.Frequency.MonthsPerPeriod()
	if step == 0 {
		return Series{}, fmt.Errorf("transform %s: %s data has no calendar step", s.Name, s.Frequency)
	}
	idx := s.index()
	out := Series{Name: s.Name, Frequency: s.Frequency, Obs: make([]Observation, len(s.Obs))}
	for i, o := range s.Obs {
		v := math.NaN()
		if j, ok := idx[o.Date.AddDate(0, -lag*step, 0)]; ok {
			prev := s.Obs[j].Value
			if !math.IsNaN(prev) && !math.IsNaN(o.Value) {
				v = f(o.Value, prev)
			}
		}
		out.Obs[i] = Observation{Date: o.Date, Value: v}
	}
	return out, nil
}
