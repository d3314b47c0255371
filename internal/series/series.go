// Package series holds the single-variable time series types and the
// frequency normalization and indicator transforms applied to them.
package series

import (
	"fmt"
	"math"
	"time"
)

// Frequency of a series
type Frequency int

const (
	Daily Frequency = iota
	Monthly
	Quarterly
	Annual
)

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Annual:
		return "annual"
	}
	return fmt.Sprintf("frequency(%d)", int(f))
}

// PeriodsPerYear is the year-over-year lag for the frequency.
func (f Frequency) PeriodsPerYear() int {
	switch f {
	case Monthly:
		return 12
	case Quarterly:
		return 4
	case Annual:
		return 1
	}
	return 0
}

// MonthsPerPeriod is the calendar step between consecutive periods.
func (f Frequency) MonthsPerPeriod() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Annual:
		return 12
	}
	return 0
}

// Observation is one dated value. A missing value is NaN.
type Observation struct {
	Date  time.Time
	Value float64
}

// Missing reports whether the observation carries no value.
func (o Observation) Missing() bool { return math.IsNaN(o.Value) }

// RawSeries is a provider series at native frequency, as delivered.
type RawSeries struct {
	Name      string
	Frequency Frequency
	Obs       []Observation
}

// Series has at most one observation per period with strictly increasing dates.
// Derived series keep undefined leading values as NaN.
type Series struct {
	Name      string
	Frequency Frequency
	Obs       []Observation
}

// Len returns the number of observations
func (s Series) Len() int { return len(s.Obs) }

// Defined returns a copy holding only the observations with a value.
func (s Series) Defined() Series {
	out := Series{Name: s.Name, Frequency: s.Frequency, Obs: make([]Observation, 0, len(s.Obs))}
	for _, o := range s.Obs {
		if !o.Missing() {
			out.Obs = append(out.Obs, o)
		}
	}
	return out
}

// LastDate returns the date of the last defined observation.
func (s Series) LastDate() (time.Time, bool) {
	for i := len(s.Obs) - 1; i >= 0; i-- {
		if !s.Obs[i].Missing() {
			return s.Obs[i].Date, true
		}
	}
	return time.Time{}, false
}

// Rename returns the series under a new name
func (s Series) Rename(name string) Series {
	s.Name = name
	return s
}

// index maps each date to its observation position
func (s Series) index() map[time.Time]int {
	idx := make(map[time.Time]int, len(s.Obs))
	for i, o := range s.Obs {
		idx[o.Date] = i
	}
	return idx
}

// Validate checks the one-per-period and ordering invariants.
func (s Series) Validate() error {
	for i := 1; i < len(s.Obs); i++ {
		if !s.Obs[i].Date.After(s.Obs[i-1].Date) {
			return fmt.Errorf("series %s: dates not strictly increasing at %s",
				s.Name, s.Obs[i].Date.Format(time.DateOnly))
		}
	}
	return nil
}

// MonthStart truncates t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodKey returns the date key of the period containing t. Quarters are
// stamped at the first day of their last month, years at December.
func PeriodKey(t time.Time, f Frequency) time.Time {
	switch f {
	case Quarterly:
		m := ((int(t.Month())-1)/3)*3 + 3
		return time.Date(t.Year(), time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	case Annual:
		return time.Date(t.Year(), time.December, 1, 0, 0, 0, 0, time.UTC)
	case Daily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return MonthStart(t)
	}
}
