// Package fetch retrieves raw series from the statistical-office and
// financial-data providers and normalizes their response shapes into
// series.RawSeries at the boundary.
package fetch

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"macrovecm/internal/series"
)

// Response is a decoded provider response. It is one of *PanelResponse or
// *SeriesResponse.
type Response interface {
	toRaw(name string) (series.RawSeries, error)
}

// PanelRow is one cell of a dimensioned dataset.
type PanelRow struct {
	Time       time.Time
	Categories map[string]string
	Value      float64
}

// PanelResponse is a dimensioned panel as returned by the statistical office.
type PanelResponse struct {
	Dataset   string
	Frequency series.Frequency
	// Filters the request was made with; rows must match all of them.
	Filters map[string]string
	Rows    []PanelRow
}

// SeriesResponse is a single named series as returned by the financial-data API.
type SeriesResponse struct {
	SeriesID  string
	Source    string
	Frequency series.Frequency
	Obs       []series.Observation
}

// Normalize turns any provider response into a RawSeries named name.
func Normalize(resp Response, name string) (series.RawSeries, error) {
	if resp == nil {
		return series.RawSeries{}, fmt.Errorf("normalize %s: nil response", name)
	}
	return resp.toRaw(name)
}

// toRaw keeps the rows matching every filter and averages rows that share a
// time stamp across the remaining dimensions.
func (p *PanelResponse) toRaw(name string) (series.RawSeries, error) {
	groups := make(map[time.Time][]float64)
	var times []time.Time

	for _, row := range p.Rows {
		if !matches(row.Categories, p.Filters) {
			continue
		}
		if _, ok := groups[row.Time]; !ok {
			times = append(times, row.Time)
			groups[row.Time] = nil
		}
		if !math.IsNaN(row.Value) {
			groups[row.Time] = append(groups[row.Time], row.Value)
		}
	}
	if len(times) == 0 {
		return series.RawSeries{}, fmt.Errorf("dataset %s: no rows match filters %v", p.Dataset, p.Filters)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	raw := series.RawSeries{Name: name, Frequency: p.Frequency, Obs: make([]series.Observation, 0, len(times))}
	for _, t := range times {
		v := math.NaN()
		if vals := groups[t]; len(vals) > 0 {
			v = stat.Mean(vals, nil)
		}
		raw.Obs = append(raw.Obs, series.Observation{Date: t, Value: v})
	}
	return raw, nil
}

func (s *SeriesResponse) toRaw(name string) (series.RawSeries, error) {
	if len(s.Obs) == 0 {
		return series.RawSeries{}, fmt.Errorf("series %s/%s: no observations", s.Source, s.SeriesID)
	}
	obs := make([]series.Observation, len(s.Obs))
	copy(obs, s.Obs)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
	return series.RawSeries{Name: name, Frequency: s.Frequency, Obs: obs}, nil
}

func matches(categories, filters map[string]string) bool {
	for dim, want := range filters {
		got, ok := categories[dim]
		if !ok {
			// the dimension was collapsed by the provider; nothing to check
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}
