package series

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Aggregation decides how same-period observations collapse into one value.
type Aggregation int

const (
	// AggMean averages the non-missing observations of a period.
	AggMean Aggregation = iota
	// AggLast keeps the right-most non-missing observation of a period.
	AggLast
)

func (a Aggregation) String() string {
	if a == AggLast {
		return "last"
	}
	return "mean"
}

// Normalize reduces raw to one observation per period of freq. Periods whose
// observations are all missing are omitted.
func Normalize(raw RawSeries, freq Frequency, agg Aggregation) (Series, error) {
	if freq != Monthly && freq != Quarterly && freq != Annual {
		return Series{}, fmt.Errorf("normalize %s: unsupported target frequency %s", raw.Name, freq)
	}
	if raw.Frequency > freq {
		return Series{}, fmt.Errorf("normalize %s: cannot convert %s to finer %s", raw.Name, raw.Frequency, freq)
	}

	obs := make([]Observation, len(raw.Obs))
	copy(obs, raw.Obs)
	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })

	groups := make(map[time.Time][]float64)
	var keys []time.Time
	for _, o := range obs {
		if o.Missing() {
			continue
		}
		k := PeriodKey(o.Date, freq)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], o.Value)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := Series{Name: raw.Name, Frequency: freq, Obs: make([]Observation, 0, len(keys))}
	for _, k := range keys {
		vals := groups[k]
		var v float64
		switch agg {
		case AggLast:
			v = vals[len(vals)-1]
		default:
			v = stat.Mean(vals, nil)
		}
		out.Obs = append(out.Obs, Observation{Date: k, Value: v})
	}
	return out, nil
}
