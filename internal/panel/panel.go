// Package panel aligns several series onto a common date key and applies the
// fill, restriction and completeness rules that produce the analysis panel.
package panel

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/series"
)

// Canonical column names
const (
	Inflation     = "Inflation_YY"
	InterestRate  = "Interest_Rate"
	Unemployment  = "Unemployment_Rate"
	GDPGrowth     = "GDP_Growth_YY"
	DInterestRate = "D_Interest_Rate"
	DUnemployment = "D_Unemployment_Rate"
)

// CanonicalColumns is the fixed column order of the merged panel and its CSV.
var CanonicalColumns = []string{Inflation, InterestRate, Unemployment, GDPGrowth}

// Panel is a date-keyed table of float columns. Missing cells are NaN.
// Methods never modify the receiver.
type Panel struct {
	dates   []time.Time
	columns []string
	values  map[string][]float64
}

// New builds a panel from dates and column data in the given order.
func New(dates []time.Time, columns []string, data map[string][]float64) (*Panel, error) {
	p := &Panel{
		dates:   append([]time.Time(nil), dates...),
		columns: append([]string(nil), columns...),
		values:  make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		col, ok := data[c]
		if !ok {
			return nil, fmt.Errorf("panel: column %s has no data", c)
		}
		if len(col) != len(dates) {
			return nil, fmt.Errorf("panel: column %s has %d values for %d dates", c, len(col), len(dates))
		}
		p.values[c] = append([]float64(nil), col...)
	}
	for i := 1; i < len(p.dates); i++ {
		if !p.dates[i].After(p.dates[i-1]) {
			return nil, fmt.Errorf("panel: dates not strictly increasing at %s", p.dates[i].Format(time.DateOnly))
		}
	}
	return p, nil
}

// Join outer-joins the series on date; each series becomes a column named after it.
func Join(ss ...series.Series) (*Panel, error) {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, s := range ss {
		for _, o := range s.Obs {
			if !seen[o.Date] {
				seen[o.Date] = true
				dates = append(dates, o.Date)
			}
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	pos := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		pos[d] = i
	}

	columns := make([]string, 0, len(ss))
	data := make(map[string][]float64, len(ss))
	for _, s := range ss {
		if _, dup := data[s.Name]; dup {
			return nil, fmt.Errorf("panel: duplicate column %s", s.Name)
		}
		col := nanSlice(len(dates))
		for _, o := range s.Obs {
			col[pos[o.Date]] = o.Value
		}
		columns = append(columns, s.Name)
		data[s.Name] = col
	}
	return New(dates, columns, data)
}

// Len returns the number of rows
func (p *Panel) Len() int { return len(p.dates) }

// Dates returns a copy of the row keys
func (p *Panel) Dates() []time.Time { return append([]time.Time(nil), p.dates...) }

// Columns returns the column names in order
func (p *Panel) Columns() []string { return append([]string(nil), p.columns...) }

// Column returns a copy of the named column.
func (p *Panel) Column(name string) ([]float64, error) {
	col, ok := p.values[name]
	if !ok {
		return nil, fmt.Errorf("panel: no column %s", name)
	}
	return append([]float64(nil), col...), nil
}

// Series returns the named column as a series.
func (p *Panel) Series(name string, freq series.Frequency) (series.Series, error) {
	col, ok := p.values[name]
	if !ok {
		return series.Series{}, fmt.Errorf("panel: no column %s", name)
	}
	s := series.Series{Name: name, Frequency: freq, Obs: make([]series.Observation, len(col))}
	for i, v := range col {
		s.Obs[i] = series.Observation{Date: p.dates[i], Value: v}
	}
	return s, nil
}

// Select returns a panel with only the named columns, in that order.
func (p *Panel) Select(cols ...string) (*Panel, error) {
	data := make(map[string][]float64, len(cols))
	for _, c := range cols {
		col, ok := p.values[c]
		if !ok {
			return nil, fmt.Errorf("panel: no column %s", c)
		}
		data[c] = col
	}
	return New(p.dates, cols, data)
}

// WithColumn returns a panel with col replaced or appended.
func (p *Panel) WithColumn(name string, col []float64) (*Panel, error) {
	data := make(map[string][]float64, len(p.columns)+1)
	for k, v := range p.values {
		data[k] = v
	}
	cols := p.Columns()
	if _, ok := p.values[name]; !ok {
		cols = append(cols, name)
	}
	data[name] = col
	return New(p.dates, cols, data)
}

// Rename returns a panel with column from renamed to to, keeping its position.
func (p *Panel) Rename(from, to string) (*Panel, error) {
	if _, ok := p.values[from]; !ok {
		return nil, fmt.Errorf("panel: no column %s", from)
	}
	if _, ok := p.values[to]; ok && from != to {
		return nil, fmt.Errorf("panel: column %s already exists", to)
	}
	cols := p.Columns()
	data := make(map[string][]float64, len(cols))
	for i, c := range cols {
		if c == from {
			cols[i] = to
			data[to] = p.values[from]
			continue
		}
		data[c] = p.values[c]
	}
	return New(p.dates, cols, data)
}

// Between keeps rows with from <= date <= to. A zero bound is open.
func (p *Panel) Between(from, to time.Time) *Panel {
	return p.filter(func(i int) bool {
		d := p.dates[i]
		if !from.IsZero() && d.Before(from) {
			return false
		}
		if !to.IsZero() && d.After(to) {
			return false
		}
		return true
	})
}

// DropIncomplete keeps only rows where every column has a value.
func (p *Panel) DropIncomplete() *Panel {
	return p.filter(func(i int) bool {
		for _, c := range p.columns {
			if math.IsNaN(p.values[c][i]) {
				return false
			}
		}
		return true
	})
}

// Complete reports whether no cell is missing.
func (p *Panel) Complete() bool {
	for _, c := range p.columns {
		for _, v := range p.values[c] {
			if math.IsNaN(v) {
				return false
			}
		}
	}
	return true
}

// Matrix returns the named columns as a rows x len(cols) matrix.
func (p *Panel) Matrix(cols ...string) (*mat.Dense, error) {
	if p.Len() == 0 || len(cols) == 0 {
		return nil, fmt.Errorf("panel: empty matrix (%d rows, %d columns)", p.Len(), len(cols))
	}
	m := mat.NewDense(p.Len(), len(cols), nil)
	for j, c := range cols {
		col, ok := p.values[c]
		if !ok {
			return nil, fmt.Errorf("panel: no column %s", c)
		}
		m.SetCol(j, col)
	}
	return m, nil
}

func (p *Panel) filter(keep func(i int) bool) *Panel {
	out := &Panel{
		columns: p.Columns(),
		values:  make(map[string][]float64, len(p.columns)),
	}
	for _, c := range p.columns {
		out.values[c] = make([]float64, 0, len(p.dates))
	}
	for i, d := range p.dates {
		if !keep(i) {
			continue
		}
		out.dates = append(out.dates, d)
		for _, c := range p.columns {
			out.values[c] = append(out.values[c], p.values[c][i])
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
