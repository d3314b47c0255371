package panel

import (
	"fmt"
	"math"
	"strings"
	"time"

	"macrovecm/internal/series"
)

// FillDirection controls how gaps in a column are filled.
type FillDirection int

// The zero value is UpDown.
const (
	// UpDown fills up, then down for any trailing gap.
	UpDown FillDirection = iota
	// Down carries the last observation forward.
	Down
	// Up carries the next observation backward.
	Up
	// DownUp fills down, then up for any leading gap.
	DownUp
)

func (d FillDirection) String() string {
	switch d {
	case Down:
		return "down"
	case Up:
		return "up"
	case DownUp:
		return "downup"
	case UpDown:
		return "updown"
	}
	return fmt.Sprintf("fill(%d)", int(d))
}

// ParseFillDirection parses down, up, downup or updown.
func ParseFillDirection(s string) (FillDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down":
		return Down, nil
	case "up":
		return Up, nil
	case "downup":
		return DownUp, nil
	case "updown", "":
		return UpDown, nil
	}
	return 0, fmt.Errorf("unknown fill direction %q", s)
}

// Fill returns a panel where gaps in the named columns are filled in the given direction.
func (p *Panel) Fill(dir FillDirection, cols ...string) (*Panel, error) {
	out := p
	for _, c := range cols {
		col, err := p.Column(c)
		if err != nil {
			return nil, err
		}
		switch dir {
		case Down:
			fillDown(col)
		case Up:
			fillUp(col)
		case DownUp:
			fillDown(col)
			fillUp(col)
		case UpDown:
			fillUp(col)
			fillDown(col)
		default:
			return nil, fmt.Errorf("panel: unknown fill direction %s", dir)
		}
		if out, err = out.WithColumn(c, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fillDown(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
			continue
		}
		last = v
	}
}

func fillUp(col []float64) {
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if math.IsNaN(col[i]) {
			col[i] = next
			continue
		}
		next = col[i]
	}
}

// BuildOptions configure the merge.
type BuildOptions struct {
	// Floor is the first date kept. Zero keeps everything.
	Floor time.Time
	// FillColumns are filled across gaps before the completeness gate.
	FillColumns []string
	// Direction defaults to UpDown.
	Direction FillDirection
	// Columns fixes the output column order; defaults to CanonicalColumns.
	Columns []string
}

// Build outer-joins the inputs, fills the configured columns, restricts the
// dates to [Floor, min last defined date of the inputs] and drops every
// incomplete row. An empty result is returned without error.
func Build(inputs []series.Series, opts BuildOptions) (*Panel, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("panel: no input series")
	}
	cols := opts.Columns
	if len(cols) == 0 {
		cols = CanonicalColumns
	}

	var ceiling time.Time
	for _, s := range inputs {
		last, ok := s.LastDate()
		if !ok {
			return nil, fmt.Errorf("panel: series %s has no defined values", s.Name)
		}
		if ceiling.IsZero() || last.Before(ceiling) {
			ceiling = last
		}
	}

	p, err := Join(inputs...)
	if err != nil {
		return nil, err
	}
	if p, err = p.Fill(opts.Direction, opts.FillColumns...); err != nil {
		return nil, err
	}
	if p, err = p.Select(cols...); err != nil {
		return nil, err
	}
	return p.Between(opts.Floor, ceiling).DropIncomplete(), nil
}

// Stationary replaces Interest_Rate and Unemployment_Rate by their first
// differences and drops rows whose difference is undefined.
func Stationary(p *Panel) (*Panel, error) {
	out := p
	for _, r := range []struct{ from, to string }{
		{InterestRate, DInterestRate},
		{Unemployment, DUnemployment},
	} {
		s, err := p.Series(r.from, series.Monthly)
		if err != nil {
			return nil, err
		}
		d, err := series.Diff(s)
		if err != nil {
			return nil, err
		}
		col := make([]float64, d.Len())
		for i, o := range d.Obs {
			col[i] = o.Value
		}
		if out, err = out.WithColumn(r.from, col); err != nil {
			return nil, err
		}
		if out, err = out.Rename(r.from, r.to); err != nil {
			return nil, err
		}
	}
	return out.DropIncomplete(), nil
}
