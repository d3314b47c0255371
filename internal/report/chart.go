package report

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"macrovecm/internal/panel"
	"macrovecm/internal/tsa"
)

// Chart size
const (
	ChartWidth  = 10 * vg.Inch
	ChartHeight = 7 * vg.Inch
)

var (
	lineColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bandColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	zeroColor = color.Gray{Y: 128}
)

// PanelChart draws one line plot per panel column on a two-column grid.
// The panels share the date range but keep their own value scale.
func PanelChart(path string, p *panel.Panel) error {
	if p.Len() == 0 {
		return fmt.Errorf("panel chart: panel is empty")
	}
	dates := p.Dates()
	cols := p.Columns()

	plots := make([]*plot.Plot, 0, len(cols))
	for _, c := range cols {
		v, err := p.Column(c)
		if err != nil {
			return err
		}
		pl := plot.New()
		pl.Title.Text = c
		pl.X.Tick.Marker = plot.TimeTicks{Format: "2006"}
		pl.X.Min = unix(dates[0])
		pl.X.Max = unix(dates[len(dates)-1])
		pl.Add(plotter.NewGrid())

		l, err := plotter.NewLine(timeXYs(dates, v))
		if err != nil {
			return fmt.Errorf("panel chart %s: %w", c, err)
		}
		l.Color = lineColor
		pl.Add(l)
		plots = append(plots, pl)
	}
	return saveGrid(path, plots)
}

// IRFChart draws the response of every variable to the bootstrapped shock,
// with the percentile band dashed and a zero line.
func IRFChart(path string, r *tsa.IRFBootstrapResult) error {
	H, K := r.Point.Dims()
	if H == 0 {
		return fmt.Errorf("irf chart: no horizons")
	}

	plots := make([]*plot.Plot, 0, K)
	for j := 0; j < K; j++ {
		pl := plot.New()
		pl.Title.Text = fmt.Sprintf("%s -> %s", r.Impulse, r.VarNames[j])
		pl.X.Label.Text = "months"
		pl.Add(plotter.NewGrid())

		zero := plotter.NewFunction(func(float64) float64 { return 0 })
		zero.Color = zeroColor
		pl.Add(zero)

		for _, band := range []struct {
			src  func(h int) float64
			name string
		}{
			{func(h int) float64 { return r.Lower.At(h, j) }, "lower"},
			{func(h int) float64 { return r.Upper.At(h, j) }, "upper"},
		} {
			l, err := plotter.NewLine(horizonXYs(H, band.src))
			if err != nil {
				return fmt.Errorf("irf chart %s %s: %w", r.VarNames[j], band.name, err)
			}
			l.Color = bandColor
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			pl.Add(l)
		}

		l, err := plotter.NewLine(horizonXYs(H, func(h int) float64 { return r.Point.At(h, j) }))
		if err != nil {
			return fmt.Errorf("irf chart %s: %w", r.VarNames[j], err)
		}
		l.Color = lineColor
		l.Width = vg.Points(1.5)
		pl.Add(l)

		pl.X.Min, pl.X.Max = 0, float64(H-1)
		plots = append(plots, pl)
	}
	return saveGrid(path, plots)
}

// saveGrid lays plots out row by row on a two-column grid and writes a PNG.
func saveGrid(path string, plots []*plot.Plot) (err error) {
	const cols = 2
	rows := (len(plots) + cols - 1) / cols

	grid := make([][]*plot.Plot, rows)
	for i := range grid {
		grid[i] = make([]*plot.Plot, cols)
		for j := range grid[i] {
			k := i*cols + j
			if k < len(plots) {
				grid[i][j] = plots[k]
				continue
			}
			blank := plot.New()
			blank.HideAxes()
			grid[i][j] = blank
		}
	}

	img := vgimg.New(ChartWidth, ChartHeight)
	dc := draw.New(img)
	t := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(grid, t, dc)
	for i := range grid {
		for j := range grid[i] {
			grid[i][j].Draw(canvases[i][j])
		}
	}

	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func unix(t time.Time) float64 { return float64(t.Unix()) }

// timeXYs pairs dates with values, skipping missing values.
func timeXYs(dates []time.Time, v []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(v))
	for i, y := range v {
		if math.IsNaN(y) {
			continue
		}
		xys = append(xys, plotter.XY{X: unix(dates[i]), Y: y})
	}
	return xys
}

func horizonXYs(H int, at func(h int) float64) plotter.XYs {
	xys := make(plotter.XYs, H)
	for h := range xys {
		xys[h] = plotter.XY{X: float64(h), Y: at(h)}
	}
	return xys
}
