// Package report writes the run's artifacts: CSV tables, PNG charts, an XLSX
// workbook, a YAML summary and console printouts.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/panel"
	"macrovecm/internal/tsa"
)

// create opens path for writing, creating its directory first.
func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

// WritePanelCSV writes p to path with an ISO date column first.
func WritePanelCSV(path string, p *panel.Panel) (err error) {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := panel.WriteCSV(f, p); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteIRFCSV writes one row per horizon with the point response of every
// variable followed by its lower and upper band.
func WriteIRFCSV(path string, r *tsa.IRFBootstrapResult) (err error) {
	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	cw := csv.NewWriter(f)
	header := []string{"horizon"}
	for _, n := range r.VarNames {
		header = append(header, n, n+"_lower", n+"_upper")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	H, K := r.Point.Dims()
	record := make([]string, len(header))
	for h := 0; h < H; h++ {
		record[0] = strconv.Itoa(h)
		for j := 0; j < K; j++ {
			record[1+3*j] = formatFloat(r.Point.At(h, j))
			record[2+3*j] = formatFloat(r.Lower.At(h, j))
			record[3+3*j] = formatFloat(r.Upper.At(h, j))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", h+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ForecastPanel dates the rows of fc monthly after last.
func ForecastPanel(last time.Time, names []string, fc *mat.Dense) (*panel.Panel, error) {
	steps, K := fc.Dims()
	if K != len(names) {
		return nil, fmt.Errorf("forecast has %d columns for %d names", K, len(names))
	}
	dates := make([]time.Time, steps)
	for i := range dates {
		dates[i] = last.AddDate(0, i+1, 0)
	}
	data := make(map[string][]float64, K)
	for j, n := range names {
		data[n] = mat.Col(nil, j, fc)
	}
	return panel.New(dates, names, data)
}

// WriteForecastCSV writes the level forecast in the panel CSV layout.
func WriteForecastCSV(path string, last time.Time, names []string, fc *mat.Dense) error {
	p, err := ForecastPanel(last, names, fc)
	if err != nil {
		return err
	}
	return WritePanelCSV(path, p)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
