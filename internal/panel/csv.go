package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// DateColumn is the header of the key column in CSV form.
const DateColumn = "date"

// WriteCSV writes the panel with an ISO date column followed by its columns.
// Missing cells are written as empty fields.
func WriteCSV(w io.Writer, p *Panel) error {
	cw := csv.NewWriter(w)

	header := append([]string{DateColumn}, p.columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for i, d := range p.dates {
		record[0] = d.Format(time.DateOnly)
		for j, c := range p.columns {
			v := p.values[c][i]
			if math.IsNaN(v) {
				record[j+1] = ""
				continue
			}
			record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a panel written by WriteCSV:
//
//   - The first row is a header; its first field is the date column
//   - Every other row is an ISO date followed by numeric values
//   - Empty fields are missing values
func ReadCSV(r io.Reader) (*Panel, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 || header[0] != DateColumn {
		return nil, fmt.Errorf("header must start with %q and name at least one column", DateColumn)
	}
	cols := header[1:]

	var (
		dates []time.Time
		data  = make(map[string][]float64, len(cols))
		row   int
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row+2, err) // +2 for header + 1-based
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", row+2, len(header), len(record))
		}

		d, err := time.Parse(time.DateOnly, record[0])
		if err != nil {
			return nil, fmt.Errorf("parse date at row %d (%q): %w", row+2, record[0], err)
		}
		dates = append(dates, d)

		for j, c := range cols {
			s := record[j+1]
			if s == "" {
				data[c] = append(data[c], math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("parse float at row %d col %d (%q): %w", row+2, j+2, s, err)
			}
			data[c] = append(data[c], v)
		}
		row++
	}

	if row == 0 {
		for _, c := range cols {
			data[c] = []float64{}
		}
	}
	return New(dates, cols, data)
}
