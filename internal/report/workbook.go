package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"macrovecm/internal/panel"
	"macrovecm/internal/regress"
	"macrovecm/internal/tsa"
)

// Workbook sheet names
const (
	SheetPanel      = "Panel"
	SheetRegression = "Regression"
	SheetIRF        = "IRF"
)

// WriteWorkbook saves the panel, the regression table and the bootstrapped
// IRF as sheets of one XLSX file. A nil regression or IRF leaves its sheet out.
func WriteWorkbook(path string, p *panel.Panel, reg *regress.Result, irf *tsa.IRFBootstrapResult) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetPanel); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	if err := panelSheet(f, p); err != nil {
		return err
	}
	if reg != nil {
		if err := regressionSheet(f, reg); err != nil {
			return err
		}
	}
	if irf != nil {
		if err := irfSheet(f, irf); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func panelSheet(f *excelize.File, p *panel.Panel) error {
	cols := p.Columns()
	header := make([]interface{}, 0, len(cols)+1)
	header = append(header, panel.DateColumn)
	for _, c := range cols {
		header = append(header, c)
	}
	if err := setRow(f, SheetPanel, 1, header); err != nil {
		return err
	}

	data := make([][]float64, len(cols))
	for j, c := range cols {
		v, err := p.Column(c)
		if err != nil {
			return err
		}
		data[j] = v
	}
	for i, d := range p.Dates() {
		row := make([]interface{}, 0, len(cols)+1)
		row = append(row, d.Format(time.DateOnly))
		for j := range cols {
			row = append(row, cell(data[j][i]))
		}
		if err := setRow(f, SheetPanel, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func regressionSheet(f *excelize.File, r *regress.Result) error {
	if _, err := f.NewSheet(SheetRegression); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	rows := [][]interface{}{
		{"term", "estimate", "std_error", "t_value", "p_value"},
	}
	for i, n := range r.Names {
		rows = append(rows, []interface{}{n, r.Coef[i], r.StdErr[i], r.TStat[i], cell(r.PValue[i])})
	}
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"dependent", r.Dependent},
		[]interface{}{"observations", r.N},
		[]interface{}{"r_squared", r.RSquared},
		[]interface{}{"adj_r_squared", r.AdjRSquared},
		[]interface{}{"sigma", r.SigmaHat},
		[]interface{}{"f_statistic", cell(r.FStat)},
		[]interface{}{"f_p_value", cell(r.FPValue)},
	)
	for i, row := range rows {
		if err := setRow(f, SheetRegression, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func irfSheet(f *excelize.File, r *tsa.IRFBootstrapResult) error {
	if _, err := f.NewSheet(SheetIRF); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	header := []interface{}{"horizon"}
	for _, n := range r.VarNames {
		header = append(header, n, n+"_lower", n+"_upper")
	}
	if err := setRow(f, SheetIRF, 1, header); err != nil {
		return err
	}
	H, K := r.Point.Dims()
	for h := 0; h < H; h++ {
		row := []interface{}{h}
		for j := 0; j < K; j++ {
			row = append(row, r.Point.At(h, j), r.Lower.At(h, j), r.Upper.At(h, j))
		}
		if err := setRow(f, SheetIRF, h+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &values); err != nil {
		return fmt.Errorf("workbook %s row %d: %w", sheet, row, err)
	}
	return nil
}

// cell leaves non-finite values blank.
func cell(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
