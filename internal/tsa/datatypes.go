// Package tsa holds the multivariate time-series models: VAR estimation,
// unit-root and cointegration tests, the VECM and its level-VAR form,
// residual diagnostics and bootstrapped impulse responses.
package tsa

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
	"macrovecm/internal/panel"
)

// Simple struct for time series data
type TimeSeries struct {
	// Matrix for data, rows are time points
	Y *mat.Dense
	// Row dates, one per row of Y
	Dates []time.Time
	// List of variable names
	VarNames []string
}

// FromPanel takes the named panel columns, in order, as a multivariate series.
func FromPanel(p *panel.Panel, cols ...string) (*TimeSeries, error) {
	Y, err := p.Matrix(cols...)
	if err != nil {
		return nil, err
	}
	return &TimeSeries{
		Y:        Y,
		Dates:    p.Dates(),
		VarNames: append([]string(nil), cols...),
	}, nil
}

// Len returns the number of time points
func (ts *TimeSeries) Len() int {
	r, _ := ts.Y.Dims()
	return r
}

// Column returns a copy of variable j
func (ts *TimeSeries) Column(j int) []float64 {
	return mat.Col(nil, j, ts.Y)
}

// Index returns the position of the named variable.
func (ts *TimeSeries) Index(name string) (int, error) {
	for i, n := range ts.VarNames {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("variable %s not in %v", name, ts.VarNames)
}

// contiguous checks that dated rows are consecutive months. Series without
// dates are taken as contiguous.
func (ts *TimeSeries) contiguous() error {
	if len(ts.Dates) != ts.Len() {
		return nil
	}
	for t := 1; t < len(ts.Dates); t++ {
		if want := ts.Dates[t-1].AddDate(0, 1, 0); !ts.Dates[t].Equal(want) {
			return fmt.Errorf("%s follows %s: %w",
				ts.Dates[t].Format("2006-01"), ts.Dates[t-1].Format("2006-01"), apperr.ErrGap)
		}
	}
	return nil
}

// Diff returns the first differences; the result has one row fewer.
// Dated series must have no missing month.
func (ts *TimeSeries) Diff() (*TimeSeries, error) {
	T, K := ts.Y.Dims()
	if T < 2 {
		return nil, fmt.Errorf("need at least 2 rows to difference, got %d: %w", T, apperr.ErrInsufficientData)
	}
	if err := ts.contiguous(); err != nil {
		return nil, fmt.Errorf("difference: %w", err)
	}
	D := mat.NewDense(T-1, K, nil)
	for t := 1; t < T; t++ {
		for k := 0; k < K; k++ {
			D.Set(t-1, k, ts.Y.At(t, k)-ts.Y.At(t-1, k))
		}
	}
	out := &TimeSeries{Y: D, VarNames: append([]string(nil), ts.VarNames...)}
	if len(ts.Dates) == T {
		out.Dates = append([]time.Time(nil), ts.Dates[1:]...)
	}
	return out, nil
}

type Deterministic int

// Deterministic Constants for VAR
const (
	DetNone Deterministic = iota
	DetConst
	DetTrend
	DetConstTrend
)

func (d Deterministic) hasConst() bool { return d == DetConst || d == DetConstTrend }
func (d Deterministic) hasTrend() bool { return d == DetTrend || d == DetConstTrend }

// columns returns the number of deterministic regressors
func (d Deterministic) columns() int {
	n := 0
	if d.hasConst() {
		n++
	}
	if d.hasTrend() {
		n++
	}
	return n
}

// What kind of model to fit
type ModelSpec struct {
	// How many lags?
	Lags int
	// What kind of constant to include
	Deterministic Deterministic
}

type ReducedFormVAR struct {
	Model ModelSpec

	// Coefficient matrices for each lag A_1, A_2, etc (each KxK matrix)
	A []*mat.Dense

	// Deterministic terms: constant (Kx1) and trend (Kx1) if included
	C *mat.Dense

	// Covariance of residuals (KxK)
	SigmaU *mat.SymDense

	// Residuals, one row per usable observation (T-p x K)
	Residuals *mat.Dense

	VarNames []string
}

type ReducedForm interface {
	// Returns the model specification
	Spec() ModelSpec
	// Returns the coefficient matrices
	Phi() []*mat.Dense
	// Returns the error covariance
	CovU() *mat.SymDense
	// Returns the deterministic coefficients (K x d), nil without deterministic terms
	Det() *mat.Dense

	// compute the forecasts for a given initial state
	Forecast(y0 *mat.Dense, steps int) (*mat.Dense, error)
	// Simulates effect of one-time shock in 1 variable on all variables over time
	IRF(horizon int, shockIndex int) (*mat.Dense, error)
}

type Estimator interface {
	// Turns the data we have into a reduced form VAR
	Estimate(ts *TimeSeries, spec ModelSpec) (*ReducedFormVAR, error)
}

// --- Plain OLS VAR estimator ---

type OLSEstimator struct{}

var (
	_ ReducedForm = (*ReducedFormVAR)(nil)
	_ Estimator   = (*OLSEstimator)(nil)
)
