package tsa

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
	"macrovecm/internal/regress"
)

// AutoLag selects the ADF lag order trunc((n-1)^(1/3)).
const AutoLag = -1

// ADFResult is an augmented Dickey-Fuller test with constant and linear trend.
type ADFResult struct {
	Name      string
	Statistic float64
	PValue    float64
	Lags      int
	N         int // observations in the test regression
	// Bounded is set when the statistic lies outside the table and PValue is clamped.
	Bounded bool
}

// Stationary reports rejection of the unit root at level alpha.
func (r ADFResult) Stationary(alpha float64) bool { return r.PValue < alpha }

// Critical values of the Dickey-Fuller t statistic with constant and trend
// (Banerjee et al. 1993). Rows are sample sizes, columns are probabilities.
var (
	adfSampleSizes = []float64{25, 50, 100, 250, 500, 100000}
	adfProbs       = []float64{0.01, 0.025, 0.05, 0.10, 0.90, 0.95, 0.975, 0.99}
	adfTable       = [][]float64{
		{-4.38, -3.95, -3.60, -3.24, -1.14, -0.80, -0.50, -0.15},
		{-4.15, -3.80, -3.50, -3.18, -1.19, -0.87, -0.58, -0.24},
		{-4.04, -3.73, -3.45, -3.15, -1.22, -0.90, -0.62, -0.28},
		{-3.99, -3.69, -3.43, -3.13, -1.23, -0.92, -0.64, -0.31},
		{-3.98, -3.68, -3.42, -3.13, -1.24, -0.93, -0.65, -0.32},
		{-3.96, -3.66, -3.41, -3.12, -1.25, -0.94, -0.66, -0.33},
	}
)

// ADF tests x for a unit root. lags is the number of lagged differences;
// AutoLag uses trunc((len(x)-1)^(1/3)).
func ADF(name string, x []float64, lags int) (*ADFResult, error) {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("adf %s: non-finite value at %d", name, i)
		}
	}
	if lags == AutoLag {
		lags = int(math.Trunc(math.Pow(float64(len(x)-1), 1.0/3.0)))
	}
	if lags < 0 {
		return nil, fmt.Errorf("adf %s: negative lag order %d", name, lags)
	}

	// y = diff(x); regression rows i = k-1..n-1 with k = lags+1
	k := lags + 1
	n := len(x) - 1
	rows := n - k + 1
	cols := 3 + lags
	if n < 1 || rows < cols+1 {
		return nil, fmt.Errorf("adf %s: %d observations for %d lags: %w", name, len(x), lags, apperr.ErrInsufficientData)
	}

	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = x[i+1] - x[i]
	}

	yt := make([]float64, rows)
	X := mat.NewDense(rows, cols, nil)
	names := make([]string, cols)
	names[0], names[1], names[2] = regress.Intercept, "xt1", "tt"
	for j := 1; j <= lags; j++ {
		names[2+j] = fmt.Sprintf("yt1.%d", j)
	}
	for r := 0; r < rows; r++ {
		i := r + k - 1
		yt[r] = y[i]
		X.Set(r, 0, 1)
		X.Set(r, 1, x[i])
		X.Set(r, 2, float64(i+1))
		for j := 1; j <= lags; j++ {
			X.Set(r, 2+j, y[i-j])
		}
	}

	fit, err := regress.OLS(yt, X, names, true)
	if err != nil {
		return nil, fmt.Errorf("adf %s: %w", name, err)
	}
	stat := fit.TStat[1]
	p, bounded, err := adfPValue(stat, float64(n))
	if err != nil {
		return nil, fmt.Errorf("adf %s: %w", name, err)
	}

	return &ADFResult{
		Name:      name,
		Statistic: stat,
		PValue:    p,
		Lags:      lags,
		N:         rows,
		Bounded:   bounded,
	}, nil
}

// adfPValue interpolates the critical values at sample size n, then the
// probability at stat. Both steps clamp at the table edges.
func adfPValue(stat, n float64) (float64, bool, error) {
	nc := clamp(n, adfSampleSizes[0], adfSampleSizes[len(adfSampleSizes)-1])

	crit := make([]float64, len(adfProbs))
	for j := range adfProbs {
		col := make([]float64, len(adfSampleSizes))
		for i := range adfSampleSizes {
			col[i] = adfTable[i][j]
		}
		var pl interp.PiecewiseLinear
		if err := pl.Fit(adfSampleSizes, col); err != nil {
			return 0, false, err
		}
		crit[j] = pl.Predict(nc)
	}

	bounded := stat < crit[0] || stat > crit[len(crit)-1]
	sc := clamp(stat, crit[0], crit[len(crit)-1])

	var pl interp.PiecewiseLinear
	if err := pl.Fit(crit, adfProbs); err != nil {
		return 0, false, err
	}
	return pl.Predict(sc), bounded, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
