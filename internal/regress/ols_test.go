package regress

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
	"macrovecm/internal/panel"
)

func TestOLS_SimpleLine(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2.1, 3.9, 6.2, 7.8, 10.1}
	X := mat.NewDense(5, 2, nil)
	for i, v := range x {
		X.Set(i, 0, 1)
		X.Set(i, 1, v)
	}

	res, err := OLS(y, X, []string{Intercept, "x"}, true)
	require.NoError(t, err)

	assert.InDelta(t, 0.05, res.Coef[0], 1e-9)
	assert.InDelta(t, 1.99, res.Coef[1], 1e-9)
	assert.Equal(t, 3, res.DF)

	// RSS = 0.107, TSS = 39.708
	assert.InDelta(t, 1-0.107/39.708, res.RSquared, 1e-9)
	assert.InDelta(t, 1-(1-res.RSquared)*4.0/3.0, res.AdjRSquared, 1e-12)
	assert.InDelta(t, math.Sqrt(0.107/3), res.SigmaHat, 1e-9)
	assert.InDelta(t, math.Sqrt(0.107/3/10), res.StdErr[1], 1e-9)

	// with one regressor F equals the squared slope t statistic
	assert.InDelta(t, res.TStat[1]*res.TStat[1], res.FStat, 1e-6)
	assert.InDelta(t, res.PValue[1], res.FPValue, 1e-9)
	assert.Less(t, res.PValue[1], 0.001)

	b, ok := res.Coefficient("x")
	require.True(t, ok)
	assert.Equal(t, res.Coef[1], b)
}

func TestOLS_Singular(t *testing.T) {
	X := mat.NewDense(4, 3, []float64{
		1, 1, 2,
		1, 2, 4,
		1, 3, 6,
		1, 4, 8,
	})
	_, err := OLS([]float64{1, 2, 3, 5}, X, []string{Intercept, "a", "b"}, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrSingular))
}

func TestOLS_NoResidualDegreesOfFreedom(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, 0, 1, 1})
	_, err := OLS([]float64{1, 2}, X, []string{Intercept, "a"}, true)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))
}

func testPanel(t *testing.T, n int) *panel.Panel {
	t.Helper()
	dates := make([]time.Time, n)
	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		dates[i] = time.Date(2010, time.Month(1+i), 1, 0, 0, 0, 0, time.UTC)
		a[i] = math.Sin(float64(i))
		b[i] = float64(i % 5)
		c[i] = math.Cos(0.3 * float64(i))
		y[i] = 1.5 + 0.5*a[i] - 2*b[i] + 0.25*c[i]
	}
	p, err := panel.New(dates,
		[]string{panel.Inflation, panel.DInterestRate, panel.DUnemployment, panel.GDPGrowth},
		map[string][]float64{
			panel.Inflation:     y,
			panel.DInterestRate: a,
			panel.DUnemployment: b,
			panel.GDPGrowth:     c,
		})
	require.NoError(t, err)
	return p
}

var defaultModel = Model{
	Dependent:  panel.Inflation,
	Regressors: []string{panel.DInterestRate, panel.DUnemployment, panel.GDPGrowth},
}

func TestFit_RecoversCoefficients(t *testing.T) {
	res, err := Fit(testPanel(t, 30), defaultModel)
	require.NoError(t, err)

	assert.Equal(t, panel.Inflation, res.Dependent)
	assert.Equal(t, []string{Intercept, panel.DInterestRate, panel.DUnemployment, panel.GDPGrowth}, res.Names)
	want := []float64{1.5, 0.5, -2, 0.25}
	for i := range want {
		assert.InDelta(t, want[i], res.Coef[i], 1e-8, res.Names[i])
	}
	assert.InDelta(t, 1.0, res.RSquared, 1e-10)
	assert.Equal(t, 30, res.N)
	assert.Equal(t, 26, res.DF)
}

func TestFit_InsufficientRows(t *testing.T) {
	// three regressors plus intercept need at least five rows
	_, err := Fit(testPanel(t, 4), defaultModel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))

	_, err = Fit(testPanel(t, 0), defaultModel)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))
}

func TestFit_UnknownColumn(t *testing.T) {
	_, err := Fit(testPanel(t, 10), Model{Dependent: "nope", Regressors: []string{panel.GDPGrowth}})
	assert.Error(t, err)
}
