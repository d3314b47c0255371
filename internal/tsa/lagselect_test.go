package tsa

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
)

// simulateVAR draws T rows from y_t = c + sum_j A_j y_{t-j} + u_t with
// independent standard normal shocks scaled by sd.
func simulateVAR(seed int64, T int, c []float64, A [][]float64, sd float64) *TimeSeries {
	K := len(c)
	p := len(A)
	rng := rand.New(rand.NewSource(seed))
	burn := 100
	Y := mat.NewDense(T+burn, K, nil)
	for t := p; t < T+burn; t++ {
		for i := 0; i < K; i++ {
			v := c[i] + sd*rng.NormFloat64()
			for j := 0; j < p; j++ {
				for k := 0; k < K; k++ {
					v += A[j][i*K+k] * Y.At(t-j-1, k)
				}
			}
			Y.Set(t, i, v)
		}
	}
	names := make([]string, K)
	for i := range names {
		names[i] = string(rune('a' + i))
	}
	return &TimeSeries{Y: mat.DenseCopyOf(Y.Slice(burn, T+burn, 0, K)), VarNames: names}
}

func TestSelectLagOrder_RecoversVAR2(t *testing.T) {
	ts := simulateVAR(42, 400,
		[]float64{0.5, -0.2},
		[][]float64{
			{0.5, 0.1, 0.0, 0.4},
			{-0.3, 0.0, 0.1, -0.25},
		}, 1.0)

	sel, err := SelectLagOrder(&OLSEstimator{}, ts, 6, HQ)
	require.NoError(t, err)

	assert.Equal(t, 394, sel.Sample)
	assert.Equal(t, 2, sel.Selected[SC])
	assert.Equal(t, 2, sel.Selected[HQ])
	assert.Equal(t, 2, sel.Order())
	assert.GreaterOrEqual(t, sel.Selected[AIC], 2)

	n := float64(sel.Sample)
	for p := 1; p <= 6; p++ {
		penalty := float64(p*4 + 2)
		diff := sel.Values[SC][p-1] - sel.Values[AIC][p-1]
		assert.InDelta(t, (math.Log(n)-2)/n*penalty, diff, 1e-9, "lag %d", p)
	}
}

func TestSelectLagOrder_InsufficientData(t *testing.T) {
	ts := simulateVAR(1, 20, []float64{0, 0, 0}, [][]float64{{0.1, 0, 0, 0, 0.1, 0, 0, 0, 0.1}}, 1)
	_, err := SelectLagOrder(&OLSEstimator{}, ts, 6, AIC)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))
}

func TestParseCriterion(t *testing.T) {
	for in, want := range map[string]Criterion{"aic": AIC, "HQ": HQ, "sc": SC, "bic": SC, "fpe": FPE} {
		got, err := ParseCriterion(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCriterion("lr")
	assert.Error(t, err)
}

type countingEstimator struct {
	OLSEstimator
	lags []int
}

func (e *countingEstimator) Estimate(ts *TimeSeries, spec ModelSpec) (*ReducedFormVAR, error) {
	e.lags = append(e.lags, spec.Lags)
	return e.OLSEstimator.Estimate(ts, spec)
}

func TestSelectLagOrder_FitsThroughEstimator(t *testing.T) {
	ts := simulateVAR(7, 200, []float64{0, 0}, [][]float64{{0.5, 0, 0, 0.5}}, 1)
	est := &countingEstimator{}

	_, err := SelectLagOrder(est, ts, 4, AIC)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, est.lags)
}
