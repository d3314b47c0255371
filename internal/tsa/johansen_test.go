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

// cointegratedPair simulates x1 as a random walk and x2 = 0.5 + x1 + s with
// s a stationary AR(1), so x1 - x2 + 0.5 is stationary.
func cointegratedPair(seed int64, T int) *TimeSeries {
	rng := rand.New(rand.NewSource(seed))
	Y := mat.NewDense(T, 2, nil)
	x1, s := 0.0, 0.0
	for t := 0; t < T; t++ {
		x1 += rng.NormFloat64()
		s = 0.5*s + rng.NormFloat64()
		Y.Set(t, 0, x1)
		Y.Set(t, 1, 0.5+x1+s)
	}
	return &TimeSeries{Y: Y, VarNames: []string{"x1", "x2"}}
}

func TestJohansen_FindsCointegration(t *testing.T) {
	ts := cointegratedPair(3, 500)

	jo, err := Johansen(ts, 2)
	require.NoError(t, err)

	assert.Equal(t, 498, jo.N)
	require.Len(t, jo.Eigenvalues, 3)
	require.Len(t, jo.Trace, 2)
	for i := 1; i < len(jo.Eigenvalues); i++ {
		assert.GreaterOrEqual(t, jo.Eigenvalues[i-1], jo.Eigenvalues[i])
	}
	for _, l := range jo.Eigenvalues[:2] {
		assert.True(t, l >= 0 && l < 1, "eigenvalue %v", l)
	}

	assert.Equal(t, [3]float64{17.85, 19.96, 24.60}, jo.CriticalValues[0])
	assert.Equal(t, [3]float64{7.52, 9.24, 12.97}, jo.CriticalValues[1])
	assert.Greater(t, jo.Trace[0], jo.CriticalValues[0][2])
	assert.GreaterOrEqual(t, jo.SuggestedRank, 1)

	// trace statistics are cumulative in the eigenvalues
	assert.InDelta(t, -float64(jo.N)*math.Log(1-jo.Eigenvalues[1]), jo.Trace[1], 1e-9)

	// first vector normalized on x1: roughly (1, -1, 0.5)
	assert.Equal(t, 1.0, jo.V.At(0, 0))
	assert.InDelta(t, -1.0, jo.V.At(1, 0), 0.05)
	assert.InDelta(t, 0.5, jo.V.At(2, 0), 0.5)
}

func TestJohansen_Preconditions(t *testing.T) {
	ts := cointegratedPair(1, 100)

	_, err := Johansen(ts, 1)
	assert.Error(t, err)

	short := &TimeSeries{Y: mat.DenseCopyOf(ts.Y.Slice(0, 6, 0, 2)), VarNames: ts.VarNames}
	_, err = Johansen(short, 3)
	assert.True(t, errors.Is(err, apperr.ErrInsufficientData))
}

func TestVECM_ToVARReproducesResiduals(t *testing.T) {
	ts := cointegratedPair(5, 300)
	jo, err := Johansen(ts, 3)
	require.NoError(t, err)

	v, err := jo.VECM(1)
	require.NoError(t, err)
	assert.Len(t, v.Gamma, 2)
	assert.Equal(t, 1.0, v.Beta.At(0, 0))

	// loadings pull x2 back towards x1 + 0.5
	assert.Greater(t, v.Alpha.At(1, 0), 0.0)

	rf, err := v.ToVAR()
	require.NoError(t, err)
	assert.Equal(t, 3, rf.Model.Lags)
	assert.Equal(t, DetConst, rf.Model.Deterministic)

	r1, c1 := v.Residuals.Dims()
	r2, c2 := rf.Residuals.Dims()
	require.Equal(t, r1, r2)
	require.Equal(t, c1, c2)
	for i := 0; i < r1; i++ {
		for j := 0; j < c1; j++ {
			assert.InDelta(t, v.Residuals.At(i, j), rf.Residuals.At(i, j), 1e-8)
		}
	}

	// sum_i A_i - I equals the level part of Pi
	pi := v.Pi()
	var sum mat.Dense
	sum.Add(rf.A[0], rf.A[1])
	sum.Add(&sum, rf.A[2])
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := pi.At(i, j)
			if i == j {
				want++
			}
			assert.InDelta(t, want, sum.At(i, j), 1e-10)
		}
	}
	assert.InDelta(t, pi.At(0, 2), rf.C.At(0, 0), 1e-12)

	// SigmaU = U'U / T
	var utu mat.Dense
	utu.Mul(rf.Residuals.T(), rf.Residuals)
	assert.InDelta(t, utu.At(0, 1)/float64(r2), rf.SigmaU.At(0, 1), 1e-12)
}

func TestVECM_RankOutOfRange(t *testing.T) {
	jo, err := Johansen(cointegratedPair(2, 120), 2)
	require.NoError(t, err)

	_, err = jo.VECM(0)
	assert.Error(t, err)
	_, err = jo.VECM(2)
	assert.Error(t, err)
}
