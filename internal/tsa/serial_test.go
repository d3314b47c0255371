package tsa

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPortmanteau_ScalarOneLag(t *testing.T) {
	u := []float64{1, -1, 2, 0, -2, 1, -1, 0}
	rf := &ReducedFormVAR{
		Model:     ModelSpec{Lags: 1},
		A:         []*mat.Dense{mat.NewDense(1, 1, nil)},
		Residuals: mat.NewDense(len(u), 1, u),
	}

	res, err := Portmanteau(rf, 2, 0)
	require.NoError(t, err)

	T := float64(len(u))
	c0 := 0.0
	for _, v := range u {
		c0 += v * v
	}
	c0 /= T
	want := 0.0
	for j := 1; j <= 2; j++ {
		cj := 0.0
		for i := j; i < len(u); i++ {
			cj += u[i] * u[i-j]
		}
		cj /= T
		want += (cj / c0) * (cj / c0)
	}
	assert.InDelta(t, T*want, res.Statistic, 1e-12)
	assert.Equal(t, 2, res.DF)
	assert.Equal(t, 2, res.Lags)
}

func TestPortmanteau_DetectsAutocorrelation(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	T := 300
	U := mat.NewDense(T, 2, nil)
	a, b := 0.0, 0.0
	for i := 0; i < T; i++ {
		a = 0.8*a + rng.NormFloat64()
		b = 0.7*b + rng.NormFloat64()
		U.Set(i, 0, a)
		U.Set(i, 1, b)
	}
	rf := &ReducedFormVAR{
		Model:     ModelSpec{Lags: 2},
		A:         []*mat.Dense{mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil)},
		Residuals: U,
	}

	res, err := Portmanteau(rf, 12, 1)
	require.NoError(t, err)
	// 4*12 - 4*1 - 2*1
	assert.Equal(t, 42, res.DF)
	assert.Less(t, res.PValue, 1e-6)
}

func TestPortmanteau_NonPositiveDF(t *testing.T) {
	rf := &ReducedFormVAR{
		Model:     ModelSpec{Lags: 4},
		A:         make([]*mat.Dense, 4),
		Residuals: mat.NewDense(50, 2, nil),
	}
	_, err := Portmanteau(rf, 2, 1)
	assert.Error(t, err)
}
