package tsa

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"macrovecm/internal/apperr"
)

// PortmanteauResult is the asymptotic multivariate portmanteau test for
// residual autocorrelation up to Lags.
type PortmanteauResult struct {
	Statistic float64
	DF        int
	PValue    float64
	Lags      int
}

// Portmanteau tests the residuals of a VECM-implied level VAR with
// cointegration rank. df = K²h - K²(p-1) - K r.
func Portmanteau(rf *ReducedFormVAR, lags, rank int) (*PortmanteauResult, error) {
	if rf == nil || rf.Residuals == nil {
		return nil, fmt.Errorf("portmanteau: model has no residuals")
	}
	U := rf.Residuals
	T, K := U.Dims()
	if lags < 1 || lags >= T {
		return nil, fmt.Errorf("portmanteau: %d lags for %d residuals: %w", lags, T, apperr.ErrInsufficientData)
	}
	p := rf.Model.Lags
	df := K*K*lags - K*K*(p-1) - K*rank
	if df <= 0 {
		return nil, fmt.Errorf("portmanteau: non-positive degrees of freedom %d (lags %d, p %d, rank %d)", df, lags, p, rank)
	}

	n := float64(T)
	C0 := crossCov(U, n)
	var C0inv mat.Dense
	if err := C0inv.Inverse(C0); err != nil {
		return nil, fmt.Errorf("portmanteau: residual covariance (%v): %w", err, apperr.ErrSingular)
	}

	sum := 0.0
	for j := 1; j <= lags; j++ {
		// C_j = sum_t u_t u_{t-j}' / T
		var Cj mat.Dense
		Cj.Mul(U.Slice(j, T, 0, K).T(), U.Slice(0, T-j, 0, K))
		Cj.Scale(1/n, &Cj)

		sum += mat.Trace(mul(Cj.T(), &C0inv, &Cj, &C0inv))
	}

	stat := n * sum
	return &PortmanteauResult{
		Statistic: stat,
		DF:        df,
		PValue:    distuv.ChiSquared{K: float64(df)}.Survival(stat),
		Lags:      lags,
	}, nil
}
