// Package regress fits single-equation linear models by ordinary least squares.
package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"macrovecm/internal/apperr"
	"macrovecm/internal/panel"
)

// Intercept is the coefficient name of the constant term.
const Intercept = "(Intercept)"

// Model names a dependent column and its regressors; an intercept is always added.
type Model struct {
	Dependent  string
	Regressors []string
}

// Result holds an OLS fit
type Result struct {
	Dependent string
	Names     []string

	Coef   []float64
	StdErr []float64
	TStat  []float64
	// two-sided, Student t with DF degrees of freedom
	PValue []float64

	Residuals []float64

	N  int // observations
	DF int // residual degrees of freedom

	RSquared    float64
	AdjRSquared float64
	SigmaHat    float64 // residual standard error
	FStat       float64
	FPValue     float64
}

// Coefficient returns the estimate for name.
func (r *Result) Coefficient(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Coef[i], true
		}
	}
	return 0, false
}

// Fit regresses m.Dependent on an intercept and m.Regressors over the panel rows.
func Fit(p *panel.Panel, m Model) (*Result, error) {
	k := len(m.Regressors) + 1
	if p.Len() < k+1 {
		return nil, fmt.Errorf("regress %s: %d rows for %d coefficients: %w",
			m.Dependent, p.Len(), k, apperr.ErrInsufficientData)
	}

	y, err := p.Column(m.Dependent)
	if err != nil {
		return nil, err
	}
	Xr, err := p.Matrix(m.Regressors...)
	if err != nil {
		return nil, err
	}

	n := p.Len()
	X := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1.0)
		for j := 1; j < k; j++ {
			X.Set(i, j, Xr.At(i, j-1))
		}
	}

	names := append([]string{Intercept}, m.Regressors...)
	res, err := OLS(y, X, names, true)
	if err != nil {
		return nil, fmt.Errorf("regress %s: %w", m.Dependent, err)
	}
	res.Dependent = m.Dependent
	return res, nil
}

// OLS solves y = X b + e by the normal equations. intercept tells whether X
// carries a constant column, which decides the R² and F definitions.
func OLS(y []float64, X mat.Matrix, names []string, intercept bool) (*Result, error) {
	n, k := X.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("ols: %d responses for %d design rows", len(y), n)
	}
	if len(names) != k {
		return nil, fmt.Errorf("ols: %d names for %d columns", len(names), k)
	}
	if n < k+1 {
		return nil, fmt.Errorf("ols: %d observations for %d coefficients: %w", n, k, apperr.ErrInsufficientData)
	}

	// B = (X'X)^(-1) X'y
	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("ols: X'X not invertible (%v): %w", err, apperr.ErrSingular)
	}

	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	var xty, b mat.VecDense
	xty.MulVec(X.T(), yv)
	b.MulVec(&xtxInv, &xty)

	var fitted, resid mat.VecDense
	fitted.MulVec(X, &b)
	resid.SubVec(yv, &fitted)

	df := n - k
	rss := mat.Dot(&resid, &resid)
	sigma2 := rss / float64(df)

	res := &Result{
		Names:     append([]string(nil), names...),
		Coef:      make([]float64, k),
		StdErr:    make([]float64, k),
		TStat:     make([]float64, k),
		PValue:    make([]float64, k),
		Residuals: make([]float64, n),
		N:         n,
		DF:        df,
		SigmaHat:  math.Sqrt(sigma2),
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	for j := 0; j < k; j++ {
		res.Coef[j] = b.AtVec(j)
		res.StdErr[j] = math.Sqrt(sigma2 * xtxInv.At(j, j))
		res.TStat[j] = res.Coef[j] / res.StdErr[j]
		res.PValue[j] = 2 * tdist.Survival(math.Abs(res.TStat[j]))
	}
	for i := 0; i < n; i++ {
		res.Residuals[i] = resid.AtVec(i)
	}

	// total sum of squares, centred when there is a constant
	mean := 0.0
	dfInt := 0
	if intercept {
		for _, v := range y {
			mean += v
		}
		mean /= float64(n)
		dfInt = 1
	}
	tss := 0.0
	for _, v := range y {
		tss += (v - mean) * (v - mean)
	}

	res.RSquared = 1 - rss/tss
	res.AdjRSquared = 1 - (1-res.RSquared)*float64(n-dfInt)/float64(df)

	numDF := k - dfInt
	res.FStat = math.NaN()
	res.FPValue = math.NaN()
	if numDF > 0 {
		res.FStat = ((tss - rss) / float64(numDF)) / sigma2
		res.FPValue = distuv.F{D1: float64(numDF), D2: float64(df)}.Survival(res.FStat)
	}

	return res, nil
}
