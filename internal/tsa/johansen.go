package tsa

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
)

// Trace test critical values with the constant restricted to the
// cointegration space (Osterwald-Lenum 1992), indexed by P-r = 1..11.
// Columns are the 10%, 5% and 1% levels.
var traceCritical = [][3]float64{
	{7.52, 9.24, 12.97},
	{17.85, 19.96, 24.60},
	{32.00, 34.91, 41.07},
	{49.65, 53.12, 60.16},
	{71.86, 76.07, 84.45},
	{97.18, 102.14, 111.01},
	{126.58, 131.70, 143.09},
	{159.48, 165.58, 177.20},
	{196.37, 202.92, 215.74},
	{236.54, 244.15, 257.68},
	{282.45, 291.40, 307.64},
}

// JohansenResult is a trace test on levels with K lags in the long-run VECM
// form and a restricted constant.
type JohansenResult struct {
	VarNames []string
	K        int // lag order of the level VAR
	N        int // effective observations
	P        int // variables

	// Eigenvalues in decreasing order; P+1 values, the last belongs to the constant
	Eigenvalues []float64
	// Trace[r] tests H0: rank <= r
	Trace []float64
	// CriticalValues[r] holds the 10%, 5%, 1% values for Trace[r]
	CriticalValues [][3]float64
	// SuggestedRank is the first r not rejected at 5%
	SuggestedRank int

	// V holds the eigenvectors as columns, each normalized by its first element.
	// Rows are the P variables then the constant.
	V *mat.Dense
	// W are the loadings S0K V (V' SKK V)^-1 (P x P+1)
	W *mat.Dense

	z0, z1, zk *mat.Dense
	levels     *TimeSeries
}

// Johansen runs the trace test on the level series with lag order K >= 2.
func Johansen(ts *TimeSeries, K int) (*JohansenResult, error) {
	if K < 2 {
		return nil, fmt.Errorf("johansen: lag order K must be >= 2, got %d", K)
	}
	if err := ts.contiguous(); err != nil {
		return nil, fmt.Errorf("johansen: %w", err)
	}
	N := ts.Len()
	_, P := ts.Y.Dims()
	if P < 2 {
		return nil, fmt.Errorf("johansen: need at least 2 variables, got %d", P)
	}
	if P > len(traceCritical) {
		return nil, fmt.Errorf("johansen: critical values tabulated up to %d variables, got %d", len(traceCritical), P)
	}
	n := N - K
	if n <= P*(K-1)+P+1 {
		return nil, fmt.Errorf("johansen: %d observations for K=%d with %d variables: %w", N, K, P, apperr.ErrInsufficientData)
	}

	x := ts.Y
	Z0 := mat.NewDense(n, P, nil)
	Z1 := mat.NewDense(n, P*(K-1), nil)
	ZK := mat.NewDense(n, P+1, nil)
	for j := 0; j < n; j++ {
		t := j + K
		for v := 0; v < P; v++ {
			Z0.Set(j, v, x.At(t, v)-x.At(t-1, v))
			for i := 1; i < K; i++ {
				Z1.Set(j, (i-1)*P+v, x.At(t-i, v)-x.At(t-i-1, v))
			}
			ZK.Set(j, v, x.At(t-K, v))
		}
		ZK.Set(j, P, 1)
	}

	nf := float64(n)
	moment := func(a, b mat.Matrix) *mat.Dense {
		var m mat.Dense
		m.Mul(a.T(), b)
		m.Scale(1/nf, &m)
		return &m
	}
	M00, M11, MKK := moment(Z0, Z0), moment(Z1, Z1), moment(ZK, ZK)
	M01, M0K, M1K := moment(Z0, Z1), moment(Z0, ZK), moment(Z1, ZK)

	var M11inv mat.Dense
	if err := M11inv.Inverse(M11); err != nil {
		return nil, fmt.Errorf("johansen: lagged differences moment matrix (%v): %w", err, apperr.ErrSingular)
	}

	// S_ab = M_ab - M_a1 M11^-1 M_1b
	partial := func(Ma1, Mab, M1b mat.Matrix) *mat.Dense {
		var s mat.Dense
		s.Sub(Mab, mul(Ma1, &M11inv, M1b))
		return &s
	}
	S00 := partial(M01, M00, M01.T())
	S0K := partial(M01, M0K, M1K)
	SK0 := mat.DenseCopyOf(S0K.T())
	SKK := partial(M1K.T(), MKK, M1K)

	var chol mat.Cholesky
	if ok := chol.Factorize(symmetrize(SKK)); !ok {
		return nil, fmt.Errorf("johansen: SKK: %w", apperr.ErrNotPositiveDefinite)
	}
	var L mat.TriDense
	chol.LTo(&L)
	var Linv mat.Dense
	if err := Linv.Inverse(&L); err != nil {
		return nil, fmt.Errorf("johansen: Cholesky factor (%v): %w", err, apperr.ErrSingular)
	}
	var S00inv mat.Dense
	if err := S00inv.Inverse(S00); err != nil {
		return nil, fmt.Errorf("johansen: S00 (%v): %w", err, apperr.ErrSingular)
	}

	// L^-1 SK0 S00^-1 S0K L^-T
	A := mul(&Linv, SK0, &S00inv, S0K, Linv.T())

	var es mat.EigenSym
	if ok := es.Factorize(symmetrize(A), true); !ok {
		return nil, fmt.Errorf("johansen: eigen decomposition failed: %w", apperr.ErrSingular)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// decreasing eigenvalue order
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return vals[order[a]] > vals[order[b]] })

	m := P + 1
	lambda := make([]float64, m)
	E := mat.NewDense(m, m, nil)
	for c, idx := range order {
		lambda[c] = vals[idx]
		for r := 0; r < m; r++ {
			E.Set(r, c, vecs.At(r, idx))
		}
	}

	var V mat.Dense
	V.Mul(Linv.T(), E)
	for c := 0; c < m; c++ {
		first := V.At(0, c)
		if first == 0 {
			return nil, fmt.Errorf("johansen: eigenvector %d cannot be normalized: %w", c+1, apperr.ErrSingular)
		}
		for r := 0; r < m; r++ {
			V.Set(r, c, V.At(r, c)/first)
		}
	}

	// W = S0K V (V' SKK V)^-1
	var vsvInv mat.Dense
	if err := vsvInv.Inverse(mul(V.T(), SKK, &V)); err != nil {
		return nil, fmt.Errorf("johansen: V'SKK V (%v): %w", err, apperr.ErrSingular)
	}
	W := mul(S0K, &V, &vsvInv)

	levels := &TimeSeries{
		Y:        mat.DenseCopyOf(ts.Y),
		Dates:    ts.Dates,
		VarNames: append([]string(nil), ts.VarNames...),
	}
	res := &JohansenResult{
		VarNames:       append([]string(nil), ts.VarNames...),
		K:              K,
		N:              n,
		P:              P,
		Eigenvalues:    lambda,
		Trace:          make([]float64, P),
		CriticalValues: make([][3]float64, P),
		SuggestedRank:  P,
		V:              &V,
		W:              W,
		z0:             Z0,
		z1:             Z1,
		zk:             ZK,
		levels:         levels,
	}
	for r := 0; r < P; r++ {
		s := 0.0
		for i := r; i < P; i++ {
			if lambda[i] >= 1 {
				return nil, fmt.Errorf("johansen: eigenvalue %g outside [0,1): %w", lambda[i], apperr.ErrSingular)
			}
			s += math.Log(1 - lambda[i])
		}
		res.Trace[r] = -nf * s
		res.CriticalValues[r] = traceCritical[P-r-1]
	}
	for r := 0; r < P; r++ {
		if res.Trace[r] <= res.CriticalValues[r][1] {
			res.SuggestedRank = r
			break
		}
	}

	return res, nil
}

// mul returns the product of the factors, left to right.
func mul(factors ...mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(factors[0])
	for _, f := range factors[1:] {
		var next mat.Dense
		next.Mul(out, f)
		out = &next
	}
	return out
}

// symmetrize returns (A + A')/2 as a SymDense.
func symmetrize(A mat.Matrix) *mat.SymDense {
	n, _ := A.Dims()
	S := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			S.SetSym(i, j, (A.At(i, j)+A.At(j, i))/2)
		}
	}
	return S
}
