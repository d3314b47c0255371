package tsa

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// VECM is the restricted error-correction model
//
//	Δx_t = α β' [x_{t-K}; 1] + Γ_1 Δx_{t-1} + ... + Γ_{K-1} Δx_{t-K+1} + u_t
//
// with β normalized to an identity top block.
type VECM struct {
	VarNames []string
	Rank     int
	K        int

	Alpha *mat.Dense   // P x r loadings
	Beta  *mat.Dense   // (P+1) x r cointegrating vectors, last row is the constant
	Gamma []*mat.Dense // K-1 short-run matrices, P x P

	Residuals *mat.Dense // N x P

	levels *TimeSeries
}

// VECM re-estimates the model under cointegration rank r by OLS of Δx_t on
// the error-correction terms and the lagged differences.
func (j *JohansenResult) VECM(r int) (*VECM, error) {
	P := j.P
	if r < 1 || r >= P {
		return nil, fmt.Errorf("vecm: rank must be in [1, %d], got %d", P-1, r)
	}

	// beta = V[:, :r] * inv(V[:r, :r])
	Vr := j.V.Slice(0, P+1, 0, r)
	var top mat.Dense
	if err := top.Inverse(j.V.Slice(0, r, 0, r)); err != nil {
		return nil, fmt.Errorf("vecm: cannot normalize cointegrating vectors: %w", err)
	}
	var beta mat.Dense
	beta.Mul(Vr, &top)

	var ect mat.Dense
	ect.Mul(j.zk, &beta)

	_, z1Cols := j.z1.Dims()
	X := mat.NewDense(j.N, r+z1Cols, nil)
	X.Slice(0, j.N, 0, r).(*mat.Dense).Copy(&ect)
	X.Slice(0, j.N, r, r+z1Cols).(*mat.Dense).Copy(j.z1)

	B, err := solveNormal(X, j.z0)
	if err != nil {
		return nil, fmt.Errorf("vecm: %w", err)
	}

	gamma := make([]*mat.Dense, j.K-1)
	for i := range gamma {
		off := r + i*P
		gamma[i] = mat.DenseCopyOf(B.Slice(off, off+P, 0, P).T())
	}

	var fitted, resid mat.Dense
	fitted.Mul(X, B)
	resid.Sub(j.z0, &fitted)

	return &VECM{
		VarNames:  j.VarNames,
		Rank:      r,
		K:         j.K,
		Alpha:     mat.DenseCopyOf(B.Slice(0, r, 0, P).T()),
		Beta:      &beta,
		Gamma:     gamma,
		Residuals: &resid,
		levels:    j.levels,
	}, nil
}

// Pi returns α β' (P x P+1); the last column is the restricted constant.
func (v *VECM) Pi() *mat.Dense {
	var pi mat.Dense
	pi.Mul(v.Alpha, v.Beta.T())
	return &pi
}

// ToVAR rewrites the VECM as a level VAR(K) with a constant:
// A_1 = I + Γ_1, A_i = Γ_i - Γ_{i-1}, A_K = Π - Γ_{K-1}.
// Residuals are recomputed from the level form and SigmaU = U'U/T.
func (v *VECM) ToVAR() (*ReducedFormVAR, error) {
	pi := v.Pi()
	P, _ := v.Alpha.Dims()
	K := v.K
	if K < 2 || len(v.Gamma) != K-1 {
		return nil, fmt.Errorf("vec2var: inconsistent lag order %d with %d short-run matrices", K, len(v.Gamma))
	}

	A := make([]*mat.Dense, K)
	I := mat.NewDense(P, P, nil)
	for i := 0; i < P; i++ {
		I.Set(i, i, 1)
	}

	var a1 mat.Dense
	a1.Add(I, v.Gamma[0])
	A[0] = &a1
	for i := 1; i < K-1; i++ {
		var ai mat.Dense
		ai.Sub(v.Gamma[i], v.Gamma[i-1])
		A[i] = &ai
	}
	var aK mat.Dense
	aK.Sub(pi.Slice(0, P, 0, P), v.Gamma[K-2])
	A[K-1] = &aK

	C := mat.DenseCopyOf(pi.Slice(0, P, P, P+1))

	rf := &ReducedFormVAR{
		Model:    ModelSpec{Lags: K, Deterministic: DetConst},
		A:        A,
		C:        C,
		VarNames: v.VarNames,
	}
	U, err := levelResiduals(rf, v.levels.Y)
	if err != nil {
		return nil, err
	}
	rows, _ := U.Dims()
	rf.Residuals = U
	rf.SigmaU = crossCov(U, float64(rows))
	return rf, nil
}

// levelResiduals returns y_t - C - sum_j A_j y_{t-j} for t = p..T-1.
func levelResiduals(rf *ReducedFormVAR, Y *mat.Dense) (*mat.Dense, error) {
	T, K := Y.Dims()
	p := rf.Model.Lags
	if T <= p {
		return nil, fmt.Errorf("residuals: need more than %d rows, got %d", p, T)
	}
	if K != rf.K() {
		return nil, fmt.Errorf("residuals: data has %d variables, model has %d", K, rf.K())
	}

	B := coefficientStack(rf)
	X := lagDesign(Y, p, rf.Model.Deterministic)

	var fitted, U mat.Dense
	fitted.Mul(X, B)
	U.Sub(Y.Slice(p, T, 0, K), &fitted)
	return &U, nil
}

// coefficientStack lays out [C'; A_1'; ...; A_p'] to match lagDesign columns.
func coefficientStack(rf *ReducedFormVAR) *mat.Dense {
	K := rf.K()
	p := len(rf.A)
	detCols := rf.Model.Deterministic.columns()
	B := mat.NewDense(detCols+p*K, K, nil)
	if detCols > 0 {
		B.Slice(0, detCols, 0, K).(*mat.Dense).Copy(rf.C.T())
	}
	for j, Aj := range rf.A {
		off := detCols + j*K
		B.Slice(off, off+K, 0, K).(*mat.Dense).Copy(Aj.T())
	}
	return B
}
