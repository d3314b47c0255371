package tsa

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
)

// --- FUNCTIONS FOR BASE ---
// Returns current Model Spec
func (rf *ReducedFormVAR) Spec() ModelSpec { return rf.Model }

// Returns coefficient matrices
func (rf *ReducedFormVAR) Phi() []*mat.Dense { return rf.A }

// Returns error covariance matrix
func (rf *ReducedFormVAR) CovU() *mat.SymDense { return rf.SigmaU }

// Returns deterministic coefficients
func (rf *ReducedFormVAR) Det() *mat.Dense { return rf.C }

// K returns the number of variables
func (rf *ReducedFormVAR) K() int {
	k, _ := rf.A[0].Dims()
	return k
}

// Forecast produces multi-step ahead forecasts given the historical data of yHist.
// yHist: T x K (rows: time, cols: variables). Only last p rows are used as lags.
// steps: number of steps ahead to forecast
// Returns: steps x K matrix of forecasts
func (rf *ReducedFormVAR) Forecast(yHist *mat.Dense, steps int) (*mat.Dense, error) {
	if rf == nil || len(rf.A) == 0 {
		return nil, fmt.Errorf("VAR model not estimated")
	}
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be > 0")
	}

	p := rf.Model.Lags
	if p <= 0 {
		return nil, fmt.Errorf("lags must be > 0 to forecast")
	}

	// dimensions of yHist, T rows, K cols
	T, K := yHist.Dims()
	if T < p {
		return nil, fmt.Errorf("need at least %d rows in yHist, got %d", p, T)
	}
	if K != rf.K() {
		return nil, fmt.Errorf("yHist has %d variables, model has %d", K, rf.K())
	}

	totalRows := p + steps
	out := mat.NewDense(totalRows, K, nil)
	out.Slice(0, p, 0, K).(*mat.Dense).Copy(yHist.Slice(T-p, T, 0, K))

	det := rf.Model.Deterministic
	trendIdx := 0
	if det.hasConst() {
		trendIdx = 1
	}

	for step := 0; step < steps; step++ {
		row := p + step
		// time index continues from the last row of yHist
		tIdx := float64(T + step + 1)

		for eq := 0; eq < K; eq++ {
			val := 0.0

			if rf.C != nil {
				if det.hasConst() {
					val += rf.C.At(eq, 0)
				}
				if det.hasTrend() {
					val += rf.C.At(eq, trendIdx) * tIdx
				}
			}

			// lagged part: sum_j A_j * y_{t-j}
			for lag := 1; lag <= p; lag++ {
				A := rf.A[lag-1]
				prevRow := row - lag
				for j := 0; j < K; j++ {
					val += A.At(eq, j) * out.At(prevRow, j)
				}
			}
			out.Set(row, eq, val)
		}
	}
	// Returns only the forecasted rows
	return mat.DenseCopyOf(out.Slice(p, totalRows, 0, K)), nil
}

// IRF computes orthogonalized impulse responses to a one-time shock in variable
// shockIndex. The shock is column shockIndex of the lower Cholesky factor of SigmaU.
// horizon: number of periods to compute (h=0, ..., horizon-1)
// Returns: horizon x K matrix, where row h is the response of all K vars at horizon h
func (rf *ReducedFormVAR) IRF(horizon int, shockIndex int) (*mat.Dense, error) {
	if rf == nil || len(rf.A) == 0 {
		return nil, fmt.Errorf("VAR model not estimated")
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be > 0")
	}

	p := rf.Model.Lags
	if p <= 0 {
		return nil, fmt.Errorf("lags must be > 0 to IRF")
	}

	K := rf.K()
	if shockIndex < 0 || shockIndex >= K {
		return nil, fmt.Errorf("shockIndex must be between 0 and %d", K-1)
	}
	if rf.SigmaU == nil {
		return nil, fmt.Errorf("residual covariance not estimated")
	}

	// SigmaU = L * L^T
	var chol mat.Cholesky
	if ok := chol.Factorize(rf.SigmaU); !ok {
		return nil, fmt.Errorf("irf: residual covariance: %w", apperr.ErrNotPositiveDefinite)
	}
	var L mat.TriDense
	chol.LTo(&L)
	shock := make([]float64, K)
	for i := 0; i < K; i++ {
		shock[i] = L.At(i, shockIndex)
	}

	Psi := maCoefficients(rf.A, horizon)

	// IRF[h] = Psi_h * shock
	irf := mat.NewDense(horizon, K, nil)
	shockVec := mat.NewVecDense(K, shock)
	for h := 0; h < horizon; h++ {
		var resp mat.VecDense
		resp.MulVec(Psi[h], shockVec)
		irf.SetRow(h, resp.RawVector().Data)
	}

	return irf, nil
}

// maCoefficients returns the moving-average matrices Psi_0..Psi_{horizon-1}
// with Psi_0 = I and Psi_h = sum_j A_j Psi_{h-j}.
func maCoefficients(A []*mat.Dense, horizon int) []*mat.Dense {
	K, _ := A[0].Dims()
	p := len(A)

	Psi := make([]*mat.Dense, horizon)
	I := mat.NewDense(K, K, nil)
	for i := 0; i < K; i++ {
		I.Set(i, i, 1.0)
	}
	Psi[0] = I

	for h := 1; h < horizon; h++ {
		M := mat.NewDense(K, K, nil)
		maxLag := p
		if h < p {
			maxLag = h
		}
		for j := 1; j <= maxLag; j++ {
			var tmp mat.Dense
			tmp.Mul(A[j-1], Psi[h-j]) // A_j * Psi_{h-j}
			M.Add(M, &tmp)
		}
		Psi[h] = M
	}
	return Psi
}

// --- OLS IMPLEMENTATION ---

// Estimate fits the VAR equation by equation with the normal equations.
// SigmaU is U'U divided by the residual degrees of freedom.
func (e *OLSEstimator) Estimate(ts *TimeSeries, spec ModelSpec) (*ReducedFormVAR, error) {
	if ts == nil || ts.Y == nil {
		return nil, fmt.Errorf("time series data not provided")
	}

	T, K := ts.Y.Dims()
	p := spec.Lags

	if p <= 0 {
		return nil, fmt.Errorf("lags must be > 0")
	}
	if T <= p {
		return nil, fmt.Errorf("need at least p+1 observations: p = %d, T = %d: %w", p, T, apperr.ErrInsufficientData)
	}

	Treg := T - p // usable rows

	// Response matrix Yreg: rows are y_p, y_{p+1}, ..., y_{T-1}
	Yreg := mat.DenseCopyOf(ts.Y.Slice(p, T, 0, K))

	detCols := spec.Deterministic.columns()
	m := detCols + p*K // total regressors
	X := lagDesign(ts.Y, p, spec.Deterministic)

	if Treg-m <= 0 {
		return nil, fmt.Errorf("%d usable rows for %d regressors per equation: %w", Treg, m, apperr.ErrInsufficientData)
	}

	// B = (X'X)^(-1) X'Y
	B, err := solveNormal(X, Yreg)
	if err != nil {
		return nil, err
	}

	// Split B into C (deterministic) and A_j's
	var C *mat.Dense
	if detCols > 0 {
		C = mat.DenseCopyOf(B.Slice(0, detCols, 0, K).T())
	}

	A := make([]*mat.Dense, p)
	for j := 0; j < p; j++ {
		rowOffset := detCols + j*K // start row of this lag block in B
		A[j] = mat.DenseCopyOf(B.Slice(rowOffset, rowOffset+K, 0, K).T())
	}

	var Yhat mat.Dense
	Yhat.Mul(X, B)

	var U mat.Dense
	U.Sub(Yreg, &Yhat) // Treg x K

	rf := &ReducedFormVAR{
		Model:     spec,
		A:         A,
		C:         C,
		SigmaU:    crossCov(&U, float64(Treg-m)),
		Residuals: &U,
		VarNames:  append([]string(nil), ts.VarNames...),
	}

	return rf, nil
}

// lagDesign builds [deterministic | y_{t-1} | ... | y_{t-p}] for t = p..T-1.
func lagDesign(Y mat.Matrix, p int, det Deterministic) *mat.Dense {
	T, K := Y.Dims()
	Treg := T - p
	detCols := det.columns()
	X := mat.NewDense(Treg, detCols+p*K, nil)

	for t := 0; t < Treg; t++ {
		col := 0
		if det.hasConst() {
			X.Set(t, col, 1.0)
			col++
		}
		if det.hasTrend() {
			X.Set(t, col, float64(t+p+1))
			col++
		}
		// Lagged Y's: [ y_{t+p-1}, y_{t+p-2}, ..., y_{t} ]
		for j := 1; j <= p; j++ {
			srcRow := t + p - j
			for k := 0; k < K; k++ {
				X.Set(t, col, Y.At(srcRow, k))
				col++
			}
		}
	}
	return X
}

// solveNormal returns (X'X)^(-1) X'Y or ErrSingular.
func solveNormal(X, Y mat.Matrix) (*mat.Dense, error) {
	var xtx mat.Dense
	xtx.Mul(X.T(), X)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("X'X not invertible (%v): %w", err, apperr.ErrSingular)
	}

	var xty, B mat.Dense
	xty.Mul(X.T(), Y)
	B.Mul(&xtxInv, &xty)
	return &B, nil
}

// crossCov returns U'U / div as a symmetric matrix.
func crossCov(U mat.Matrix, div float64) *mat.SymDense {
	_, K := U.Dims()
	var utu mat.Dense
	utu.Mul(U.T(), U)

	S := mat.NewSymDense(K, nil)
	for i := 0; i < K; i++ {
		for j := i; j < K; j++ {
			S.SetSym(i, j, (utu.At(i, j)+utu.At(j, i))/(2*div))
		}
	}
	return S
}
