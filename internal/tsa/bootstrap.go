package tsa

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Options for bootstrap IRFs
type BootstrapOptions struct {
	// Number of bootstrap replications
	Runs int

	// Last IRF period; responses cover h = 0..Horizon
	Horizon int

	// Coverage of the percentile band, e.g. 0.95
	Confidence float64

	// RNG seed
	Seed int64

	// OnDraw, if set, is called after each completed replication.
	OnDraw func(done, total int)
}

// IRFBootstrapResult stores the point IRF and percentile bands for one shock.
type IRFBootstrapResult struct {
	Impulse    string
	ShockIndex int
	VarNames   []string
	Horizon    int
	Confidence float64
	Runs       int

	// Point, Lower and Upper are (Horizon+1) x K; column j is the response of VarNames[j]
	Point *mat.Dense
	Lower *mat.Dense
	Upper *mat.Dense
}

// Response returns the point path and bands of the named response variable.
func (r *IRFBootstrapResult) Response(name string) (point, lower, upper []float64, err error) {
	for j, n := range r.VarNames {
		if n == name {
			return mat.Col(nil, j, r.Point), mat.Col(nil, j, r.Lower), mat.Col(nil, j, r.Upper), nil
		}
	}
	return nil, nil, nil, fmt.Errorf("irf: no response variable %s", name)
}

// BootstrapIRF computes the orthogonalized response to a shock in impulse from
// the level VAR implied by v, with bands from a residual bootstrap that
// re-runs the Johansen procedure and the rank-r VECM on every synthetic sample.
// Draws run sequentially from a single seeded source; any failed draw aborts.
func BootstrapIRF(v *VECM, impulse string, opts BootstrapOptions) (*IRFBootstrapResult, error) {
	if opts.Runs <= 0 {
		return nil, fmt.Errorf("bootstrap: runs must be > 0")
	}
	if opts.Horizon < 0 {
		return nil, fmt.Errorf("bootstrap: horizon must be >= 0")
	}
	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		return nil, fmt.Errorf("bootstrap: confidence must be in (0,1), got %g", opts.Confidence)
	}

	shock, err := v.levels.Index(impulse)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: impulse: %w", err)
	}

	rf, err := v.ToVAR()
	if err != nil {
		return nil, err
	}
	H := opts.Horizon + 1
	point, err := rf.IRF(H, shock)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: point IRF: %w", err)
	}
	_, K := point.Dims()

	// draws[h][j] collects the replications of IRF(h, j)
	draws := make([][][]float64, H)
	for h := range draws {
		draws[h] = make([][]float64, K)
		for j := range draws[h] {
			draws[h][j] = make([]float64, 0, opts.Runs)
		}
	}

	resU := centered(rf.Residuals)
	masterRng := rand.New(rand.NewSource(opts.Seed))
	for b := 0; b < opts.Runs; b++ {
		rng := rand.New(rand.NewSource(masterRng.Int63()))

		ystar, err := rf.simulateBootstrapSeries(v.levels.Y, resU, rng)
		if err != nil {
			return nil, fmt.Errorf("bootstrap draw %d: simulate: %w", b+1, err)
		}
		irf, err := reestimateIRF(ystar, v, H, shock)
		if err != nil {
			return nil, fmt.Errorf("bootstrap draw %d: %w", b+1, err)
		}
		for h := 0; h < H; h++ {
			for j := 0; j < K; j++ {
				draws[h][j] = append(draws[h][j], irf.At(h, j))
			}
		}
		if opts.OnDraw != nil {
			opts.OnDraw(b+1, opts.Runs)
		}
	}

	lowerQ := (1 - opts.Confidence) / 2
	upperQ := 1 - lowerQ
	res := &IRFBootstrapResult{
		Impulse:    impulse,
		ShockIndex: shock,
		VarNames:   append([]string(nil), v.VarNames...),
		Horizon:    opts.Horizon,
		Confidence: opts.Confidence,
		Runs:       opts.Runs,
		Point:      point,
		Lower:      mat.NewDense(H, K, nil),
		Upper:      mat.NewDense(H, K, nil),
	}
	for h := 0; h < H; h++ {
		for j := 0; j < K; j++ {
			res.Lower.Set(h, j, bootstrapQuantile(draws[h][j], lowerQ))
			res.Upper.Set(h, j, bootstrapQuantile(draws[h][j], upperQ))
		}
	}
	return res, nil
}

func reestimateIRF(ystar *mat.Dense, v *VECM, H, shock int) (*mat.Dense, error) {
	jo, err := Johansen(&TimeSeries{Y: ystar, VarNames: v.VarNames}, v.K)
	if err != nil {
		return nil, err
	}
	vb, err := jo.VECM(v.Rank)
	if err != nil {
		return nil, err
	}
	rfb, err := vb.ToVAR()
	if err != nil {
		return nil, err
	}
	return rfb.IRF(H, shock)
}

// simulateBootstrapSeries generates a bootstrap sample Y* of the same length as Y,
// using the fitted VAR coefficients and residuals resU (T-p x K), where each row
// is a residual vector. Rows of resU are resampled with replacement and the
// first p observations are copied from Y.
func (rf *ReducedFormVAR) simulateBootstrapSeries(Y, resU *mat.Dense, rng *rand.Rand) (*mat.Dense, error) {
	T, K := Y.Dims()
	p := rf.Model.Lags
	if T <= p {
		return nil, fmt.Errorf("need at least p+1 observations: p = %d, T = %d", p, T)
	}
	Treg, kRes := resU.Dims()
	if Treg != T-p || kRes != K {
		return nil, fmt.Errorf("residual matrix has wrong shape: got %dx%d, expected %dx%d", Treg, kRes, T-p, K)
	}

	det := rf.Model.Deterministic
	Ystar := mat.NewDense(T, K, nil)
	Ystar.Slice(0, p, 0, K).(*mat.Dense).Copy(Y.Slice(0, p, 0, K))

	for t := p; t < T; t++ {
		idx := rng.Intn(Treg)
		for eq := 0; eq < K; eq++ {
			val := resU.At(idx, eq)

			if rf.C != nil {
				detIdx := 0
				if det.hasConst() {
					val += rf.C.At(eq, detIdx)
					detIdx++
				}
				if det.hasTrend() {
					val += rf.C.At(eq, detIdx) * float64(t+1)
				}
			}

			// lag terms: sum_{j=1}^p A_j(eq,:) y*_{t-j}
			for j := 1; j <= p; j++ {
				Aj := rf.A[j-1]
				for k := 0; k < K; k++ {
					val += Aj.At(eq, k) * Ystar.At(t-j, k)
				}
			}
			Ystar.Set(t, eq, val)
		}
	}
	return Ystar, nil
}

// centered subtracts the column means.
func centered(U *mat.Dense) *mat.Dense {
	T, K := U.Dims()
	out := mat.NewDense(T, K, nil)
	for k := 0; k < K; k++ {
		col := mat.Col(nil, k, U)
		m := stat.Mean(col, nil)
		for t := range col {
			col[t] -= m
		}
		out.SetCol(k, col)
	}
	return out
}

// bootstrapQuantile returns the empirical q-quantile of samples (0 <= q <= 1)
// using linear interpolation between order statistics.
func bootstrapQuantile(samples []float64, q float64) float64 {
	n := len(samples)
	if n == 0 {
		return math.NaN()
	}

	tmp := make([]float64, n)
	copy(tmp, samples)
	sort.Float64s(tmp)

	if q <= 0 {
		return tmp[0]
	}
	if q >= 1 {
		return tmp[n-1]
	}

	pos := q * float64(n-1)
	idxBelow := int(math.Floor(pos))
	idxAbove := int(math.Ceil(pos))
	if idxAbove == idxBelow {
		return tmp[idxBelow]
	}

	weight := pos - float64(idxBelow)
	return tmp[idxBelow]*(1.0-weight) + tmp[idxAbove]*weight
}
