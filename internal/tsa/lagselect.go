package tsa

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
)

// Criterion is an information criterion for VAR lag selection.
type Criterion int

const (
	AIC Criterion = iota
	HQ
	SC
	FPE
)

func (c Criterion) String() string {
	switch c {
	case AIC:
		return "AIC"
	case HQ:
		return "HQ"
	case SC:
		return "SC"
	case FPE:
		return "FPE"
	}
	return fmt.Sprintf("criterion(%d)", int(c))
}

// ParseCriterion parses aic, hq, sc or fpe.
func ParseCriterion(s string) (Criterion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aic":
		return AIC, nil
	case "hq":
		return HQ, nil
	case "sc", "bic":
		return SC, nil
	case "fpe":
		return FPE, nil
	}
	return 0, fmt.Errorf("unknown lag criterion %q", s)
}

// LagSelection holds the criteria for p = 1..MaxLag on a common sample.
type LagSelection struct {
	MaxLag int
	Sample int
	// Values[c][p-1] is criterion c at lag p
	Values   map[Criterion][]float64
	Selected map[Criterion]int
	// Policy is the criterion whose choice is used downstream
	Policy Criterion
}

// Order returns the lag chosen by the policy criterion.
func (s *LagSelection) Order() int { return s.Selected[s.Policy] }

// SelectLagOrder fits VAR(p) with a constant through est for p = 1..maxLag,
// each on the same sample (the first maxLag rows are held back as presample),
// and scores them from the ML residual covariance.
func SelectLagOrder(est Estimator, ts *TimeSeries, maxLag int, policy Criterion) (*LagSelection, error) {
	if maxLag < 1 {
		return nil, fmt.Errorf("lag selection: max lag must be >= 1, got %d", maxLag)
	}
	T := ts.Len()
	_, K := ts.Y.Dims()
	sample := T - maxLag
	const detint = 1
	if sample-(maxLag*K+detint) < 1 {
		return nil, fmt.Errorf("lag selection: %d observations for max lag %d with %d variables: %w",
			T, maxLag, K, apperr.ErrInsufficientData)
	}

	sel := &LagSelection{
		MaxLag:   maxLag,
		Sample:   sample,
		Values:   make(map[Criterion][]float64, 4),
		Selected: make(map[Criterion]int, 4),
		Policy:   policy,
	}
	for _, c := range []Criterion{AIC, HQ, SC, FPE} {
		sel.Values[c] = make([]float64, maxLag)
	}

	n := float64(sample)
	for p := 1; p <= maxLag; p++ {
		// drop maxLag-p leading rows so every fit sees the same responses
		sub := &TimeSeries{
			Y:        mat.DenseCopyOf(ts.Y.Slice(maxLag-p, T, 0, K)),
			VarNames: ts.VarNames,
		}
		rf, err := est.Estimate(sub, ModelSpec{Lags: p, Deterministic: DetConst})
		if err != nil {
			return nil, fmt.Errorf("lag selection p=%d: %w", p, err)
		}

		det := mat.Det(crossCov(rf.Residuals, n))
		if det <= 0 {
			return nil, fmt.Errorf("lag selection p=%d: residual covariance determinant %g: %w",
				p, det, apperr.ErrNotPositiveDefinite)
		}
		logDet := math.Log(det)
		penalty := float64(p*K*K + K*detint)
		nstar := float64(p*K + detint)

		sel.Values[AIC][p-1] = logDet + 2/n*penalty
		sel.Values[HQ][p-1] = logDet + 2*math.Log(math.Log(n))/n*penalty
		sel.Values[SC][p-1] = logDet + math.Log(n)/n*penalty
		sel.Values[FPE][p-1] = math.Pow((n+nstar)/(n-nstar), float64(K)) * det
	}

	for c, vals := range sel.Values {
		best := 0
		for i, v := range vals {
			if v < vals[best] {
				best = i
			}
		}
		sel.Selected[c] = best + 1
	}
	if _, ok := sel.Selected[policy]; !ok {
		return nil, fmt.Errorf("lag selection: unknown criterion %s", policy)
	}
	return sel, nil
}
