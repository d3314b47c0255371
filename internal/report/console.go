package report

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/regress"
	"macrovecm/internal/tsa"
)

// PrintRegression writes the coefficient table of r.
func PrintRegression(w io.Writer, r *regress.Result) {
	fmt.Fprintf(w, "\n=== OLS: %s (n = %d) ===\n", r.Dependent, r.N)
	fmt.Fprintf(w, "%-22s %12s %12s %9s %10s\n", "term", "estimate", "std.error", "t", "p")
	for i, n := range r.Names {
		fmt.Fprintf(w, "%-22s %12.5f %12.5f %9.3f %10.4g\n", n, r.Coef[i], r.StdErr[i], r.TStat[i], r.PValue[i])
	}
	fmt.Fprintf(w, "R² %.4f  adj. R² %.4f  sigma %.4f  F %.3f (p %.4g)\n",
		r.RSquared, r.AdjRSquared, r.SigmaHat, r.FStat, r.FPValue)
}

// PrintADF writes one line per unit root test.
func PrintADF(w io.Writer, results []*tsa.ADFResult) {
	fmt.Fprintln(w, "\n=== ADF (constant + trend) ===")
	for _, a := range results {
		note := ""
		if a.Bounded {
			note = " (table bound)"
		}
		fmt.Fprintf(w, "%-22s stat %8.4f  lags %2d  p %.4f%s\n", a.Name, a.Statistic, a.Lags, a.PValue, note)
	}
}

// PrintLagSelection writes every criterion and its chosen order.
func PrintLagSelection(w io.Writer, s *tsa.LagSelection) {
	fmt.Fprintf(w, "\n=== Lag selection (max %d, %d obs) ===\n", s.MaxLag, s.Sample)
	for _, c := range []tsa.Criterion{tsa.AIC, tsa.HQ, tsa.SC, tsa.FPE} {
		fmt.Fprintf(w, "%-4s %d", c, s.Selected[c])
		if c == s.Policy {
			fmt.Fprint(w, "  <- used")
		}
		fmt.Fprintln(w)
	}
}

// PrintJohansen writes the trace test table.
func PrintJohansen(w io.Writer, j *tsa.JohansenResult) {
	fmt.Fprintf(w, "\n=== Johansen trace test (K = %d, n = %d) ===\n", j.K, j.N)
	fmt.Fprintf(w, "%-10s %10s %8s %8s %8s\n", "H0", "trace", "10pct", "5pct", "1pct")
	for r := len(j.Trace) - 1; r >= 0; r-- {
		cv := j.CriticalValues[r]
		fmt.Fprintf(w, "r <= %-5d %10.3f %8.2f %8.2f %8.2f\n", r, j.Trace[r], cv[0], cv[1], cv[2])
	}
	fmt.Fprintf(w, "suggested rank at 5%%: %d\n", j.SuggestedRank)
}

// PrintCoefficients writes the lag matrices and residual covariance of rf.
func PrintCoefficients(w io.Writer, rf tsa.ReducedForm) {
	fmt.Fprintf(w, "\n=== VAR(%d) ===\n", rf.Spec().Lags)
	for i, Ai := range rf.Phi() {
		fmt.Fprintf(w, "\n=== A_%d ===\n", i+1)
		fmt.Fprintf(w, "%v\n", mat.Formatted(Ai, mat.Prefix(" ")))
	}
	if C := rf.Det(); C != nil {
		fmt.Fprintln(w, "\n=== Deterministic ===")
		fmt.Fprintf(w, "%v\n", mat.Formatted(C, mat.Prefix(" ")))
	}

	fmt.Fprintln(w, "\n=== Covariance Matrix Σ_u ===")
	fmt.Fprintf(w, "%v\n", mat.Formatted(rf.CovU(), mat.Prefix(" ")))
}

// PrintPortmanteau writes the residual autocorrelation test.
func PrintPortmanteau(w io.Writer, p *tsa.PortmanteauResult) {
	fmt.Fprintf(w, "\n=== Portmanteau (asymptotic, %d lags) ===\n", p.Lags)
	fmt.Fprintf(w, "chi² %.3f  df %d  p %.4g\n", p.Statistic, p.DF, p.PValue)
}

// PrintIRF writes the point response and band of one variable.
func PrintIRF(w io.Writer, r *tsa.IRFBootstrapResult, response string) error {
	point, lower, upper, err := r.Response(response)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n=== IRF %s -> %s (%.0f%% band, %d runs) ===\n",
		r.Impulse, response, 100*r.Confidence, r.Runs)
	for h := range point {
		fmt.Fprintf(w, "%3d %10.5f [%10.5f, %10.5f]\n", h, point[h], lower[h], upper[h])
	}
	return nil
}

// PrintForecast writes the forecast rows dated monthly after last.
func PrintForecast(w io.Writer, last time.Time, names []string, fc *mat.Dense) {
	fmt.Fprintln(w, "\n=== Forecast ===")
	fmt.Fprintf(w, "%-10s", "date")
	for _, n := range names {
		fmt.Fprintf(w, " %14s", n)
	}
	fmt.Fprintln(w)
	steps, K := fc.Dims()
	for i := 0; i < steps; i++ {
		fmt.Fprintf(w, "%-10s", last.AddDate(0, i+1, 0).Format("2006-01"))
		for j := 0; j < K; j++ {
			fmt.Fprintf(w, " %14.4f", fc.At(i, j))
		}
		fmt.Fprintln(w)
	}
}
