package report

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"macrovecm/internal/panel"
	"macrovecm/internal/regress"
	"macrovecm/internal/tsa"
)

// Inputs are the artifacts a summary is built from. Nil fields are left out.
type Inputs struct {
	Panel       *panel.Panel
	Regression  *regress.Result
	ADF         []*tsa.ADFResult
	LagOrder    *tsa.LagSelection
	Johansen    *tsa.JohansenResult
	VECM        *tsa.VECM
	Portmanteau *tsa.PortmanteauResult
	IRF         *tsa.IRFBootstrapResult
}

// Summary is the YAML record of one run.
type Summary struct {
	RunID       string           `yaml:"run_id"`
	GeneratedAt time.Time        `yaml:"generated_at"`
	Region      string           `yaml:"region"`
	Sample      Sample           `yaml:"sample"`
	Regression  *RegressionBlock `yaml:"regression,omitempty"`
	ADF         []ADFRow         `yaml:"adf,omitempty"`
	LagOrder    *LagBlock        `yaml:"lag_selection,omitempty"`
	Johansen    *JohansenBlock   `yaml:"johansen,omitempty"`
	VECM        *VECMBlock       `yaml:"vecm,omitempty"`
	Portmanteau *PortmanteauRow  `yaml:"portmanteau,omitempty"`
	IRF         *IRFBlock        `yaml:"irf,omitempty"`
}

type Sample struct {
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`
	Rows int    `yaml:"rows"`
}

type Term struct {
	Name     string  `yaml:"name"`
	Estimate float64 `yaml:"estimate"`
	StdErr   float64 `yaml:"std_error"`
	PValue   float64 `yaml:"p_value"`
}

type RegressionBlock struct {
	Dependent   string  `yaml:"dependent"`
	Terms       []Term  `yaml:"terms"`
	N           int     `yaml:"observations"`
	RSquared    float64 `yaml:"r_squared"`
	AdjRSquared float64 `yaml:"adj_r_squared"`
}

type ADFRow struct {
	Variable  string  `yaml:"variable"`
	Statistic float64 `yaml:"statistic"`
	PValue    float64 `yaml:"p_value"`
	Lags      int     `yaml:"lags"`
	Bounded   bool    `yaml:"bounded,omitempty"`
}

type LagBlock struct {
	MaxLag   int            `yaml:"max_lag"`
	Policy   string         `yaml:"policy"`
	Selected map[string]int `yaml:"selected"`
	Order    int            `yaml:"order"`
}

type JohansenBlock struct {
	K             int       `yaml:"k"`
	N             int       `yaml:"observations"`
	Eigenvalues   []float64 `yaml:"eigenvalues"`
	Trace         []float64 `yaml:"trace"`
	Critical5     []float64 `yaml:"critical_5pct"`
	SuggestedRank int       `yaml:"suggested_rank"`
}

type VECMBlock struct {
	Variables []string    `yaml:"variables"`
	Rank      int         `yaml:"rank"`
	Alpha     [][]float64 `yaml:"alpha"`
	Beta      [][]float64 `yaml:"beta"`
}

type PortmanteauRow struct {
	Lags      int     `yaml:"lags"`
	Statistic float64 `yaml:"statistic"`
	DF        int     `yaml:"df"`
	PValue    float64 `yaml:"p_value"`
}

type IRFBlock struct {
	Impulse    string  `yaml:"impulse"`
	Horizon    int     `yaml:"horizon"`
	Confidence float64 `yaml:"confidence"`
	Runs       int     `yaml:"runs"`
}

// Summarize collects the headline numbers of a run.
func Summarize(runID, region string, in Inputs) *Summary {
	s := &Summary{
		RunID:       runID,
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Region:      region,
	}

	if p := in.Panel; p != nil {
		s.Sample.Rows = p.Len()
		if d := p.Dates(); len(d) > 0 {
			s.Sample.From = d[0].Format(time.DateOnly)
			s.Sample.To = d[len(d)-1].Format(time.DateOnly)
		}
	}

	if r := in.Regression; r != nil {
		b := &RegressionBlock{Dependent: r.Dependent, N: r.N, RSquared: r.RSquared, AdjRSquared: r.AdjRSquared}
		for i, n := range r.Names {
			b.Terms = append(b.Terms, Term{Name: n, Estimate: r.Coef[i], StdErr: r.StdErr[i], PValue: r.PValue[i]})
		}
		s.Regression = b
	}

	for _, a := range in.ADF {
		s.ADF = append(s.ADF, ADFRow{Variable: a.Name, Statistic: a.Statistic, PValue: a.PValue, Lags: a.Lags, Bounded: a.Bounded})
	}

	if l := in.LagOrder; l != nil {
		b := &LagBlock{MaxLag: l.MaxLag, Policy: l.Policy.String(), Order: l.Order(), Selected: map[string]int{}}
		for c, p := range l.Selected {
			b.Selected[c.String()] = p
		}
		s.LagOrder = b
	}

	if j := in.Johansen; j != nil {
		b := &JohansenBlock{
			K:             j.K,
			N:             j.N,
			Eigenvalues:   append([]float64(nil), j.Eigenvalues...),
			Trace:         append([]float64(nil), j.Trace...),
			SuggestedRank: j.SuggestedRank,
		}
		for _, cv := range j.CriticalValues {
			b.Critical5 = append(b.Critical5, cv[1])
		}
		s.Johansen = b
	}

	if v := in.VECM; v != nil {
		s.VECM = &VECMBlock{
			Variables: append([]string(nil), v.VarNames...),
			Rank:      v.Rank,
			Alpha:     rowsOf(v.Alpha),
			Beta:      rowsOf(v.Beta),
		}
	}

	if pt := in.Portmanteau; pt != nil {
		s.Portmanteau = &PortmanteauRow{Lags: pt.Lags, Statistic: pt.Statistic, DF: pt.DF, PValue: pt.PValue}
	}

	if r := in.IRF; r != nil {
		s.IRF = &IRFBlock{Impulse: r.Impulse, Horizon: r.Horizon, Confidence: r.Confidence, Runs: r.Runs}
	}
	return s
}

// WriteSummary marshals s to YAML at path.
func WriteSummary(path string, s *Summary) (err error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	f, err := create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func rowsOf(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
