package panel

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrovecm/internal/series"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func monthly(name string, start time.Time, vals ...float64) series.Series {
	s := series.Series{Name: name, Frequency: series.Monthly}
	for i, v := range vals {
		s.Obs = append(s.Obs, series.Observation{Date: start.AddDate(0, i, 0), Value: v})
	}
	return s
}

func TestJoin_UnionOfDates(t *testing.T) {
	a := monthly("a", month(2020, 1), 1, 2)
	b := monthly("b", month(2020, 2), 20, 30)

	p, err := Join(a, b)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"a", "b"}, p.Columns())

	colA, _ := p.Column("a")
	colB, _ := p.Column("b")
	assert.True(t, math.IsNaN(colA[2]))
	assert.True(t, math.IsNaN(colB[0]))
	assert.Equal(t, 30.0, colB[2])
}

func TestJoin_DuplicateColumn(t *testing.T) {
	a := monthly("a", month(2020, 1), 1)
	_, err := Join(a, a)
	assert.Error(t, err)
}

func TestFill_QuarterlyGrowthAcrossMonths(t *testing.T) {
	gdp := series.Series{Name: GDPGrowth, Frequency: series.Quarterly, Obs: []series.Observation{
		{Date: month(2021, 3), Value: 2.0},
		{Date: month(2021, 6), Value: 2.5},
		{Date: month(2021, 9), Value: 3.0},
	}}
	rate := monthly(InterestRate, month(2021, 1), 1, 1, 1, 1, 1, 1, 1, 1, 1)

	p, err := Join(rate, gdp)
	require.NoError(t, err)
	require.Equal(t, 9, p.Len())

	filled, err := p.Fill(UpDown, GDPGrowth)
	require.NoError(t, err)
	got, err := filled.Column(GDPGrowth)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0, 2.0, 2.0, 2.5, 2.5, 2.5, 3.0, 3.0, 3.0}, got)

	// the receiver is untouched
	orig, _ := p.Column(GDPGrowth)
	assert.True(t, math.IsNaN(orig[0]))
}

func TestFill_Directions(t *testing.T) {
	nan := math.NaN()
	base := monthly("x", month(2020, 1), nan, 1, nan, 2, nan)
	p, err := Join(base)
	require.NoError(t, err)

	tests := []struct {
		dir  FillDirection
		want []float64
	}{
		{Down, []float64{nan, 1, 1, 2, 2}},
		{Up, []float64{1, 1, 2, 2, nan}},
		{DownUp, []float64{1, 1, 1, 2, 2}},
		{UpDown, []float64{1, 1, 2, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			f, err := p.Fill(tt.dir, "x")
			require.NoError(t, err)
			got, _ := f.Column("x")
			for i := range tt.want {
				if math.IsNaN(tt.want[i]) {
					assert.True(t, math.IsNaN(got[i]), "row %d", i)
					continue
				}
				assert.Equal(t, tt.want[i], got[i], "row %d", i)
			}
		})
	}
}

func TestParseFillDirection(t *testing.T) {
	d, err := ParseFillDirection("DownUp")
	require.NoError(t, err)
	assert.Equal(t, DownUp, d)

	d, err = ParseFillDirection("")
	require.NoError(t, err)
	assert.Equal(t, UpDown, d)

	_, err = ParseFillDirection("sideways")
	assert.Error(t, err)
}

func buildInputs() []series.Series {
	nan := math.NaN()
	infl := monthly(Inflation, month(1999, 11), 1.0, 1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7)
	rate := monthly(InterestRate, month(1999, 11), 3.0, 3.0, 3.25, 3.25, 3.5, 3.5, 3.5, nan)
	unemp := monthly(Unemployment, month(1999, 11), 8, 8, 7.9, 7.8, nan, 7.7, 7.6)
	gdp := series.Series{Name: GDPGrowth, Frequency: series.Quarterly, Obs: []series.Observation{
		{Date: month(1999, 12), Value: 1.5},
		{Date: month(2000, 3), Value: 2.0},
		{Date: month(2000, 6), Value: 2.5},
	}}
	return []series.Series{infl, rate, unemp, gdp}
}

func TestBuild_CompleteRowsWithinBounds(t *testing.T) {
	p, err := Build(buildInputs(), BuildOptions{
		Floor:       month(2000, 1),
		FillColumns: []string{GDPGrowth},
		Direction:   UpDown,
	})
	require.NoError(t, err)

	assert.Equal(t, CanonicalColumns, p.Columns())
	assert.True(t, p.Complete())

	// floor 2000-01, ceiling = min last date (rate ends 2000-05), 2000-03 dropped (unemployment missing)
	assert.Equal(t, []time.Time{month(2000, 1), month(2000, 2), month(2000, 4), month(2000, 5)}, p.Dates())

	gdp, _ := p.Column(GDPGrowth)
	assert.Equal(t, []float64{2.0, 2.0, 2.5, 2.5}, gdp)
}

func TestBuild_DefaultDirectionFillsUpThenDown(t *testing.T) {
	var opts BuildOptions
	assert.Equal(t, UpDown, opts.Direction)

	opts.Floor = month(2000, 1)
	opts.FillColumns = []string{GDPGrowth}
	p, err := Build(buildInputs(), opts)
	require.NoError(t, err)

	// 2000-01 and 2000-02 take the growth stamped at 2000-03
	gdp, _ := p.Column(GDPGrowth)
	assert.Equal(t, []float64{2.0, 2.0, 2.5, 2.5}, gdp)
}

func TestBuild_EmptyIsNotAnError(t *testing.T) {
	p, err := Build(buildInputs(), BuildOptions{
		Floor:       month(2010, 1),
		FillColumns: []string{GDPGrowth},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
}

func TestBuild_SeriesWithoutValues(t *testing.T) {
	in := buildInputs()
	in[0] = monthly(Inflation, month(2000, 1), math.NaN())
	_, err := Build(in, BuildOptions{})
	assert.Error(t, err)
}

func TestStationary_DifferencesRates(t *testing.T) {
	dates := []time.Time{month(2020, 1), month(2020, 2), month(2020, 3)}
	p, err := New(dates, CanonicalColumns, map[string][]float64{
		Inflation:    {1, 2, 3},
		InterestRate: {3.00, 3.00, 3.25},
		Unemployment: {5, 5.5, 5.25},
		GDPGrowth:    {1, 1, 1},
	})
	require.NoError(t, err)

	s, err := Stationary(p)
	require.NoError(t, err)
	assert.Equal(t, []string{Inflation, DInterestRate, DUnemployment, GDPGrowth}, s.Columns())
	require.Equal(t, 2, s.Len())

	d, _ := s.Column(DInterestRate)
	assert.InDelta(t, 0.0, d[0], 1e-12)
	assert.InDelta(t, 0.25, d[1], 1e-12)
	u, _ := s.Column(DUnemployment)
	assert.InDelta(t, 0.5, u[0], 1e-12)
	assert.InDelta(t, -0.25, u[1], 1e-12)
	assert.True(t, s.Complete())
}

func TestStationary_GapIsUndefined(t *testing.T) {
	// 2020-03 missing: the April difference has no comparison month
	dates := []time.Time{month(2020, 1), month(2020, 2), month(2020, 4)}
	p, err := New(dates, CanonicalColumns, map[string][]float64{
		Inflation:    {1, 2, 3},
		InterestRate: {1, 2, 3},
		Unemployment: {1, 2, 3},
		GDPGrowth:    {1, 2, 3},
	})
	require.NoError(t, err)

	s, err := Stationary(p)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{month(2020, 2)}, s.Dates())
}

func TestCSV_RoundTrip(t *testing.T) {
	p, err := Build(buildInputs(), BuildOptions{
		Floor:       month(2000, 1),
		FillColumns: []string{GDPGrowth},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, p))
	assert.Contains(t, buf.String(), "date,Inflation_YY,Interest_Rate,Unemployment_Rate,GDP_Growth_YY\n2000-01-01,")

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, p.Dates(), back.Dates())
	assert.Equal(t, p.Columns(), back.Columns())
	for _, c := range p.Columns() {
		want, _ := p.Column(c)
		got, _ := back.Column(c)
		assert.Equal(t, want, got, c)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(bytes.NewBufferString("when,a\n2020-01-01,1\n"))
	assert.Error(t, err)

	_, err = ReadCSV(bytes.NewBufferString("date,a\n2020-01-01,abc\n"))
	assert.Error(t, err)

	_, err = ReadCSV(bytes.NewBufferString("date,a\n01/02/2020,1\n"))
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	p, err := New([]time.Time{month(2020, 1), month(2020, 2)}, []string{"a", "b"},
		map[string][]float64{"a": {1, 2}, "b": {3, 4}})
	require.NoError(t, err)

	m, err := p.Matrix("b", "a")
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.At(0, 0))
	assert.Equal(t, 2.0, m.At(1, 1))

	_, err = p.Matrix("c")
	assert.Error(t, err)
}
