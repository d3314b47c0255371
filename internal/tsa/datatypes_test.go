package tsa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"macrovecm/internal/apperr"
)

func monthsFrom(year int, month time.Month, n int) []time.Time {
	d := make([]time.Time, n)
	for i := range d {
		d[i] = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
	}
	return d
}

func TestTimeSeries_Accessors(t *testing.T) {
	ts := &TimeSeries{
		Y:        mat.NewDense(3, 2, []float64{1, 10, 2, 20, 4, 40}),
		Dates:    monthsFrom(2020, time.November, 3),
		VarNames: []string{"a", "b"},
	}
	assert.Equal(t, 3, ts.Len())
	assert.Equal(t, []float64{10, 20, 40}, ts.Column(1))

	j, err := ts.Index("b")
	require.NoError(t, err)
	assert.Equal(t, 1, j)
	_, err = ts.Index("c")
	assert.Error(t, err)

	d, err := ts.Diff()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, d.Column(0))
	assert.Equal(t, ts.Dates[1:], d.Dates)
}

func TestTimeSeries_DiffRejectsMissingMonth(t *testing.T) {
	dates := monthsFrom(2020, time.January, 4)
	dates[3] = dates[3].AddDate(0, 1, 0) // 2020-03 then 2020-05
	ts := &TimeSeries{
		Y:        mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
		Dates:    dates,
		VarNames: []string{"a"},
	}

	_, err := ts.Diff()
	assert.ErrorIs(t, err, apperr.ErrGap)
	assert.Contains(t, err.Error(), "2020-05 follows 2020-03")

	// undated rows are differenced by position
	ts.Dates = nil
	d, err := ts.Diff()
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
}

func TestTimeSeries_DiffTooShort(t *testing.T) {
	ts := &TimeSeries{Y: mat.NewDense(1, 1, []float64{1}), VarNames: []string{"a"}}
	_, err := ts.Diff()
	assert.ErrorIs(t, err, apperr.ErrInsufficientData)
}

func TestJohansen_RejectsMissingMonth(t *testing.T) {
	ts := simulateVAR(3, 120, []float64{0, 0}, [][]float64{{0.5, 0, 0, 0.5}}, 1)
	ts.Dates = monthsFrom(2000, time.January, 120)
	ts.Dates[60] = ts.Dates[60].AddDate(0, 1, 0)

	_, err := Johansen(ts, 2)
	assert.ErrorIs(t, err, apperr.ErrGap)
}
