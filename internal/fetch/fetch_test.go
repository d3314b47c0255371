package fetch

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macrovecm/internal/series"
)

// Two unemployment cells per month (age groups) that must be averaged, one
// missing cell, and a geo dimension collapsed to a single category.
const unemploymentJSONStat = `{
  "version": "2.0",
  "class": "dataset",
  "id": ["freq", "age", "geo", "time"],
  "size": [1, 2, 1, 3],
  "dimension": {
    "freq": {"category": {"index": {"M": 0}}},
    "age": {"category": {"index": {"Y15-24": 0, "Y25-74": 1}}},
    "geo": {"category": {"index": {"DE": 0}}},
    "time": {"category": {"index": {"2023-01": 0, "2023-02": 1, "2023-03": 2}}}
  },
  "value": {"0": 6.0, "1": 6.2, "3": 3.0, "4": 3.2, "5": 3.4}
}`

func TestEurostatFetchPanel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/une_rt_m" {
			t.Errorf("Expected path /une_rt_m, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		assert.Equal(t, "JSON", q.Get("format"))
		assert.Equal(t, "DE", q.Get("geo"))
		assert.Equal(t, "SA", q.Get("s_adj"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(unemploymentJSONStat))
	}))
	defer server.Close()

	client := NewEurostatClient(server.URL, 5*time.Second)
	resp, err := client.FetchPanel(context.Background(), PanelRequest{
		Dataset: "une_rt_m",
		Geo:     "DE",
		Filters: map[string]string{"s_adj": "SA"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 5)
	assert.Equal(t, series.Monthly, resp.Frequency)

	raw, err := Normalize(resp, "Unemployment_Rate")
	require.NoError(t, err)
	require.Len(t, raw.Obs, 3)

	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), raw.Obs[0].Date)
	assert.InDelta(t, 4.5, raw.Obs[0].Value, 1e-12)
	assert.InDelta(t, 4.7, raw.Obs[1].Value, 1e-12)
	// only the Y25-74 cell exists for March
	assert.InDelta(t, 3.4, raw.Obs[2].Value, 1e-12)
}

func TestEurostatFetchPanel_ErrorLabel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":[{"status":404,"label":"Dataset not found"}]}`))
	}))
	defer server.Close()

	client := NewEurostatClient(server.URL, 5*time.Second)
	_, err := client.FetchPanel(context.Background(), PanelRequest{Dataset: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Dataset not found")
}

func TestEurostatFetchPanel_DenseValuesQuarterly(t *testing.T) {
	body := `{
	  "id": ["unit", "time"],
	  "size": [1, 2],
	  "dimension": {
	    "unit": {"category": {"index": {"CLV10_MEUR": 0}}},
	    "time": {"category": {"index": {"2022-Q4": 0, "2023-Q1": 1}}}
	  },
	  "value": [810.5, null]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewEurostatClient(server.URL, 5*time.Second)
	resp, err := client.FetchPanel(context.Background(), PanelRequest{
		Dataset: "namq_10_gdp",
		Filters: map[string]string{"unit": "CLV10_MEUR"},
	})
	require.NoError(t, err)
	assert.Equal(t, series.Quarterly, resp.Frequency)

	raw, err := Normalize(resp, "GDP")
	require.NoError(t, err)
	require.Len(t, raw.Obs, 2)
	assert.Equal(t, time.Date(2022, 10, 1, 0, 0, 0, 0, time.UTC), raw.Obs[0].Date)
	assert.True(t, math.IsNaN(raw.Obs[1].Value))
}

func TestPanelResponse_FilterMismatch(t *testing.T) {
	resp := &PanelResponse{
		Dataset:   "prc_hicp_midx",
		Frequency: series.Monthly,
		Filters:   map[string]string{"coicop": "CP00"},
		Rows: []PanelRow{
			{Time: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Categories: map[string]string{"coicop": "CP01"}, Value: 99},
		},
	}
	_, err := Normalize(resp, "HICP")
	assert.Error(t, err)
}

func TestFREDFetchSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/series/observations" {
			t.Errorf("Expected path /series/observations, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		assert.Equal(t, "ECBDFR", q.Get("series_id"))
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, "2000-01-01", q.Get("observation_start"))
		_, _ = w.Write([]byte(`{"observations":[
		  {"date":"2000-01-03","value":"2.00"},
		  {"date":"2000-01-04","value":"."},
		  {"date":"2000-02-04","value":"2.25"}
		]}`))
	}))
	defer server.Close()

	client := NewFREDClient(server.URL, "secret", 5*time.Second)
	resp, err := client.FetchSeries(context.Background(), SeriesRequest{
		SeriesID: "ECBDFR",
		Source:   "FRED",
		Start:    time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, resp.Obs, 3)
	assert.Equal(t, series.Daily, resp.Frequency)
	assert.True(t, math.IsNaN(resp.Obs[1].Value))

	raw, err := Normalize(resp, "Interest_Rate")
	require.NoError(t, err)
	assert.Equal(t, "Interest_Rate", raw.Name)
	assert.Len(t, raw.Obs, 3)
}

func TestFREDFetchSeries_UnsupportedSource(t *testing.T) {
	client := NewFREDClient("http://127.0.0.1:0", "", time.Second)
	_, err := client.FetchSeries(context.Background(), SeriesRequest{SeriesID: "X", Source: "yahoo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported source")
}

func TestFREDFetchSeries_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request. The series does not exist."}`))
	}))
	defer server.Close()

	client := NewFREDClient(server.URL, "k", 5*time.Second)
	_, err := client.FetchSeries(context.Background(), SeriesRequest{SeriesID: "NOPE", Source: "FRED"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestParseTimeLabel(t *testing.T) {
	tests := []struct {
		label string
		want  time.Time
		freq  series.Frequency
	}{
		{"2021-07", time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), series.Monthly},
		{"2021M07", time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), series.Monthly},
		{"2021-Q3", time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC), series.Quarterly},
		{"2021Q1", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), series.Quarterly},
		{"2021-07-15", time.Date(2021, 7, 15, 0, 0, 0, 0, time.UTC), series.Daily},
		{"2021", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), series.Annual},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, freq, err := ParseTimeLabel(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.freq, freq)
		})
	}

	_, _, err := ParseTimeLabel("July 2021")
	assert.Error(t, err)
	_, _, err = ParseTimeLabel("2021-13")
	assert.Error(t, err)
}
