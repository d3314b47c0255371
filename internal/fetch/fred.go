package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"macrovecm/internal/series"
)

// SourceFRED is the only financial-data source tag the client serves.
const SourceFRED = "FRED"

// SeriesRequest names one series from a financial-data source.
type SeriesRequest struct {
	SeriesID  string
	Source    string
	Start     time.Time
	// Frequency is the native frequency of the series; the API does not report it.
	Frequency series.Frequency
}

// FREDClient reads series observations from the FRED API.
type FREDClient struct {
	apiBaseURL string
	apiKey     string
	httpClient *http.Client
}

// NewFREDClient creates a FRED client
func NewFREDClient(apiBaseURL, apiKey string, timeout time.Duration) *FREDClient {
	return &FREDClient{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

type fredError struct {
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// FetchSeries downloads the observations of one series from req.Start to today.
func (c *FREDClient) FetchSeries(ctx context.Context, req SeriesRequest) (*SeriesResponse, error) {
	if !strings.EqualFold(req.Source, SourceFRED) {
		return nil, fmt.Errorf("financial data: unsupported source %q", req.Source)
	}
	if req.SeriesID == "" {
		return nil, fmt.Errorf("fred: series identifier is required")
	}

	q := url.Values{}
	q.Set("series_id", req.SeriesID)
	q.Set("api_key", c.apiKey)
	q.Set("file_type", "json")
	if !req.Start.IsZero() {
		q.Set("observation_start", req.Start.Format(time.DateOnly))
	}
	u := fmt.Sprintf("%s/series/observations?%s", c.apiBaseURL, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fred %s: request failed: %w", req.SeriesID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fred %s: read body: %w", req.SeriesID, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr fredError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.ErrorMessage != "" {
			return nil, fmt.Errorf("fred %s: status %d: %s", req.SeriesID, resp.StatusCode, apiErr.ErrorMessage)
		}
		return nil, fmt.Errorf("fred %s: status %d", req.SeriesID, resp.StatusCode)
	}

	var payload fredObservations
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("fred %s: failed to decode observations: %w", req.SeriesID, err)
	}
	if len(payload.Observations) == 0 {
		return nil, fmt.Errorf("fred %s: no observations", req.SeriesID)
	}

	out := &SeriesResponse{
		SeriesID:  req.SeriesID,
		Source:    SourceFRED,
		Frequency: req.Frequency,
		Obs:       make([]series.Observation, 0, len(payload.Observations)),
	}
	for _, o := range payload.Observations {
		d, err := time.Parse(time.DateOnly, o.Date)
		if err != nil {
			return nil, fmt.Errorf("fred %s: bad date %q: %w", req.SeriesID, o.Date, err)
		}
		v := math.NaN()
		// "." marks a missing value
		if o.Value != "." && o.Value != "" {
			v, err = strconv.ParseFloat(o.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("fred %s: bad value %q on %s: %w", req.SeriesID, o.Value, o.Date, err)
			}
		}
		out.Obs = append(out.Obs, series.Observation{Date: d, Value: v})
	}
	return out, nil
}
