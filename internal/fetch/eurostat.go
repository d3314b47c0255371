package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"macrovecm/internal/series"
)

// PanelRequest selects a slice of a dimensioned dataset.
type PanelRequest struct {
	Dataset string
	Geo     string
	Filters map[string]string
}

// EurostatClient reads datasets from the Eurostat dissemination API (JSON-stat 2.0).
type EurostatClient struct {
	apiBaseURL string
	lang       string
	httpClient *http.Client
}

// NewEurostatClient creates a client against apiBaseURL
func NewEurostatClient(apiBaseURL string, timeout time.Duration) *EurostatClient {
	return &EurostatClient{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		lang:       "EN",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// jsonStat is the subset of a JSON-stat 2.0 dataset we consume.
type jsonStat struct {
	ID        []string                     `json:"id"`
	Size      []int                        `json:"size"`
	Dimension map[string]jsonStatDimension `json:"dimension"`
	Value     json.RawMessage              `json:"value"`
}

type jsonStatDimension struct {
	Category struct {
		Index map[string]int    `json:"index"`
		Label map[string]string `json:"label"`
	} `json:"category"`
}

type eurostatError struct {
	Error []struct {
		Status int    `json:"status"`
		Label  string `json:"label"`
	} `json:"error"`
}

// FetchPanel downloads one dataset slice and decodes it into dimensioned rows.
func (c *EurostatClient) FetchPanel(ctx context.Context, req PanelRequest) (*PanelResponse, error) {
	if req.Dataset == "" {
		return nil, fmt.Errorf("eurostat: dataset identifier is required")
	}

	filters := make(map[string]string, len(req.Filters)+1)
	for k, v := range req.Filters {
		filters[k] = v
	}
	if req.Geo != "" {
		filters["geo"] = req.Geo
	}

	q := url.Values{}
	q.Set("format", "JSON")
	q.Set("lang", c.lang)
	for k, v := range filters {
		q.Set(k, v)
	}
	u := fmt.Sprintf("%s/%s?%s", c.apiBaseURL, url.PathEscape(req.Dataset), q.Encode())

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("eurostat %s: %w", req.Dataset, err)
	}

	var ds jsonStat
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, fmt.Errorf("eurostat %s: failed to decode dataset: %w", req.Dataset, err)
	}
	resp, err := decodeJSONStat(req.Dataset, &ds)
	if err != nil {
		return nil, fmt.Errorf("eurostat %s: %w", req.Dataset, err)
	}
	resp.Filters = filters
	return resp, nil
}

func (c *EurostatClient) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr eurostatError
		if json.Unmarshal(body, &apiErr) == nil && len(apiErr.Error) > 0 {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error[0].Label)
		}
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, nil
}

// decodeJSONStat expands the flat value index into one row per cell.
func decodeJSONStat(dataset string, ds *jsonStat) (*PanelResponse, error) {
	if len(ds.ID) == 0 || len(ds.ID) != len(ds.Size) {
		return nil, fmt.Errorf("malformed dataset: %d dimensions, %d sizes", len(ds.ID), len(ds.Size))
	}

	// position -> category code, per dimension
	codes := make([][]string, len(ds.ID))
	timeDim := -1
	for d, name := range ds.ID {
		dim, ok := ds.Dimension[name]
		if !ok {
			return nil, fmt.Errorf("malformed dataset: dimension %q not described", name)
		}
		if ds.Size[d] <= 0 {
			return nil, fmt.Errorf("dataset returned no values")
		}
		codes[d] = make([]string, ds.Size[d])
		for code, pos := range dim.Category.Index {
			if pos < 0 || pos >= ds.Size[d] {
				return nil, fmt.Errorf("malformed dataset: %s/%s index %d out of range", name, code, pos)
			}
			codes[d][pos] = code
		}
		if name == "time" {
			timeDim = d
		}
	}
	if timeDim < 0 {
		return nil, fmt.Errorf("malformed dataset: no time dimension")
	}

	times := make([]time.Time, ds.Size[timeDim])
	freq := series.Monthly
	for i, label := range codes[timeDim] {
		t, f, err := ParseTimeLabel(label)
		if err != nil {
			return nil, err
		}
		times[i] = t
		freq = f
	}

	values, err := decodeValues(ds.Value)
	if err != nil {
		return nil, err
	}

	flats := make([]int, 0, len(values))
	for flat := range values {
		flats = append(flats, flat)
	}
	sort.Ints(flats)

	resp := &PanelResponse{Dataset: dataset, Frequency: freq}
	for _, flat := range flats {
		v := values[flat]
		pos := flat
		cats := make(map[string]string, len(ds.ID)-1)
		var t time.Time
		for d := len(ds.ID) - 1; d >= 0; d-- {
			p := pos % ds.Size[d]
			pos /= ds.Size[d]
			if d == timeDim {
				t = times[p]
				continue
			}
			cats[ds.ID[d]] = codes[d][p]
		}
		if pos != 0 {
			return nil, fmt.Errorf("malformed dataset: value index %d exceeds dimensions", flat)
		}
		resp.Rows = append(resp.Rows, PanelRow{Time: t, Categories: cats, Value: v})
	}
	if len(resp.Rows) == 0 {
		return nil, fmt.Errorf("dataset returned no values")
	}
	return resp, nil
}

// decodeValues accepts both the sparse object and the dense array encodings.
func decodeValues(raw json.RawMessage) (map[int]float64, error) {
	out := make(map[int]float64)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}

	if trimmed[0] == '[' {
		var dense []*float64
		if err := json.Unmarshal(trimmed, &dense); err != nil {
			return nil, fmt.Errorf("decode values: %w", err)
		}
		for i, v := range dense {
			if v == nil {
				out[i] = math.NaN()
				continue
			}
			out[i] = *v
		}
		return out, nil
	}

	var sparse map[string]*float64
	if err := json.Unmarshal(trimmed, &sparse); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	for k, v := range sparse {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode values: bad index %q", k)
		}
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out, nil
}
