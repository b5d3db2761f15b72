package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// chartResponse is the subset of the quote API's chart payload we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// Fetcher pulls daily close series from a chart-style quote endpoint.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// DailyCloses fetches up to lookbackDays of daily closes for a symbol,
// keyed by date.
func (f *Fetcher) DailyCloses(ctx context.Context, symbol string, lookbackDays int) (map[time.Time]float64, error) {
	url := fmt.Sprintf("%s/%s?range=%dd&interval=1d", f.baseURL, symbol, lookbackDays)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "curl/8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote request for %s returned %d", symbol, resp.StatusCode)
	}

	var cr chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, errors.New("no data in quote response")
	}

	ts := cr.Chart.Result[0].Timestamp
	closes := cr.Chart.Result[0].Indicators.Quote[0].Close

	out := make(map[time.Time]float64, len(ts))
	for i, t := range ts {
		if i >= len(closes) || closes[i] == 0 {
			continue
		}
		day := time.Unix(t, 0).UTC().Truncate(24 * time.Hour)
		out[day] = closes[i]
	}
	if len(out) == 0 {
		return nil, errors.New("no valid close prices")
	}
	return out, nil
}
