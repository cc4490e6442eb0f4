// Package benchmark fetches index closing histories from the Yahoo Finance
// chart API, with cache-first behavior backed by the client data store.
package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/clientdata"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
)

// indexSymbols maps tracked indices to their Yahoo chart symbols.
var indexSymbols = map[domain.BenchmarkIndex]string{
	domain.BenchmarkKospi:  "^KS11",
	domain.BenchmarkSP500:  "^GSPC",
	domain.BenchmarkNasdaq: "^IXIC",
}

// Client fetches benchmark index series. Implements domain.BenchmarkSource.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new benchmark client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   "https://query1.finance.yahoo.com/v8/finance/chart",
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "benchmark").Logger(),
		cacheRepo: cacheRepo,
	}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// GetSeries returns the sparse date -> close mapping for an index over
// [start, end]. Fresh cache entries are served directly; on API failure a
// stale cache entry is served rather than nothing.
func (c *Client) GetSeries(index domain.BenchmarkIndex, start, end string) (domain.BenchmarkSeries, error) {
	symbol, ok := indexSymbols[index]
	if !ok {
		return nil, &domain.ValidationError{Field: "index", Reason: "unknown benchmark index: " + string(index)}
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", index, start, end)

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("benchmark_series", cacheKey)
		if err == nil && data != nil {
			var cached domain.BenchmarkSeries
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("index", string(index)).Msg("Cache hit")
				return cached, nil
			}
		}
	}

	series, err := c.fetchSeries(symbol, start, end)
	if err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().
				Err(err).
				Str("index", string(index)).
				Msg("API failed, using stale cached series")
			return stale, nil
		}
		return nil, &domain.ExternalFetchError{Source: "benchmark:" + string(index), Err: err}
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("benchmark_series", cacheKey, series, clientdata.TTLBenchmarkSeries); err != nil {
			c.log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache benchmark series")
		}
	}

	c.log.Info().
		Str("index", string(index)).
		Int("points", len(series)).
		Msg("Fetched benchmark series")
	return series, nil
}

// LatestClose returns the most recent close within the last two weeks,
// covering long holiday gaps.
func (c *Client) LatestClose(index domain.BenchmarkIndex) (float64, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	series, err := c.GetSeries(index, utils.FormatDate(start), utils.FormatDate(end))
	if err != nil {
		return 0, err
	}

	close, ok := series.Latest()
	if !ok {
		return 0, &domain.NotFoundError{Resource: "close for " + string(index)}
	}
	return close, nil
}

func (c *Client) fetchSeries(symbol, start, end string) (domain.BenchmarkSeries, error) {
	startT, err := utils.ParseDate(start)
	if err != nil {
		return nil, &domain.ValidationError{Field: "start", Reason: "invalid date: " + start}
	}
	endT, err := utils.ParseDate(end)
	if err != nil {
		return nil, &domain.ValidationError{Field: "end", Reason: "invalid date: " + end}
	}

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("period1", fmt.Sprintf("%d", startT.Unix()))
	// period2 is exclusive; extend by a day so the end date is included.
	params.Add("period2", fmt.Sprintf("%d", endT.AddDate(0, 0, 1).Unix()))

	reqURL := c.baseURL + "/" + url.QueryEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chart API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error: %v", result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return domain.BenchmarkSeries{}, nil
	}

	chartData := result.Chart.Result[0]
	closes := chartData.Indicators.Quote[0].Close

	series := make(domain.BenchmarkSeries, len(chartData.Timestamp))
	for i, ts := range chartData.Timestamp {
		// Null closes appear on half-days and data gaps.
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		date := time.Unix(ts, 0).UTC().Format(utils.DateLayout)
		series[date] = *closes[i]
	}
	return series, nil
}

func (c *Client) getStaleFromCache(cacheKey string) (domain.BenchmarkSeries, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	data, err := c.cacheRepo.Get("benchmark_series", cacheKey)
	if err != nil || data == nil {
		return nil, false
	}

	var cached domain.BenchmarkSeries
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return cached, true
}
