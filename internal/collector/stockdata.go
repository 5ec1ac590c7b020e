package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"TradeDesk/internal/model"
)

// StockDataFeed implements PriceFeed against a REST endpoint serving
// daily bars as [{date, open, high, low, close, volume}].
type StockDataFeed struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewStockDataFeed creates a new feed with optional proxy support.
func NewStockDataFeed(baseURL, apiKey, proxyURL string, timeout time.Duration) *StockDataFeed {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &StockDataFeed{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

func (f *StockDataFeed) Name() string { return "stockdata" }

// stockBar is the expected JSON shape from the endpoint.
type stockBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (f *StockDataFeed) GetHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.PricePoint, error) {
	endpoint := fmt.Sprintf("%s/stock-data?symbol=%s&start=%s&end=%s", f.BaseURL, url.QueryEscape(symbol),
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, unavailable(f.Name(), symbol, err)
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, unavailable(f.Name(), symbol, fmt.Errorf("fetch bars: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, unavailable(f.Name(), symbol, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body)))
	}
	var bars []stockBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, unavailable(f.Name(), symbol, fmt.Errorf("decode bars: %w", err))
	}
	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		d, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return nil, unavailable(f.Name(), symbol, fmt.Errorf("bad bar date %q: %w", b.Date, err))
		}
		points = append(points, model.PricePoint{
			Date:   d,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	return filterRange(points, start, end), nil
}
