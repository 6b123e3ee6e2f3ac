package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"postmorty/internal/candle"
	"postmorty/internal/utils"
)

const massiveBaseURL = "https://api.massive.com/v2/aggs/ticker"

// Massive fetches daily aggregates from the Massive API.
// Endpoint: /v2/aggs/ticker/{symbol}/range/1/day/{from}/{to}
type Massive struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewMassive(apiKey string) (*Massive, error) {
	if apiKey == "" {
		return nil, errors.New("massive API key is missing")
	}
	return &Massive{
		apiKey:  apiKey,
		baseURL: massiveBaseURL,
		client:  newHTTPClient(),
	}, nil
}

func (m *Massive) Name() string { return "massive" }

// massiveBar is one aggregate result; t is a millisecond epoch timestamp.
type massiveBar struct {
	Timestamp int64   `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

type massiveResponse struct {
	Status  string       `json:"status"`
	Results []massiveBar `json:"results"`
}

// FetchDaily returns daily bars for symbol covering the past days calendar
// days, ascending by date.
func (m *Massive) FetchDaily(ctx context.Context, symbol string, days int) ([]candle.Candle, error) {
	if days <= 0 {
		days = 100
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	endpoint := fmt.Sprintf("%s/%s/range/1/day/%s/%s",
		m.baseURL, url.PathEscape(symbol), start.Format("2006-01-02"), end.Format("2006-01-02"))
	params := url.Values{
		"adjusted": {"true"},
		"sort":     {"asc"},
		"limit":    {"5000"},
		"apiKey":   {m.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("massive request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("massive rejected the API key for %s (status 403)", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("massive returned status %d for %s", resp.StatusCode, symbol)
	}

	var payload massiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode massive response: %w", err)
	}

	candles := make([]candle.Candle, 0, len(payload.Results))
	for _, bar := range payload.Results {
		candles = append(candles, candle.Candle{
			Symbol: symbol,
			Date:   candle.Day(time.UnixMilli(bar.Timestamp)),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}
	candle.SortByDate(candles)

	utils.GetLogger().Printf("Provider | %s fetched %d daily bars for %s", m.Name(), len(candles), symbol)
	return candles, nil
}
