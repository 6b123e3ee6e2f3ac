package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"postmorty/internal/candle"
	"postmorty/internal/utils"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantage fetches daily bars from the Alpha Vantage TIME_SERIES_DAILY
// endpoint.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAlphaVantage(apiKey string) (*AlphaVantage, error) {
	if apiKey == "" {
		return nil, errors.New("alpha vantage API key is missing")
	}
	return &AlphaVantage{
		apiKey:  apiKey,
		baseURL: alphaVantageBaseURL,
		client:  newHTTPClient(),
	}, nil
}

func (a *AlphaVantage) Name() string { return "alphavantage" }

// alphaVantageBar mirrors the numbered keys of the daily time series payload.
type alphaVantageBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type alphaVantageResponse struct {
	ErrorMessage string                     `json:"Error Message"`
	Information  string                     `json:"Information"`
	Note         string                     `json:"Note"`
	TimeSeries   map[string]alphaVantageBar `json:"Time Series (Daily)"`
}

// FetchDaily returns the most recent days of daily bars for symbol, ascending
// by date. Alpha Vantage returns its full compact window regardless of range,
// so days only trims the tail.
func (a *AlphaVantage) FetchDaily(ctx context.Context, symbol string, days int) ([]candle.Candle, error) {
	params := url.Values{
		"function": {"TIME_SERIES_DAILY"},
		"symbol":   {symbol},
		"apikey":   {a.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpha vantage request for %s failed: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d for %s", resp.StatusCode, symbol)
	}

	var payload alphaVantageResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode alpha vantage response: %w", err)
	}

	if payload.ErrorMessage != "" {
		return nil, fmt.Errorf("alpha vantage error for %s: %s", symbol, payload.ErrorMessage)
	}
	// "Information" and "Note" both signal rate limiting rather than data.
	if len(payload.TimeSeries) == 0 {
		if payload.Information != "" {
			return nil, fmt.Errorf("alpha vantage rejected %s: %s", symbol, payload.Information)
		}
		if payload.Note != "" {
			return nil, fmt.Errorf("alpha vantage rate limited for %s: %s", symbol, payload.Note)
		}
		return nil, fmt.Errorf("alpha vantage returned no daily series for %s", symbol)
	}

	candles := make([]candle.Candle, 0, len(payload.TimeSeries))
	for date, bar := range payload.TimeSeries {
		c, err := a.parseBar(symbol, date, bar)
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	candle.SortByDate(candles)

	if days > 0 && len(candles) > days {
		candles = candles[len(candles)-days:]
	}

	utils.GetLogger().Printf("Provider | %s fetched %d daily bars for %s", a.Name(), len(candles), symbol)
	return candles, nil
}

func (a *AlphaVantage) parseBar(symbol, date string, bar alphaVantageBar) (candle.Candle, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return candle.Candle{}, fmt.Errorf("invalid date %q for %s: %w", date, symbol, err)
	}

	c := candle.Candle{Symbol: symbol, Date: candle.Day(day)}
	for _, f := range []struct {
		name  string
		value string
		dst   *float64
	}{
		{"open", bar.Open, &c.Open},
		{"high", bar.High, &c.High},
		{"low", bar.Low, &c.Low},
		{"close", bar.Close, &c.Close},
		{"volume", bar.Volume, &c.Volume},
	} {
		v, err := strconv.ParseFloat(f.value, 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("invalid %s %q for %s at %s: %w", f.name, f.value, symbol, date, err)
		}
		*f.dst = v
	}
	return c, nil
}
