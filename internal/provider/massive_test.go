package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postmorty/internal/candle"
)

func newTestMassive(t *testing.T, handler http.HandlerFunc) *Massive {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m, err := NewMassive("test-key")
	require.NoError(t, err)
	m.baseURL = srv.URL
	return m
}

func TestMassiveRequiresAPIKey(t *testing.T) {
	_, err := NewMassive("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestMassiveFetchDaily(t *testing.T) {
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	m := newTestMassive(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/AAPL/range/1/day/"), "path: %s", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("adjusted"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		fmt.Fprintf(w, `{"status": "OK", "results": [
			{"t": %d, "o": 187.15, "h": 188.44, "l": 183.89, "c": 185.64, "v": 82488674},
			{"t": %d, "o": 184.22, "h": 185.88, "l": 183.43, "c": 184.25, "v": 58414460}
		]}`, day1.UnixMilli(), day2.UnixMilli())
	})

	candles, err := m.FetchDaily(context.Background(), "AAPL", 30)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	assert.True(t, candles[0].Date.Equal(day1))
	assert.True(t, candles[1].Date.Equal(day2))
	assert.Equal(t, "AAPL", candles[0].Symbol)
	assert.Equal(t, 185.64, candles[0].Close)
	assert.Equal(t, 58414460.0, candles[1].Volume)

	assert.NoError(t, candle.ValidateSeries(candles))
}

func TestMassiveEmptyResults(t *testing.T) {
	m := newTestMassive(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "OK", "results": []}`))
	})

	candles, err := m.FetchDaily(context.Background(), "UNKNOWN", 30)
	require.NoError(t, err)
	assert.Empty(t, candles, "an empty window is not an error at the provider level")
}

func TestMassiveErrorStatuses(t *testing.T) {
	t.Run("forbidden means bad key", func(t *testing.T) {
		m := newTestMassive(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := m.FetchDaily(context.Background(), "AAPL", 30)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("server error", func(t *testing.T) {
		m := newTestMassive(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := m.FetchDaily(context.Background(), "AAPL", 30)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})
}
