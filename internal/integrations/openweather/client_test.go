package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"travel-assistant/internal/integrations/paramstore"
)

func newServer(t *testing.T, geoCalls *atomic.Int32, weatherBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/geo/1.0/direct", func(w http.ResponseWriter, r *http.Request) {
		geoCalls.Add(1)
		require.Equal(t, "ow-key", r.URL.Query().Get("appid"))
		if r.URL.Query().Get("q") == "Nowhere" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"name":"Paris","lat":48.8588897,"lon":2.3200410}]`))
	})
	mux.HandleFunc("/data/2.5/weather", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "48.8588897", r.URL.Query().Get("lat"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(weatherBody))
	})
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(paramstore.Static("ow-key"), WithBaseURL(srv.URL), WithHTTPClient(&http.Client{Timeout: time.Second}))
	require.NoError(t, err)
	return c
}

func TestCurrent_HappyPath(t *testing.T) {
	var geoCalls atomic.Int32
	srv := newServer(t, &geoCalls, `{"weather":[{"description":"light rain"}],"main":{"temp":12.7}}`)
	defer srv.Close()

	c := newTestClient(t, srv)
	got, err := c.Current(context.Background(), "Paris")
	require.NoError(t, err)
	require.Equal(t, "Current weather in Paris: Light rain, Temp: 12°C", got)

	_, err = c.Current(context.Background(), "paris")
	require.NoError(t, err)
	require.EqualValues(t, 1, geoCalls.Load())
}

func TestCurrent_MissingFields(t *testing.T) {
	var geoCalls atomic.Int32
	srv := newServer(t, &geoCalls, `{}`)
	defer srv.Close()

	got, err := newTestClient(t, srv).Current(context.Background(), "Paris")
	require.NoError(t, err)
	require.Equal(t, "Current weather in Paris: No description available, Temp: N/A", got)
}

func TestCurrent_NegativeTemperature(t *testing.T) {
	var geoCalls atomic.Int32
	srv := newServer(t, &geoCalls, `{"weather":[{"description":"SNOW"}],"main":{"temp":-3.6}}`)
	defer srv.Close()

	got, err := newTestClient(t, srv).Current(context.Background(), "Paris")
	require.NoError(t, err)
	require.Equal(t, "Current weather in Paris: Snow, Temp: -3°C", got)
}

func TestCurrent_UnknownCity(t *testing.T) {
	var geoCalls atomic.Int32
	srv := newServer(t, &geoCalls, `{}`)
	defer srv.Close()

	_, err := newTestClient(t, srv).Current(context.Background(), "Nowhere")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no coordinates")
}

func TestCurrent_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Current(context.Background(), "Paris")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "ow-key")
}

func TestNewClient_NilKey(t *testing.T) {
	_, err := NewClient(nil)
	require.Error(t, err)
}
