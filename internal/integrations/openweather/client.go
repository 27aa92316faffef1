// Package openweather reports current conditions for a city through the
// OpenWeatherMap geocoding and weather APIs.
package openweather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"

	"travel-assistant/internal/integrations/httputil"
)

const DefaultBaseURL = "https://api.openweathermap.org"

// KeySource yields the API key. *paramstore.Secret satisfies it.
type KeySource interface {
	Value(ctx context.Context) (string, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	key        KeySource
	units      string
	geo        *cache.Cache
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if s := strings.TrimSpace(baseURL); s != "" {
			c.baseURL = s
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(key KeySource, opts ...Option) (*Client, error) {
	if key == nil {
		return nil, errors.New("openweather: key source must not be nil")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: httputil.NewClient(10 * time.Second),
		key:        key,
		units:      "metric",
		geo:        cache.New(24*time.Hour, time.Hour),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type geoResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type currentResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// Current returns a one-line summary such as
// "Current weather in Paris: Light rain, Temp: 12°C".
func (c *Client) Current(ctx context.Context, city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", errors.New("openweather: city is required")
	}
	apiKey, err := c.key.Value(ctx)
	if err != nil {
		return "", fmt.Errorf("openweather: resolve api key: %w", err)
	}
	pos, err := c.geocode(ctx, apiKey, city)
	if err != nil {
		return "", err
	}

	params := url.Values{
		"lat":   {strconv.FormatFloat(pos.Lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(pos.Lon, 'f', -1, 64)},
		"units": {c.units},
		"appid": {apiKey},
	}
	var resp currentResponse
	if err := httputil.GetJSON(ctx, c.httpClient, httputil.JoinURL(c.baseURL, "data/2.5/weather"), params, &resp); err != nil {
		return "", fmt.Errorf("openweather: current weather: %w", err)
	}
	return formatCurrent(city, resp), nil
}

func (c *Client) geocode(ctx context.Context, apiKey, city string) (geoResult, error) {
	cacheKey := strings.ToLower(city)
	if v, ok := c.geo.Get(cacheKey); ok {
		return v.(geoResult), nil
	}
	var results []geoResult
	params := url.Values{"q": {city}, "limit": {"1"}, "appid": {apiKey}}
	if err := httputil.GetJSON(ctx, c.httpClient, httputil.JoinURL(c.baseURL, "geo/1.0/direct"), params, &results); err != nil {
		return geoResult{}, fmt.Errorf("openweather: geocode %q: %w", city, err)
	}
	if len(results) == 0 {
		return geoResult{}, fmt.Errorf("openweather: no coordinates for %q", city)
	}
	c.geo.SetDefault(cacheKey, results[0])
	return results[0], nil
}

func formatCurrent(city string, resp currentResponse) string {
	desc := "No description available"
	if len(resp.Weather) > 0 && strings.TrimSpace(resp.Weather[0].Description) != "" {
		desc = capitalize(strings.TrimSpace(resp.Weather[0].Description))
	}
	temp := "N/A"
	if resp.Main != nil && resp.Main.Temp != nil {
		temp = strconv.Itoa(int(math.Trunc(*resp.Main.Temp))) + "°C"
	}
	return fmt.Sprintf("Current weather in %s: %s, Temp: %s", city, desc, temp)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
