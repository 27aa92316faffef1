// Package overpass lists OpenStreetMap amenities inside a city through the
// Overpass API.
package overpass

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/integrations/httputil"
)

const (
	DefaultURL     = "https://overpass-api.de/api/interpreter"
	DefaultAmenity = "cafe"

	unknownName = "Unknown"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
	limit      int
	attempts   int
	backoff    time.Duration
}

type Option func(*Client)

func WithURL(endpoint string) Option {
	return func(c *Client) {
		if s := strings.TrimSpace(endpoint); s != "" {
			c.endpoint = s
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLimit caps the number of returned features. By default every named
// node the interpreter returns is kept.
func WithLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithRetry sets how often a busy interpreter (429/5xx) is retried.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.backoff = backoff
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultURL,
		httpClient: httputil.NewClient(15 * time.Second),
		attempts:   2,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type interpreterResponse struct {
	Elements []struct {
		Type string            `json:"type"`
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// AmenityFor picks the amenity category for a keyword list: the first
// keyword, or "cafe" when there is none.
func AmenityFor(keywords []string) string {
	for _, kw := range keywords {
		if a := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(kw)), " ", "_"); a != "" {
			return a
		}
	}
	return DefaultAmenity
}

// FetchPOIs returns named amenity nodes inside the city's administrative area.
func (c *Client) FetchPOIs(ctx context.Context, q domain.QueryContext) ([]domain.POI, error) {
	city := strings.TrimSpace(q.City)
	if city == "" {
		return nil, fmt.Errorf("overpass: city is required")
	}
	params := url.Values{"data": {buildQuery(city, AmenityFor(q.Keywords))}}

	var resp interpreterResponse
	err := httputil.Retry(ctx, c.attempts, c.backoff, 4*c.backoff, httputil.IsRetryable, func() error {
		return httputil.GetJSON(ctx, c.httpClient, c.endpoint, params, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("overpass: query %q: %w", city, err)
	}

	pois := make([]domain.POI, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if el.Type != "" && el.Type != "node" {
			continue
		}
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			name = unknownName
		}
		pois = append(pois, domain.POI{Name: name, Lat: el.Lat, Lon: el.Lon})
		if c.limit > 0 && len(pois) == c.limit {
			break
		}
	}
	return pois, nil
}

func buildQuery(city, amenity string) string {
	return fmt.Sprintf(`[out:json][timeout:25];
area["name"="%s"]["admin_level"="8"]->.searchArea;
node["amenity"="%s"](area.searchArea);
out;`, quote(city), quote(amenity))
}

// quote escapes a value for an Overpass QL string literal.
func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
