// Package opentripmap discovers points of interest around a city through
// the OpenTripMap places API.
package opentripmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/integrations/httputil"
)

const (
	DefaultBaseURL = "https://api.opentripmap.com/0.1/en/places"

	DefaultWalkingMinutes = 5
	DefaultLimit          = 10

	// walkingSpeed is meters per second in a straight line.
	walkingSpeed   = 3
	minFilterChars = 3
	enrichWorkers  = 4
)

// KeySource yields the API key. *paramstore.Secret satisfies it.
type KeySource interface {
	Value(ctx context.Context) (string, error)
}

// Query describes one discovery search. Radius and WalkingMinutes are
// mutually exclusive; when both are zero WalkingMinutes defaults to 5.
type Query struct {
	Place          string
	Radius         int // meters
	WalkingMinutes int
	Kinds          []string
	Limit          int
	Filter         string // name prefix, at least 3 characters
}

// SearchRadius returns the radius in meters after applying defaults.
func (q Query) SearchRadius() (int, error) {
	if q.Radius < 0 || q.WalkingMinutes < 0 {
		return 0, errors.New("opentripmap: radius and walking time must be positive")
	}
	if q.Radius > 0 && q.WalkingMinutes > 0 {
		return 0, errors.New("opentripmap: specify a radius or a walking time, not both")
	}
	if q.Radius > 0 {
		return q.Radius, nil
	}
	minutes := q.WalkingMinutes
	if minutes == 0 {
		minutes = DefaultWalkingMinutes
	}
	return minutes * 60 * walkingSpeed, nil
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	key            KeySource
	kinds          KindSet
	geo            *cache.Cache
	walkingMinutes int
	enrich         bool
	logger         *slog.Logger
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

// WithWalkingMinutes sets the walking time used by FetchEvents.
func WithWalkingMinutes(minutes int) Option {
	return func(c *Client) {
		if minutes > 0 {
			c.walkingMinutes = minutes
		}
	}
}

// WithEnrichment toggles the per-candidate detail lookups.
func WithEnrichment(enabled bool) Option {
	return func(c *Client) {
		c.enrich = enabled
	}
}

func WithKinds(kinds KindSet) Option {
	return func(c *Client) {
		c.kinds = kinds
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(key KeySource, opts ...Option) (*Client, error) {
	if key == nil {
		return nil, errors.New("opentripmap: key source must not be nil")
	}
	c := &Client{
		baseURL:        DefaultBaseURL,
		httpClient:     httputil.NewClient(10 * time.Second),
		key:            key,
		kinds:          DefaultKinds(),
		geo:            cache.New(24*time.Hour, time.Hour),
		walkingMinutes: DefaultWalkingMinutes,
		enrich:         true,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchEvents discovers places in q.City using the keywords as kinds.
func (c *Client) FetchEvents(ctx context.Context, q domain.QueryContext) ([]domain.Event, error) {
	return c.Search(ctx, Query{
		Place:          q.City,
		WalkingMinutes: c.walkingMinutes,
		Kinds:          q.Keywords,
	})
}

type coordinates struct {
	Lat float64
	Lon float64
}

type geonameResponse struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Status  string  `json:"status"`
}

type place struct {
	XID   string     `json:"xid"`
	Name  string     `json:"name"`
	Kinds string     `json:"kinds"`
	Rate  flexString `json:"rate"`
}

type placeDetail struct {
	XID       string     `json:"xid"`
	Name      string     `json:"name"`
	Kinds     string     `json:"kinds"`
	Rate      flexString `json:"rate"`
	URL       string     `json:"url"`
	OTM       string     `json:"otm"`
	Wikipedia string     `json:"wikipedia"`
	Info      struct {
		Descr string `json:"descr"`
	} `json:"info"`
	WikipediaExtracts struct {
		Text string `json:"text"`
	} `json:"wikipedia_extracts"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Search geocodes the place, lists candidates and enriches them.
func (c *Client) Search(ctx context.Context, q Query) ([]domain.Event, error) {
	q.Place = strings.TrimSpace(q.Place)
	if q.Place == "" {
		return nil, errors.New("opentripmap: place is required")
	}
	radius, err := q.SearchRadius()
	if err != nil {
		return nil, err
	}
	if q.Limit < 0 {
		return nil, errors.New("opentripmap: limit must be positive")
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	filter := strings.TrimSpace(q.Filter)
	if filter != "" && len([]rune(filter)) < minFilterChars {
		c.logger.Debug("opentripmap filter ignored", "filter", filter)
		filter = ""
	}

	apiKey, err := c.key.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("opentripmap: resolve api key: %w", err)
	}
	pos, err := c.geocode(ctx, apiKey, q.Place)
	if err != nil {
		return nil, err
	}

	kinds, dropped := c.kinds.Filter(q.Kinds)
	if len(dropped) > 0 {
		c.logger.Debug("opentripmap kinds ignored", "kinds", dropped)
	}

	params := url.Values{
		"lat":    {strconv.FormatFloat(pos.Lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(pos.Lon, 'f', -1, 64)},
		"radius": {strconv.Itoa(radius)},
		"limit":  {strconv.Itoa(q.Limit)},
		"format": {"json"},
		"apikey": {apiKey},
	}
	if len(kinds) > 0 {
		params.Set("kinds", strings.Join(kinds, ","))
	}
	endpoint := "radius"
	if filter != "" {
		endpoint = "autosuggest"
		params.Set("name", filter)
	}

	var places []place
	if err := httputil.GetJSON(ctx, c.httpClient, httputil.JoinURL(c.baseURL, endpoint), params, &places); err != nil {
		return nil, fmt.Errorf("opentripmap: list places: %w", err)
	}

	events := make([]domain.Event, 0, len(places))
	for _, p := range places {
		if p.XID == "" || strings.TrimSpace(p.Name) == "" {
			continue
		}
		events = append(events, domain.Event{
			ID:       p.XID,
			Name:     p.Name,
			Location: q.Place,
			Category: firstKind(p.Kinds),
			Rating:   string(p.Rate),
		})
	}
	if c.enrich {
		c.enrichAll(ctx, apiKey, events)
	}
	return events, nil
}

func (c *Client) geocode(ctx context.Context, apiKey, placeName string) (coordinates, error) {
	cacheKey := strings.ToLower(placeName)
	if v, ok := c.geo.Get(cacheKey); ok {
		return v.(coordinates), nil
	}

	var resp geonameResponse
	params := url.Values{"name": {placeName}, "apikey": {apiKey}}
	if err := httputil.GetJSON(ctx, c.httpClient, httputil.JoinURL(c.baseURL, "geoname"), params, &resp); err != nil {
		return coordinates{}, fmt.Errorf("opentripmap: geocode %q: %w", placeName, err)
	}
	if !strings.EqualFold(resp.Status, "OK") {
		return coordinates{}, fmt.Errorf("opentripmap: geocode %q: status %q", placeName, resp.Status)
	}
	pos := coordinates{Lat: resp.Lat, Lon: resp.Lon}
	c.geo.SetDefault(cacheKey, pos)
	return pos, nil
}

// enrichAll fills detail fields in place. A failed lookup leaves that
// candidate with its listing fields only.
func (c *Client) enrichAll(ctx context.Context, apiKey string, events []domain.Event) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)
	for i := range events {
		g.Go(func() error {
			d, err := c.detail(gctx, apiKey, events[i].ID)
			if err != nil {
				c.logger.Debug("opentripmap detail failed", "xid", events[i].ID, "err", err)
				return nil
			}
			applyDetail(&events[i], d)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Client) detail(ctx context.Context, apiKey, xid string) (placeDetail, error) {
	var d placeDetail
	endpoint := httputil.JoinURL(c.baseURL, "xid/"+url.PathEscape(xid))
	if err := httputil.GetJSON(ctx, c.httpClient, endpoint, url.Values{"apikey": {apiKey}}, &d); err != nil {
		return placeDetail{}, err
	}
	return d, nil
}

func applyDetail(ev *domain.Event, d placeDetail) {
	if k := firstKind(d.Kinds); k != "" {
		ev.Category = k
	}
	if d.Rate != "" {
		ev.Rating = string(d.Rate)
	}
	desc := d.WikipediaExtracts.Text
	if strings.TrimSpace(desc) == "" {
		desc = d.Info.Descr
	}
	if desc = truncateDescription(desc, MaxDescriptionChars); desc != "" {
		ev.Description = desc
	}
	for _, u := range []string{d.URL, d.Wikipedia, d.OTM} {
		if u != "" {
			ev.URL = u
			break
		}
	}
}

func firstKind(kinds string) string {
	first, _, _ := strings.Cut(kinds, ",")
	return strings.TrimSpace(first)
}
