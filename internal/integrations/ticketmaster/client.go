// Package ticketmaster queries the Ticketmaster Discovery API for dated
// events in a city.
package ticketmaster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/integrations/httputil"
	"travel-assistant/internal/intent"
)

const (
	DefaultBaseURL = "https://app.ticketmaster.com/discovery/v2"

	// Priority ranks listed events above open discovery results and below
	// curated ones.
	Priority = 10

	pageSize      = 5
	apiTimeLayout = "2006-01-02T15:04:05Z"
)

// KeySource yields the API key. *paramstore.Secret satisfies it.
type KeySource interface {
	Value(ctx context.Context) (string, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	key        KeySource
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
		return nil, errors.New("ticketmaster: key source must not be nil")
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: httputil.NewClient(10 * time.Second),
		key:        key,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchResponse struct {
	Embedded struct {
		Events []apiEvent `json:"events"`
	} `json:"_embedded"`
}

type apiEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Info  string `json:"info"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
	} `json:"dates"`
	Classifications []struct {
		Segment struct {
			Name string `json:"name"`
		} `json:"segment"`
	} `json:"classifications"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// FetchEvents lists events in q.City on q.Date matching the keywords.
func (c *Client) FetchEvents(ctx context.Context, q domain.QueryContext) ([]domain.Event, error) {
	if strings.TrimSpace(q.City) == "" {
		return nil, errors.New("ticketmaster: city is required")
	}
	apiKey, err := c.key.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("ticketmaster: resolve api key: %w", err)
	}

	start, end := intent.DayBounds(q.Date)
	params := url.Values{
		"city":          {q.City},
		"sort":          {"date,asc"},
		"startDateTime": {start.Format(apiTimeLayout)},
		"endDateTime":   {end.Format(apiTimeLayout)},
		"size":          {strconv.Itoa(pageSize)},
		"apikey":        {apiKey},
	}
	if kw := searchKeywords(q); len(kw) > 0 {
		params.Set("keyword", strings.Join(kw, " "))
	}

	var resp searchResponse
	if err := httputil.GetJSON(ctx, c.httpClient, httputil.JoinURL(c.baseURL, "events.json"), params, &resp); err != nil {
		return nil, fmt.Errorf("ticketmaster: search events: %w", err)
	}

	events := make([]domain.Event, 0, len(resp.Embedded.Events))
	for _, e := range resp.Embedded.Events {
		if e.ID == "" || e.Name == "" {
			continue
		}
		events = append(events, toEvent(e, q.City))
	}
	return events, nil
}

// searchKeywords drops keywords that repeat the city or the date phrase so
// the search does not match on them.
func searchKeywords(q domain.QueryContext) []string {
	dateTokens := strings.Fields(strings.ToLower(q.DateText))
	out := make([]string, 0, len(q.Keywords))
	for _, kw := range q.Keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" || k == strings.ToLower(q.City) || k == strings.ToLower(strings.TrimSpace(q.DateText)) {
			continue
		}
		skip := false
		for _, d := range dateTokens {
			if k == d {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, kw)
		}
	}
	return out
}

func toEvent(e apiEvent, city string) domain.Event {
	ev := domain.Event{
		ID:          e.ID,
		Name:        e.Name,
		Location:    city,
		Description: strings.TrimSpace(e.Info),
		URL:         e.URL,
		Priority:    Priority,
	}
	if len(e.Embedded.Venues) > 0 && e.Embedded.Venues[0].Name != "" {
		ev.Location = e.Embedded.Venues[0].Name + ", " + city
	}
	if len(e.Classifications) > 0 {
		if seg := e.Classifications[0].Segment.Name; seg != "" && seg != "Undefined" {
			ev.Category = seg
		}
	}
	if d, ok := parseStart(e.Dates.Start.LocalDate, e.Dates.Start.LocalTime); ok {
		ev.Date = &d
	}
	return ev
}

func parseStart(date, clock string) (time.Time, bool) {
	if date == "" {
		return time.Time{}, false
	}
	if clock != "" {
		if t, err := time.Parse("2006-01-02 15:04:05", date+" "+clock); err == nil {
			return t, true
		}
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
