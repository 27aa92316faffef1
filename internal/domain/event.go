package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is one candidate event or point of interest from any source.
type Event struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Description string     `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Category    string     `json:"category,omitempty"`
	URL         string     `json:"url,omitempty"`
	Rating      string     `json:"rating,omitempty"`
	Priority    int        `json:"priority"`
	Pinned      bool       `json:"pinned"`
}

// UnmarshalJSON accepts the date as a calendar date ("2026-11-23") as well
// as an RFC 3339 timestamp.
func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	aux := struct {
		*plain
		Date *string `json:"date"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	e.Date = nil
	if aux.Date == nil || strings.TrimSpace(*aux.Date) == "" {
		return nil
	}
	d, err := ParseDate(*aux.Date)
	if err != nil {
		return err
	}
	e.Date = &d
	return nil
}

// ParseDate parses a calendar date, read as midnight UTC, or an RFC 3339
// timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.DateOnly, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("domain: date %q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return d, nil
}

// Location is an administrator-curated place. Curated locations are kept
// for the admin surface only and do not take part in ranking.
type Location struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	City        string `json:"city"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// QueryContext is the resolved city/date/keyword triple for one query.
type QueryContext struct {
	City     string
	Date     time.Time
	DateText string
	Keywords []string
}

// Extraction is the best-effort output of an entity extractor. Nil fields
// mean the extractor found nothing.
type Extraction struct {
	City     *string
	Date     *string
	Keywords []string
}

// SameDay reports whether a and b fall on the same calendar day, comparing
// the wall-clock date in each value's own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// EqualFoldTrim compares two strings case-insensitively after trimming.
func EqualFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// POI is a named point feature returned by the amenity provider.
type POI struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}
