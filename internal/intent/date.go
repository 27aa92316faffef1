package intent

import (
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

// Layouts tried by the fuzzy pass. Layouts without a year parse to year 0,
// which is treated as "year not given" and replaced with the current year.
var fuzzyLayouts = []string{
	"2-1",
	"2/1",
	"2.1",
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"2006/1/2",
	"1/2",
	"1/2/2006",
	"2 January",
	"2 Jan",
	"January 2",
	"Jan 2",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"January 2006",
	"Monday 2 January",
	"Monday January 2",
}

// DateNormalizer turns a free-text date phrase into a calendar date.
type DateNormalizer struct {
	now func() time.Time
}

// NewDateNormalizer returns a normalizer using now as its clock. A nil clock
// means time.Now.
func NewDateNormalizer(now func() time.Time) *DateNormalizer {
	if now == nil {
		now = time.Now
	}
	return &DateNormalizer{now: now}
}

// Today returns the current calendar date at midnight.
func (n *DateNormalizer) Today() time.Time {
	return startOfDay(n.now())
}

// Normalize never fails: unparseable or missing input yields today.
func (n *DateNormalizer) Normalize(text *string) time.Time {
	today := n.Today()
	if text == nil {
		return today
	}
	s := strings.ToLower(strings.TrimSpace(*text))
	switch s {
	case "", "today", "tonight":
		return today
	case "tomorrow":
		return today.AddDate(0, 0, 1)
	}
	if d, err := time.ParseInLocation(isoLayout, s, today.Location()); err == nil {
		return d
	}
	if d, ok := n.fuzzy(s, today); ok {
		return d
	}
	return today
}

// fuzzy tries the whole phrase first, then every window of up to four
// tokens, so surrounding words like "on" or "please" are tolerated.
func (n *DateNormalizer) fuzzy(s string, today time.Time) (time.Time, bool) {
	if d, ok := parseLayouts(cleanDatePhrase(s), today); ok {
		return d, true
	}
	tokens := strings.Fields(cleanDatePhrase(s))
	for size := min(4, len(tokens)); size >= 1; size-- {
		for i := 0; i+size <= len(tokens); i++ {
			if d, ok := parseLayouts(strings.Join(tokens[i:i+size], " "), today); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func parseLayouts(s string, today time.Time) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.ParseInLocation(isoLayout, s, today.Location()); err == nil {
		return d, true
	}
	for _, layout := range fuzzyLayouts {
		parsed, err := time.ParseInLocation(layout, s, today.Location())
		if err != nil {
			continue
		}
		year := parsed.Year()
		if year == 0 {
			year = today.Year()
		}
		d := time.Date(year, parsed.Month(), parsed.Day(), 0, 0, 0, 0, today.Location())
		// Year 0 is a leap year, so "29-02" parses; time.Date would roll it
		// into March of a common year.
		if d.Month() != parsed.Month() || d.Day() != parsed.Day() {
			continue
		}
		return d, true
	}
	return time.Time{}, false
}

// cleanDatePhrase drops commas and English ordinal suffixes ("23rd" -> "23").
func cleanDatePhrase(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = stripOrdinal(f)
	}
	return strings.Join(fields, " ")
}

func stripOrdinal(tok string) string {
	if len(tok) < 3 {
		return tok
	}
	suffix := tok[len(tok)-2:]
	if suffix != "st" && suffix != "nd" && suffix != "rd" && suffix != "th" {
		return tok
	}
	digits := tok[:len(tok)-2]
	for _, r := range digits {
		if r < '0' || r > '9' {
			return tok
		}
	}
	return digits
}

// DayBounds returns 00:00:00 and 23:59:59 of d's calendar day.
func DayBounds(d time.Time) (time.Time, time.Time) {
	start := startOfDay(d)
	end := time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, 0, start.Location())
	return start, end
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
