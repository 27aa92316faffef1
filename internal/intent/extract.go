package intent

import (
	"context"
	"regexp"
	"strings"

	"travel-assistant/internal/domain"
)

var (
	numericDate = regexp.MustCompile(`^(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[-/.]\d{1,2}([-/.]\d{2,4})?)$`)
	dayNumber   = regexp.MustCompile(`^\d{1,2}(st|nd|rd|th)?$`)
	yearNumber  = regexp.MustCompile(`^\d{4}$`)
)

var relativeDays = map[string]bool{"today": true, "tomorrow": true, "tonight": true}

var monthNames = map[string]bool{
	"january": true, "february": true, "march": true, "april": true, "may": true, "june": true,
	"july": true, "august": true, "september": true, "october": true, "november": true, "december": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "jun": true, "jul": true, "aug": true,
	"sep": true, "sept": true, "oct": true, "nov": true, "dec": true,
}

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "in": true, "on": true, "at": true, "for": true, "to": true,
	"of": true, "and": true, "or": true, "me": true, "i": true, "we": true, "us": true, "my": true,
	"what": true, "whats": true, "what's": true, "which": true, "are": true, "is": true, "there": true,
	"any": true, "some": true, "show": true, "find": true, "events": true, "event": true,
	"things": true, "thing": true, "do": true, "near": true, "around": true, "please": true,
	"with": true, "from": true, "this": true, "that": true, "can": true, "you": true, "going": true,
	"happening": true, "recommend": true, "looking": true, "want": true, "like": true, "would": true,
	"should": true, "visit": true, "see": true, "go": true, "be": true, "it": true, "about": true,
	"tell": true, "give": true, "get": true, "good": true, "best": true, "where": true, "when": true,
	"how": true, "during": true, "by": true, "into": true, "s": true,
}

// RuleExtractor is a best-effort, dictionary based entity extractor. It
// recognises relative and numeric date phrases, month-name dates and
// multi-word gazetteer cities. Single-word cities are left in the keyword
// list for the CityResolver.
type RuleExtractor struct {
	gazetteer *Gazetteer
}

func NewRuleExtractor(g *Gazetteer) *RuleExtractor {
	return &RuleExtractor{gazetteer: g}
}

// Extract never fails; the error return satisfies extractor interfaces that
// are backed by remote services.
func (e *RuleExtractor) Extract(_ context.Context, text string) (domain.Extraction, error) {
	tokens := tokenize(text)
	used := make([]bool, len(tokens))
	var out domain.Extraction

	if date := markDate(tokens, used); date != "" {
		out.Date = &date
	}
	if city := e.markMultiWordCity(tokens, used); city != "" {
		out.City = &city
	}
	for i, tok := range tokens {
		if used[i] || stopwords[strings.ToLower(tok)] {
			continue
		}
		out.Keywords = append(out.Keywords, tok)
	}
	return out, nil
}

func tokenize(text string) []string {
	raw := strings.Fields(text)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.Trim(tok, ",.!?;:()[]{}\"'")
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// markDate returns the first date phrase found and flags its tokens as used.
func markDate(tokens []string, used []bool) string {
	for i, tok := range tokens {
		lower := strings.ToLower(tok)
		switch {
		case relativeDays[lower], numericDate.MatchString(lower):
			used[i] = true
			return lower
		case monthNames[lower]:
			start, end := i, i
			if i > 0 && dayNumber.MatchString(tokens[i-1]) {
				start = i - 1
			} else if i+1 < len(tokens) && dayNumber.MatchString(tokens[i+1]) {
				end = i + 1
			}
			if end+1 < len(tokens) && yearNumber.MatchString(tokens[end+1]) {
				end++
			}
			if start == end {
				// a bare month name ("may") is too ambiguous to be a date
				continue
			}
			for j := start; j <= end; j++ {
				used[j] = true
			}
			return strings.ToLower(strings.Join(tokens[start:end+1], " "))
		}
	}
	return ""
}

func (e *RuleExtractor) markMultiWordCity(tokens []string, used []bool) string {
	if e.gazetteer == nil {
		return ""
	}
	for size := e.gazetteer.maxWords; size >= 2; size-- {
		for i := 0; i+size <= len(tokens); i++ {
			if anyUsed(used[i : i+size]) {
				continue
			}
			city, ok := e.gazetteer.Lookup(strings.Join(tokens[i:i+size], " "))
			if !ok {
				continue
			}
			for j := i; j < i+size; j++ {
				used[j] = true
			}
			return city
		}
	}
	return ""
}

func anyUsed(flags []bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}
