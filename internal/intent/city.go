package intent

import (
	"errors"
	"strings"
)

// ErrCityNotResolved is returned when neither the extractor nor the keyword
// list yields a known city.
var ErrCityNotResolved = errors.New("intent: city not resolved")

// CityResolver confirms a city from extractor output, falling back to the
// gazetteer.
type CityResolver struct {
	gazetteer *Gazetteer
}

func NewCityResolver(g *Gazetteer) (*CityResolver, error) {
	if g == nil || g.Len() == 0 {
		return nil, errors.New("intent: gazetteer must not be empty")
	}
	return &CityResolver{gazetteer: g}, nil
}

// Resolve returns the extracted city unchanged when present. Otherwise the
// first keyword (in order) that exactly matches a gazetteer entry becomes the
// city and is removed from the returned keyword list. The input slice is
// never modified.
func (r *CityResolver) Resolve(extracted *string, keywords []string) (string, []string, error) {
	if extracted != nil && strings.TrimSpace(*extracted) != "" {
		return *extracted, keywords, nil
	}
	for i, kw := range keywords {
		city, ok := r.gazetteer.Lookup(kw)
		if !ok {
			continue
		}
		remaining := make([]string, 0, len(keywords)-1)
		remaining = append(remaining, keywords[:i]...)
		remaining = append(remaining, keywords[i+1:]...)
		return city, remaining, nil
	}
	return "", keywords, ErrCityNotResolved
}
