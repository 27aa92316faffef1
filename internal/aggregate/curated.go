package aggregate

import (
	"context"
	"fmt"
	"strings"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/pinned"
)

// CuratedPriority is above every priority a provider assigns.
const CuratedPriority = 100

// CuratedSource serves administrator-pinned events that match the query.
type CuratedSource struct {
	store pinned.Store
}

func NewCuratedSource(store pinned.Store) *CuratedSource {
	return &CuratedSource{store: store}
}

func (s *CuratedSource) FetchEvents(ctx context.Context, q domain.QueryContext) ([]domain.Event, error) {
	all, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("curated: list events: %w", err)
	}
	var out []domain.Event
	for _, ev := range all {
		if !CuratedMatch(ev, q) {
			continue
		}
		ev.Priority = CuratedPriority
		ev.Pinned = true
		out = append(out, ev)
	}
	return out, nil
}

// CuratedMatch reports whether a pinned record applies to the query: same
// city, no date or the same day, and no category or a category containing
// one of the keywords.
func CuratedMatch(ev domain.Event, q domain.QueryContext) bool {
	if !domain.EqualFoldTrim(ev.Location, q.City) {
		return false
	}
	if ev.Date != nil && !domain.SameDay(*ev.Date, q.Date) {
		return false
	}
	category := strings.ToLower(strings.TrimSpace(ev.Category))
	if category == "" {
		return true
	}
	for _, kw := range q.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(category, kw) {
			return true
		}
	}
	return false
}
