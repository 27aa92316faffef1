// Package rank merges event lists from several sources into one ordered,
// duplicate-free list.
package rank

import (
	"sort"

	"travel-assistant/internal/domain"
)

// Merge concatenates lists in source-precedence order, drops every event
// whose id was already seen in an earlier position, and stable-sorts the
// remainder with Less. An id collision keeps the copy from the earlier
// source even when a later copy would sort higher.
func Merge(lists ...[]domain.Event) []domain.Event {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make([]domain.Event, 0, total)
	seen := make(map[string]struct{}, total)
	for _, l := range lists {
		for _, ev := range l {
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			seen[ev.ID] = struct{}{}
			out = append(out, ev)
		}
	}
	Sort(out)
	return out
}

// Sort orders events in place by Less. It is stable, so applying it to an
// already ranked list is a no-op.
func Sort(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return Less(events[i], events[j])
	})
}

// Less is the ranking order: pinned first, then higher priority, then
// earlier date. Undated events sort after every dated event of the same tier.
func Less(a, b domain.Event) bool {
	if a.Pinned != b.Pinned {
		return a.Pinned
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	switch {
	case a.Date == nil && b.Date == nil:
		return false
	case a.Date == nil:
		return false
	case b.Date == nil:
		return true
	default:
		return a.Date.Before(*b.Date)
	}
}
