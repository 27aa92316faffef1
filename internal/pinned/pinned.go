// Package pinned stores administrator-curated events and locations.
package pinned

import (
	"context"
	"errors"

	"travel-assistant/internal/domain"
)

// ErrNotFound is returned when unpinning an id that is not stored.
var ErrNotFound = errors.New("pinned: not found")

// Store persists curated entries. Saving an entry with an existing id
// replaces it.
type Store interface {
	SaveEvent(ctx context.Context, ev domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	SaveLocation(ctx context.Context, loc domain.Location) error
	ListLocations(ctx context.Context) ([]domain.Location, error)
	DeleteLocation(ctx context.Context, id string) error
}
