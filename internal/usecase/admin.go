package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/pinned"
)

// AdminService manages curated events and locations.
type AdminService struct {
	store pinned.Store
}

func NewAdminService(store pinned.Store) (*AdminService, error) {
	if store == nil {
		return nil, errors.New("usecase: pinned store must not be nil")
	}
	return &AdminService{store: store}, nil
}

// PinEvent stores ev, assigning an id when none is given. Pinned events are
// always stored as pinned; their priority is applied when they are served.
func (a *AdminService) PinEvent(ctx context.Context, ev domain.Event) (domain.Event, error) {
	ev.ID = strings.TrimSpace(ev.ID)
	ev.Name = strings.TrimSpace(ev.Name)
	ev.Location = strings.TrimSpace(ev.Location)
	if ev.Name == "" {
		return domain.Event{}, newError(ErrorInvalidInput, "missing_name", nil)
	}
	if ev.Location == "" {
		return domain.Event{}, newError(ErrorInvalidInput, "missing_location", nil)
	}
	if ev.ID == "" {
		ev.ID = newUUID()
	}
	ev.Pinned = true
	if err := a.store.SaveEvent(ctx, ev); err != nil {
		return domain.Event{}, newError(ErrorInternal, "pinned_write_error", err)
	}
	return ev, nil
}

func (a *AdminService) PinnedEvents(ctx context.Context) ([]domain.Event, error) {
	events, err := a.store.ListEvents(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "pinned_read_error", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}

func (a *AdminService) UnpinEvent(ctx context.Context, id string) error {
	return deletePinned(ctx, id, a.store.DeleteEvent)
}

func (a *AdminService) PinLocation(ctx context.Context, loc domain.Location) (domain.Location, error) {
	loc.ID = strings.TrimSpace(loc.ID)
	loc.Name = strings.TrimSpace(loc.Name)
	loc.City = strings.TrimSpace(loc.City)
	if loc.Name == "" {
		return domain.Location{}, newError(ErrorInvalidInput, "missing_name", nil)
	}
	if loc.City == "" {
		return domain.Location{}, newError(ErrorInvalidInput, "missing_city", nil)
	}
	if loc.ID == "" {
		loc.ID = newUUID()
	}
	if err := a.store.SaveLocation(ctx, loc); err != nil {
		return domain.Location{}, newError(ErrorInternal, "pinned_write_error", err)
	}
	return loc, nil
}

func (a *AdminService) PinnedLocations(ctx context.Context) ([]domain.Location, error) {
	locs, err := a.store.ListLocations(ctx)
	if err != nil {
		return nil, newError(ErrorInternal, "pinned_read_error", err)
	}
	if locs == nil {
		locs = []domain.Location{}
	}
	return locs, nil
}

func (a *AdminService) UnpinLocation(ctx context.Context, id string) error {
	return deletePinned(ctx, id, a.store.DeleteLocation)
}

func deletePinned(ctx context.Context, id string, del func(context.Context, string) error) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return newError(ErrorInvalidInput, "missing_id", nil)
	}
	err := del(ctx, id)
	if errors.Is(err, pinned.ErrNotFound) {
		return newError(ErrorNotFound, "pinned_not_found", err)
	}
	if err != nil {
		return newError(ErrorInternal, "pinned_write_error", err)
	}
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}
