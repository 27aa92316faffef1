package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/pinned"
)

type fakePinned struct {
	mu        sync.Mutex
	events    map[string]domain.Event
	locations map[string]domain.Location
	err       error
}

func newFakePinned() *fakePinned {
	return &fakePinned{events: map[string]domain.Event{}, locations: map[string]domain.Location{}}
}

func (f *fakePinned) SaveEvent(_ context.Context, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events[ev.ID] = ev
	return nil
}

func (f *fakePinned) ListEvents(context.Context) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Event
	for _, ev := range f.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePinned) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.events[id]; !ok {
		return pinned.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakePinned) SaveLocation(_ context.Context, loc domain.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.locations[loc.ID] = loc
	return nil
}

func (f *fakePinned) ListLocations(context.Context) ([]domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Location
	for _, loc := range f.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePinned) DeleteLocation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.locations[id]; !ok {
		return pinned.ErrNotFound
	}
	delete(f.locations, id)
	return nil
}

func fixUUID(t *testing.T, id string) {
	t.Helper()
	orig := newUUID
	newUUID = func() string { return id }
	t.Cleanup(func() { newUUID = orig })
}

func TestAdmin_PinEventAssignsIDAndPins(t *testing.T) {
	fixUUID(t, "generated-id")
	store := newFakePinned()
	a, err := NewAdminService(store)
	require.NoError(t, err)

	ev, err := a.PinEvent(context.Background(), domain.Event{Name: " Louvre ", Location: "Paris"})
	require.NoError(t, err)
	require.Equal(t, "generated-id", ev.ID)
	require.Equal(t, "Louvre", ev.Name)
	require.True(t, ev.Pinned)
	require.Equal(t, ev, store.events["generated-id"])

	kept, err := a.PinEvent(context.Background(), domain.Event{ID: "own", Name: "Opera", Location: "Rome"})
	require.NoError(t, err)
	require.Equal(t, "own", kept.ID)

	events, err := a.PinnedEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestAdmin_PinEventValidation(t *testing.T) {
	a, err := NewAdminService(newFakePinned())
	require.NoError(t, err)

	_, err = a.PinEvent(context.Background(), domain.Event{Location: "Paris"})
	expectError(t, err, ErrorInvalidInput, "missing_name")
	_, err = a.PinEvent(context.Background(), domain.Event{Name: "Louvre"})
	expectError(t, err, ErrorInvalidInput, "missing_location")
	_, err = a.PinLocation(context.Background(), domain.Location{City: "Paris"})
	expectError(t, err, ErrorInvalidInput, "missing_name")
	_, err = a.PinLocation(context.Background(), domain.Location{Name: "Louvre"})
	expectError(t, err, ErrorInvalidInput, "missing_city")
}

func TestAdmin_UnpinEvent(t *testing.T) {
	store := newFakePinned()
	store.events["x"] = domain.Event{ID: "x", Name: "X", Location: "Paris"}
	a, err := NewAdminService(store)
	require.NoError(t, err)

	require.NoError(t, a.UnpinEvent(context.Background(), "x"))
	require.Empty(t, store.events)

	err = a.UnpinEvent(context.Background(), "x")
	expectError(t, err, ErrorNotFound, "pinned_not_found")

	err = a.UnpinEvent(context.Background(), "")
	expectError(t, err, ErrorInvalidInput, "missing_id")
}

func TestAdmin_Locations(t *testing.T) {
	fixUUID(t, "loc-1")
	a, err := NewAdminService(newFakePinned())
	require.NoError(t, err)
	ctx := context.Background()

	empty, err := a.PinnedLocations(ctx)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)

	loc, err := a.PinLocation(ctx, domain.Location{Name: "Montmartre", City: "Paris"})
	require.NoError(t, err)
	require.Equal(t, "loc-1", loc.ID)

	locs, err := a.PinnedLocations(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Location{loc}, locs)

	require.NoError(t, a.UnpinLocation(ctx, "loc-1"))
	err = a.UnpinLocation(ctx, "loc-1")
	expectError(t, err, ErrorNotFound, "pinned_not_found")
}

func TestAdmin_StoreErrorsAreInternal(t *testing.T) {
	store := newFakePinned()
	store.err = errors.New("disk full")
	a, err := NewAdminService(store)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = a.PinEvent(ctx, domain.Event{Name: "Louvre", Location: "Paris"})
	expectError(t, err, ErrorInternal, "pinned_write_error")
	_, err = a.PinnedEvents(ctx)
	expectError(t, err, ErrorInternal, "pinned_read_error")
	err = a.UnpinLocation(ctx, "x")
	expectError(t, err, ErrorInternal, "pinned_write_error")
}
