package pinned

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"travel-assistant/internal/domain"
)

const (
	eventsFile    = "pinned_events.json"
	locationsFile = "pinned_locations.json"
)

type eventsDoc struct {
	PinnedEvents []domain.Event `json:"pinned_events"`
}

type locationsDoc struct {
	PinnedLocations []domain.Location `json:"pinned_locations"`
}

// FileStore keeps curated entries in two JSON documents under one
// directory. Writes go to a temp file and are renamed into place.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates dir when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("pinned: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pinned: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) SaveEvent(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc eventsDoc
	if err := s.load(eventsFile, &doc); err != nil {
		return err
	}
	doc.PinnedEvents = upsert(doc.PinnedEvents, ev, func(e domain.Event) string { return e.ID })
	return s.save(eventsFile, doc)
}

func (s *FileStore) ListEvents(_ context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc eventsDoc
	if err := s.load(eventsFile, &doc); err != nil {
		return nil, err
	}
	return doc.PinnedEvents, nil
}

func (s *FileStore) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc eventsDoc
	if err := s.load(eventsFile, &doc); err != nil {
		return err
	}
	kept, ok := remove(doc.PinnedEvents, id, func(e domain.Event) string { return e.ID })
	if !ok {
		return ErrNotFound
	}
	doc.PinnedEvents = kept
	return s.save(eventsFile, doc)
}

func (s *FileStore) SaveLocation(_ context.Context, loc domain.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc locationsDoc
	if err := s.load(locationsFile, &doc); err != nil {
		return err
	}
	doc.PinnedLocations = upsert(doc.PinnedLocations, loc, func(l domain.Location) string { return l.ID })
	return s.save(locationsFile, doc)
}

func (s *FileStore) ListLocations(_ context.Context) ([]domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc locationsDoc
	if err := s.load(locationsFile, &doc); err != nil {
		return nil, err
	}
	return doc.PinnedLocations, nil
}

func (s *FileStore) DeleteLocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc locationsDoc
	if err := s.load(locationsFile, &doc); err != nil {
		return err
	}
	kept, ok := remove(doc.PinnedLocations, id, func(l domain.Location) string { return l.ID })
	if !ok {
		return ErrNotFound
	}
	doc.PinnedLocations = kept
	return s.save(locationsFile, doc)
}

// load leaves v untouched when the file does not exist yet.
func (s *FileStore) load(name string, v any) error {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pinned: read %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("pinned: decode %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) save(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("pinned: encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("pinned: write %s: %w", name, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("pinned: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("pinned: write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("pinned: write %s: %w", name, err)
	}
	return nil
}

func upsert[T any](items []T, item T, id func(T) string) []T {
	for i := range items {
		if id(items[i]) == id(item) {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func remove[T any](items []T, target string, id func(T) string) ([]T, bool) {
	out := items[:0]
	found := false
	for _, it := range items {
		if id(it) == target {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}
