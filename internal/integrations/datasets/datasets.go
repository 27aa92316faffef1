// Package datasets answers lookups against the static reference CSV files
// shipped with the service.
package datasets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"

	"travel-assistant/internal/domain"
)

// MaxResults caps every lookup.
const MaxResults = 10

// Dataset describes one semicolon separated file: rows whose KeyColumn
// equals the lookup key contribute their ValueColumn.
type Dataset struct {
	Name        string
	File        string
	KeyColumn   string
	ValueColumn string
}

var (
	UnescoSites    = Dataset{Name: "unesco_sites", File: "unesco_sites.csv", KeyColumn: "Country", ValueColumn: "Site Name"}
	HistoricPlaces = Dataset{Name: "historic_places", File: "US_Historic_Places.csv", KeyColumn: "County", ValueColumn: "Resource_Name"}
	HotelsMotels   = Dataset{Name: "hotels_motels", File: "Hotels_Motels_LA.csv", KeyColumn: "City", ValueColumn: "Business_Name"}
)

// Defaults lists the datasets the service ships with.
func Defaults() []Dataset {
	return []Dataset{UnescoSites, HotelsMotels, HistoricPlaces}
}

// Store loads each file on first use and keeps an index by lower-cased key.
// A load failure is not remembered, so a file that appears later is picked
// up.
type Store struct {
	fsys fs.FS

	mu      sync.Mutex
	indexes map[string]map[string][]string
}

func NewStore(fsys fs.FS) (*Store, error) {
	if fsys == nil {
		return nil, errors.New("datasets: filesystem must not be nil")
	}
	return &Store{fsys: fsys, indexes: make(map[string]map[string][]string)}, nil
}

// Lookup returns up to MaxResults values for key in file order.
func (s *Store) Lookup(_ context.Context, ds Dataset, key string) ([]string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil, nil
	}
	idx, err := s.index(ds)
	if err != nil {
		return nil, err
	}
	values := idx[key]
	out := make([]string, len(values))
	copy(out, values)
	return out, nil
}

func (s *Store) index(ds Dataset) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[ds.File]; ok {
		return idx, nil
	}
	idx, err := load(s.fsys, ds)
	if err != nil {
		return nil, err
	}
	s.indexes[ds.File] = idx
	return idx, nil
}

func load(fsys fs.FS, ds Dataset) (map[string][]string, error) {
	f, err := fsys.Open(ds.File)
	if err != nil {
		return nil, fmt.Errorf("datasets: open %s: %w", ds.File, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("datasets: read header of %s: %w", ds.File, err)
	}
	keyCol, valCol := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case ds.KeyColumn:
			keyCol = i
		case ds.ValueColumn:
			valCol = i
		}
	}
	if keyCol < 0 || valCol < 0 {
		return nil, fmt.Errorf("datasets: %s lacks columns %q/%q", ds.File, ds.KeyColumn, ds.ValueColumn)
	}

	idx := make(map[string][]string)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("datasets: read %s: %w", ds.File, err)
		}
		if keyCol >= len(rec) || valCol >= len(rec) {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(rec[keyCol]))
		v := strings.TrimSpace(rec[valCol])
		if k == "" || v == "" || len(idx[k]) >= MaxResults {
			continue
		}
		idx[k] = append(idx[k], v)
	}
	return idx, nil
}

// Source binds one dataset to the store and looks it up by city.
type Source struct {
	store *Store
	ds    Dataset
}

func (s *Store) Source(ds Dataset) Source {
	return Source{store: s, ds: ds}
}

func (src Source) Name() string {
	return src.ds.Name
}

func (src Source) FetchList(ctx context.Context, q domain.QueryContext) ([]string, error) {
	return src.store.Lookup(ctx, src.ds, q.City)
}
