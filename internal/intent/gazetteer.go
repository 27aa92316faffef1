package intent

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed gazetteer.yaml
var gazetteerYAML []byte

type gazetteerFile struct {
	Cities []string `yaml:"cities"`
}

// Gazetteer is a static set of known city names keyed by their
// lower-cased, trimmed form.
type Gazetteer struct {
	canonical map[string]string
	maxWords  int
}

// NewGazetteer builds a gazetteer from canonical city names.
func NewGazetteer(names ...string) *Gazetteer {
	g := &Gazetteer{canonical: make(map[string]string, len(names))}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		g.canonical[normalizeName(name)] = name
		if n := len(strings.Fields(name)); n > g.maxWords {
			g.maxWords = n
		}
	}
	return g
}

// ParseGazetteer decodes a YAML document with a top-level `cities` list.
func ParseGazetteer(raw []byte) (*Gazetteer, error) {
	var f gazetteerFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("intent: decode gazetteer: %w", err)
	}
	if len(f.Cities) == 0 {
		return nil, errors.New("intent: gazetteer has no cities")
	}
	return NewGazetteer(f.Cities...), nil
}

var (
	defaultOnce      sync.Once
	defaultGazetteer *Gazetteer
)

// DefaultGazetteer returns the embedded gazetteer. The embedded document is
// part of the binary, so a decode failure is a build defect and panics.
func DefaultGazetteer() *Gazetteer {
	defaultOnce.Do(func() {
		g, err := ParseGazetteer(gazetteerYAML)
		if err != nil {
			panic(err)
		}
		defaultGazetteer = g
	})
	return defaultGazetteer
}

// Lookup returns the canonical city name for token, if known.
func (g *Gazetteer) Lookup(token string) (string, bool) {
	if g == nil {
		return "", false
	}
	name, ok := g.canonical[normalizeName(token)]
	return name, ok
}

// Len returns the number of known cities.
func (g *Gazetteer) Len() int {
	if g == nil {
		return 0
	}
	return len(g.canonical)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
