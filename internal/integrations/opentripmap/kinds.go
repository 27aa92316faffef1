package opentripmap

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed kinds.yaml
var kindsYAML []byte

type kindsDoc struct {
	Kinds []string `yaml:"kinds"`
}

// KindSet is the whitelist of object categories the places API accepts.
type KindSet map[string]struct{}

// ParseKinds decodes a YAML document with a top-level "kinds" list.
func ParseKinds(raw []byte) (KindSet, error) {
	var doc kindsDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("opentripmap: decode kinds: %w", err)
	}
	set := make(KindSet, len(doc.Kinds))
	for _, k := range doc.Kinds {
		if k = normalizeKind(k); k != "" {
			set[k] = struct{}{}
		}
	}
	return set, nil
}

// DefaultKinds returns the embedded whitelist.
func DefaultKinds() KindSet {
	set, err := ParseKinds(kindsYAML)
	if err != nil {
		panic(err)
	}
	return set
}

func normalizeKind(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), " ", "_")
}

// Filter keeps the requested kinds that are on the whitelist, trying the
// plural form for singular keywords ("museum" -> "museums"). Order is kept
// and duplicates are dropped.
func (s KindSet) Filter(requested []string) (valid, dropped []string) {
	seen := make(map[string]bool)
	for _, r := range requested {
		k := normalizeKind(r)
		if k == "" {
			continue
		}
		match := ""
		if _, ok := s[k]; ok {
			match = k
		} else if _, ok := s[k+"s"]; ok {
			match = k + "s"
		}
		if match == "" {
			dropped = append(dropped, r)
			continue
		}
		if !seen[match] {
			seen[match] = true
			valid = append(valid, match)
		}
	}
	return valid, dropped
}
