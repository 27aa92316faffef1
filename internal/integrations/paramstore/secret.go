package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Decoder turns a raw parameter value into the secret.
type Decoder func(raw string) (string, error)

// Plain trims the raw value.
func Plain(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", errors.New("paramstore: secret is empty")
	}
	return v, nil
}

// JSONToken extracts the "token" field of a {"token": "..."} document.
func JSONToken(raw string) (string, error) {
	var tp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("paramstore: API token is empty")
	}
	return tp.Token, nil
}

// Secret fetches a parameter on first use and caches it for the life of the
// process. A failed fetch is not cached; the next call tries again.
type Secret struct {
	getter Getter
	name   string
	decode Decoder

	mu    sync.Mutex
	value string
	ok    bool
}

// NewSecret returns a lazily resolved secret. A nil decode means Plain.
func NewSecret(getter Getter, name string, decode Decoder) *Secret {
	if decode == nil {
		decode = Plain
	}
	return &Secret{getter: getter, name: strings.TrimSpace(name), decode: decode}
}

// Static wraps an already known value.
func Static(value string) *Secret {
	return &Secret{value: value, ok: true}
}

// Value returns the cached secret, fetching it when needed.
func (s *Secret) Value(ctx context.Context) (string, error) {
	if s == nil {
		return "", errors.New("paramstore: secret is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ok {
		return s.value, nil
	}
	if s.getter == nil {
		return "", errors.New("paramstore: getter is nil")
	}
	if s.name == "" {
		return "", errors.New("paramstore: secret name is empty")
	}
	raw, err := s.getter.GetParameter(ctx, s.name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch %s: %w", s.name, err)
	}
	v, err := s.decode(raw)
	if err != nil {
		return "", err
	}
	s.value, s.ok = v, true
	return v, nil
}
