// Package config reads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendDynamoDB = "dynamodb"
)

// Config contains runtime configuration required by the service. Empty
// provider URLs mean the provider's public endpoint.
type Config struct {
	SessionBackend string
	PinnedBackend  string
	StateTable     string
	PinnedDir      string
	DataDir        string
	ParamPrefix    string

	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration

	ProviderTimeout time.Duration
	SessionIdleTTL  time.Duration
	MaxContextItems int
	MaxQueryLength  int
	HTTPAddr        string

	TicketmasterBaseURL string
	OpenTripMapBaseURL  string
	OverpassURL         string
	OpenWeatherBaseURL  string
	WalkingMinutes      int
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}
	cfg := Config{
		SessionBackend: strings.ToLower(r.str("SESSION_BACKEND", BackendMemory)),
		PinnedBackend:  strings.ToLower(r.str("PINNED_BACKEND", BackendFile)),
		StateTable:     r.str("STATE_TABLE", ""),
		PinnedDir:      r.str("PINNED_DIR", "data"),
		DataDir:        r.str("DATA_DIR", "data"),
		ParamPrefix:    strings.TrimRight(r.str("PARAM_PREFIX", ""), "/"),

		LLMBaseURL: r.str("LLM_BASE_URL", "http://localhost:1234/v1"),
		LLMModel:   r.str("LLM_MODEL", "local-model"),
		LLMTimeout: r.duration("LLM_TIMEOUT", 30*time.Second),

		ProviderTimeout: r.duration("PROVIDER_TIMEOUT", 8*time.Second),
		SessionIdleTTL:  r.duration("SESSION_IDLE_TTL", time.Hour),
		MaxContextItems: r.integer("MAX_CONTEXT_ITEMS", 6),
		MaxQueryLength:  r.integer("MAX_QUERY_LENGTH", 500),
		HTTPAddr:        r.str("HTTP_ADDR", ":8080"),

		TicketmasterBaseURL: r.str("TICKETMASTER_BASE_URL", ""),
		OpenTripMapBaseURL:  r.str("OPENTRIPMAP_BASE_URL", ""),
		OverpassURL:         r.str("OVERPASS_URL", ""),
		OpenWeatherBaseURL:  r.str("OPENWEATHER_BASE_URL", ""),
		WalkingMinutes:      r.integer("OPENTRIPMAP_WALKING_MINUTES", 5),
	}
	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SessionBackend != BackendMemory && c.SessionBackend != BackendDynamoDB {
		return fmt.Errorf("config: SESSION_BACKEND must be %q or %q", BackendMemory, BackendDynamoDB)
	}
	if c.PinnedBackend != BackendFile && c.PinnedBackend != BackendDynamoDB {
		return fmt.Errorf("config: PINNED_BACKEND must be %q or %q", BackendFile, BackendDynamoDB)
	}
	if c.UsesDynamoDB() && c.StateTable == "" {
		return errors.New("config: STATE_TABLE required for the dynamodb backend")
	}
	if c.LLMModel == "" {
		return errors.New("config: LLM_MODEL must not be empty")
	}
	return nil
}

// UsesDynamoDB reports whether any store lives in DynamoDB.
func (c Config) UsesDynamoDB() bool {
	return c.SessionBackend == BackendDynamoDB || c.PinnedBackend == BackendDynamoDB
}

// UsesSSM reports whether secrets come from Parameter Store.
func (c Config) UsesSSM() bool {
	return c.ParamPrefix != ""
}

type reader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *reader) str(key, def string) string {
	v, ok := r.lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return def
	}
	return v
}

func (r *reader) integer(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.errs = append(r.errs, fmt.Errorf("config: %s must be a positive integer, got %q", key, v))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.errs = append(r.errs, fmt.Errorf("config: %s must be a positive duration, got %q", key, v))
		return def
	}
	return d
}
