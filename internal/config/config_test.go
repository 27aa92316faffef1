package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envOf(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envOf(nil))
	require.NoError(t, err)

	require.Equal(t, BackendMemory, cfg.SessionBackend)
	require.Equal(t, BackendFile, cfg.PinnedBackend)
	require.Equal(t, "data", cfg.PinnedDir)
	require.Equal(t, "data", cfg.DataDir)
	require.Equal(t, "http://localhost:1234/v1", cfg.LLMBaseURL)
	require.Equal(t, "local-model", cfg.LLMModel)
	require.Equal(t, 30*time.Second, cfg.LLMTimeout)
	require.Equal(t, 8*time.Second, cfg.ProviderTimeout)
	require.Equal(t, time.Hour, cfg.SessionIdleTTL)
	require.Equal(t, 6, cfg.MaxContextItems)
	require.Equal(t, 500, cfg.MaxQueryLength)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 5, cfg.WalkingMinutes)
	require.False(t, cfg.UsesDynamoDB())
	require.False(t, cfg.UsesSSM())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(envOf(map[string]string{
		"SESSION_BACKEND":   "DynamoDB",
		"STATE_TABLE":       "travel-state",
		"PARAM_PREFIX":      "/travel/prod/",
		"LLM_TIMEOUT":       "12s",
		"SESSION_IDLE_TTL":  "30m",
		"MAX_CONTEXT_ITEMS": "10",
		"OVERPASS_URL":      " http://overpass.local/api ",
	}))
	require.NoError(t, err)

	require.Equal(t, BackendDynamoDB, cfg.SessionBackend)
	require.Equal(t, "travel-state", cfg.StateTable)
	require.Equal(t, "/travel/prod", cfg.ParamPrefix)
	require.Equal(t, 12*time.Second, cfg.LLMTimeout)
	require.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	require.Equal(t, 10, cfg.MaxContextItems)
	require.Equal(t, "http://overpass.local/api", cfg.OverpassURL)
	require.True(t, cfg.UsesDynamoDB())
	require.True(t, cfg.UsesSSM())
}

func TestLoadFrom_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown session backend": {"SESSION_BACKEND": "redis"},
		"unknown pinned backend":  {"PINNED_BACKEND": "s3"},
		"dynamodb without table":  {"PINNED_BACKEND": "dynamodb"},
		"bad duration":            {"PROVIDER_TIMEOUT": "soon"},
		"negative integer":        {"MAX_QUERY_LENGTH": "-1"},
		"non-numeric integer":     {"OPENTRIPMAP_WALKING_MINUTES": "five"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(envOf(env))
			require.Error(t, err)
		})
	}
}
