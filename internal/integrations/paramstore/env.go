package paramstore

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvGetter reads parameters from environment variables. The parameter
// "ticketmaster-api-key" maps to TICKETMASTER_API_KEY.
type EnvGetter struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// EnvName returns the environment variable backing a parameter name.
func EnvName(name string) string {
	name = strings.Trim(strings.TrimSpace(name), "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

func (g EnvGetter) GetParameter(_ context.Context, name string) (string, error) {
	lookup := g.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	key := EnvName(name)
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("paramstore: environment variable %s is not set", key)
	}
	return strings.TrimSpace(v), nil
}
