package intent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestResolver(t *testing.T) *CityResolver {
	t.Helper()
	r, err := NewCityResolver(NewGazetteer("Paris", "London", "New York"))
	require.NoError(t, err)
	return r
}

func TestNewCityResolver_RejectsEmptyGazetteer(t *testing.T) {
	_, err := NewCityResolver(nil)
	require.Error(t, err)

	_, err = NewCityResolver(NewGazetteer())
	require.Error(t, err)
}

func TestResolve_ExtractedCityReturnedUnchanged(t *testing.T) {
	r := newTestResolver(t)
	keywords := []string{"Paris", "museum"}

	city, remaining, err := r.Resolve(strPtr("Gotham"), keywords)
	require.NoError(t, err)
	require.Equal(t, "Gotham", city)
	require.Equal(t, keywords, remaining)
}

func TestResolve_FallsBackToGazetteer(t *testing.T) {
	r := newTestResolver(t)

	city, remaining, err := r.Resolve(nil, []string{"Paris", "museum"})
	require.NoError(t, err)
	require.Equal(t, "Paris", city)
	require.Equal(t, []string{"museum"}, remaining)
}

func TestResolve_CaseInsensitiveTrimmedCanonicalForm(t *testing.T) {
	r := newTestResolver(t)

	city, remaining, err := r.Resolve(strPtr("  "), []string{"jazz", "  pARIS ", "museum"})
	require.NoError(t, err)
	require.Equal(t, "Paris", city)
	require.Equal(t, []string{"jazz", "museum"}, remaining)
}

func TestResolve_FirstMatchWinsAndRemovesOnlyThatToken(t *testing.T) {
	r := newTestResolver(t)
	keywords := []string{"london", "paris", "london"}

	city, remaining, err := r.Resolve(nil, keywords)
	require.NoError(t, err)
	require.Equal(t, "London", city)
	require.Equal(t, []string{"paris", "london"}, remaining)
	require.Equal(t, []string{"london", "paris", "london"}, keywords, "input must not be mutated")
}

func TestResolve_NoSubstringMatching(t *testing.T) {
	r := newTestResolver(t)

	_, remaining, err := r.Resolve(nil, []string{"Parisian", "museum"})
	require.True(t, errors.Is(err, ErrCityNotResolved))
	require.Equal(t, []string{"Parisian", "museum"}, remaining)
}

func TestDefaultGazetteer_Loads(t *testing.T) {
	g := DefaultGazetteer()
	require.Greater(t, g.Len(), 50)
	city, ok := g.Lookup("paris")
	require.True(t, ok)
	require.Equal(t, "Paris", city)
	city, ok = g.Lookup("new   york")
	require.True(t, ok)
	require.Equal(t, "New York", city)
}

func TestParseGazetteer(t *testing.T) {
	g, err := ParseGazetteer([]byte("cities:\n  - Ghent\n  - Bruges\n"))
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())

	_, err = ParseGazetteer([]byte("cities: []\n"))
	require.Error(t, err)

	_, err = ParseGazetteer([]byte("cities: [unterminated"))
	require.Error(t, err)
}
