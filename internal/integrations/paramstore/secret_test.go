package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	vals  []string
	errs  []error
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	var (
		v   string
		err error
	)
	if i < len(f.vals) {
		v = f.vals[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return v, err
}

func TestSecret_CachesSuccess(t *testing.T) {
	g := &fakeGetter{vals: []string{"k1", "k2"}}
	s := NewSecret(g, "ticketmaster-api-key", nil)

	v, err := s.Value(context.Background())
	require.NoError(t, err)
	require.Equal(t, "k1", v)
	v, err = s.Value(context.Background())
	require.NoError(t, err)
	require.Equal(t, "k1", v)
	require.Equal(t, 1, g.calls)
}

func TestSecret_RetriesAfterFailure(t *testing.T) {
	g := &fakeGetter{vals: []string{"", "k2"}, errs: []error{errors.New("ssm unavailable"), nil}}
	s := NewSecret(g, "ticketmaster-api-key", nil)

	_, err := s.Value(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm unavailable")

	v, err := s.Value(context.Background())
	require.NoError(t, err)
	require.Equal(t, "k2", v)
	require.Equal(t, 2, g.calls)
}

func TestSecret_JSONToken(t *testing.T) {
	s := NewSecret(&fakeGetter{vals: []string{`{"token":"sk-json"}`}}, "llm-api-key", JSONToken)
	v, err := s.Value(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-json", v)

	_, err = JSONToken(`{"other":"x"}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "API token is empty")

	_, err = JSONToken(`{"broken`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unmarshal")
}

func TestSecret_Guards(t *testing.T) {
	var nilSecret *Secret
	_, err := nilSecret.Value(context.Background())
	require.Error(t, err)

	_, err = NewSecret(nil, "x", nil).Value(context.Background())
	require.Error(t, err)

	_, err = NewSecret(&fakeGetter{}, " ", nil).Value(context.Background())
	require.Error(t, err)

	_, err = NewSecret(&fakeGetter{vals: []string{"  "}}, "x", nil).Value(context.Background())
	require.Error(t, err)

	v, err := Static("fixed").Value(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fixed", v)
}
