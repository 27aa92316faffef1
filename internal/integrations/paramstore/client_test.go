package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut   *ssm.GetParameterOutput
	getErr   error
	lastName string
	lastDec  bool
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastName = *in.Name
	f.lastDec = in.WithDecryption != nil && *in.WithDecryption
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("p"), Value: strPtr("v"), Type: types.ParameterTypeSecureString,
	}}}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "v", v)
	require.True(t, api.lastDec)
}

func TestGetParameter_Prefix(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: strPtr("v")}}}
	client, err := New(api, WithPrefix("/travel-assistant/"))
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "ticketmaster-api-key")
	require.NoError(t, err)
	require.Equal(t, "/travel-assistant/ticketmaster-api-key", api.lastName)

	_, err = client.GetParameter(context.Background(), "/absolute/name")
	require.NoError(t, err)
	require.Equal(t, "/absolute/name", api.lastName)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("boom")}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestEnvGetter(t *testing.T) {
	env := map[string]string{"TICKETMASTER_API_KEY": " tm-key ", "BLANK": " "}
	g := EnvGetter{Lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}

	v, err := g.GetParameter(context.Background(), "ticketmaster-api-key")
	require.NoError(t, err)
	require.Equal(t, "tm-key", v)

	v, err = g.GetParameter(context.Background(), "/prefix/ticketmaster-api-key")
	require.NoError(t, err)
	require.Equal(t, "tm-key", v)

	_, err = g.GetParameter(context.Background(), "blank")
	require.Error(t, err)
	_, err = g.GetParameter(context.Background(), "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "MISSING")
}

func TestEnvName(t *testing.T) {
	require.Equal(t, "LLM_API_KEY", EnvName("llm-api-key"))
	require.Equal(t, "OPENWEATHER_API_KEY", EnvName("/travel/openweather-api-key"))
}
