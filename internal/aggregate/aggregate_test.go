package aggregate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/metrics"
)

var today = time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

type mockEvents struct {
	events []domain.Event
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (m *mockEvents) FetchEvents(ctx context.Context, _ domain.QueryContext) ([]domain.Event, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.events, m.err
}

// stubborn ignores its context entirely.
type stubborn struct{ release chan struct{} }

func (s stubborn) FetchEvents(context.Context, domain.QueryContext) ([]domain.Event, error) {
	<-s.release
	return []domain.Event{{ID: "late"}}, nil
}

type panicking struct{}

func (panicking) FetchEvents(context.Context, domain.QueryContext) ([]domain.Event, error) {
	panic("boom")
}

type mockWeather struct {
	text  string
	err   error
	calls atomic.Int32
}

func (m *mockWeather) Current(context.Context, string) (string, error) {
	m.calls.Add(1)
	return m.text, m.err
}

type mockPOIs struct {
	pois []domain.POI
	err  error
}

func (m *mockPOIs) FetchPOIs(context.Context, domain.QueryContext) ([]domain.POI, error) {
	return m.pois, m.err
}

type mockList struct {
	name   string
	values []string
	err    error
}

func (m *mockList) Name() string { return m.name }
func (m *mockList) FetchList(context.Context, domain.QueryContext) ([]string, error) {
	return m.values, m.err
}

func paris(date time.Time) domain.QueryContext {
	return domain.QueryContext{City: "Paris", Date: date, Keywords: []string{"museums"}}
}

func TestGather_CollectsAllSourcesInPrecedenceOrder(t *testing.T) {
	a := New(Sources{
		Events: []NamedEvents{
			{Name: SourceCurated, Source: &mockEvents{events: []domain.Event{{ID: "pin"}}}},
			{Name: SourceTicketmaster, Source: &mockEvents{events: []domain.Event{{ID: "tm"}}, delay: 20 * time.Millisecond}},
			{Name: SourceOpenTripMap, Source: &mockEvents{events: []domain.Event{{ID: "otm"}}}},
		},
		POIs:    &mockPOIs{pois: []domain.POI{{Name: "Cafe"}}},
		Weather: &mockWeather{text: "Current weather in Paris: Clear sky, Temp: 20°C"},
		Lists:   []ListSource{&mockList{name: "unesco_sites", values: []string{"Banks of the Seine"}}},
	}, WithClock(clockAt(today.Add(10*time.Hour))))

	res := a.Gather(context.Background(), paris(today))
	require.Len(t, res.Events, 3)
	require.Equal(t, "pin", res.Events[0][0].ID)
	require.Equal(t, "tm", res.Events[1][0].ID)
	require.Equal(t, "otm", res.Events[2][0].ID)
	require.Equal(t, "Current weather in Paris: Clear sky, Temp: 20°C", res.Weather)
	require.Equal(t, []domain.POI{{Name: "Cafe"}}, res.POIs)
	require.Equal(t, []string{"Banks of the Seine"}, res.Extras["unesco_sites"])
	for _, r := range res.Reports {
		require.Equal(t, metrics.OutcomeOK, r.Status, r.Source)
	}
}

func TestGather_FailureDegradesToEmpty(t *testing.T) {
	a := New(Sources{
		Events: []NamedEvents{
			{Name: SourceTicketmaster, Source: &mockEvents{err: errors.New("502")}},
			{Name: SourceOpenTripMap, Source: &mockEvents{events: []domain.Event{{ID: "otm"}}}},
		},
		POIs:  &mockPOIs{err: errors.New("busy")},
		Lists: []ListSource{&mockList{name: "hotels_motels", err: errors.New("missing file")}},
	}, WithClock(clockAt(today)))

	res := a.Gather(context.Background(), paris(today))
	require.Empty(t, res.Events[0])
	require.Equal(t, "otm", res.Events[1][0].ID)
	require.Empty(t, res.POIs)
	require.Contains(t, res.Extras, "hotels_motels")
	require.Empty(t, res.Extras["hotels_motels"])

	statuses := map[string]string{}
	for _, r := range res.Reports {
		statuses[r.Source] = r.Status
	}
	require.Equal(t, metrics.OutcomeError, statuses[SourceTicketmaster])
	require.Equal(t, metrics.OutcomeOK, statuses[SourceOpenTripMap])
	require.Equal(t, metrics.OutcomeError, statuses[SourcePOIs])
	require.Equal(t, metrics.OutcomeSkipped, statuses[SourceWeather])
}

func TestGather_TimeoutDoesNotBlockOthers(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	a := New(Sources{
		Events: []NamedEvents{
			{Name: "slow", Source: &mockEvents{events: []domain.Event{{ID: "slow"}}, delay: time.Second}},
			{Name: "stubborn", Source: stubborn{release: release}},
			{Name: "fast", Source: &mockEvents{events: []domain.Event{{ID: "fast"}}}},
		},
	}, WithTimeout(30*time.Millisecond), WithMetrics(m), WithClock(clockAt(today)))

	start := time.Now()
	res := a.Gather(context.Background(), paris(today))
	require.Less(t, time.Since(start), 500*time.Millisecond)

	require.Empty(t, res.Events[0])
	require.Empty(t, res.Events[1])
	require.Equal(t, "fast", res.Events[2][0].ID)
	require.Equal(t, metrics.OutcomeTimeout, res.Reports[0].Status)
	require.Equal(t, metrics.OutcomeTimeout, res.Reports[1].Status)

	require.Equal(t, 1.0, fetchCount(t, reg, "slow", metrics.OutcomeTimeout))
	require.Equal(t, 1.0, fetchCount(t, reg, "stubborn", metrics.OutcomeTimeout))
	require.Equal(t, 1.0, fetchCount(t, reg, "fast", metrics.OutcomeOK))
}

func fetchCount(t *testing.T, reg *prometheus.Registry, source, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "travel_source_fetch_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["source"] == source && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestGather_PanicIsContained(t *testing.T) {
	a := New(Sources{
		Events: []NamedEvents{
			{Name: "bad", Source: panicking{}},
			{Name: "good", Source: &mockEvents{events: []domain.Event{{ID: "ok"}}}},
		},
	}, WithClock(clockAt(today)))

	res := a.Gather(context.Background(), paris(today))
	require.Empty(t, res.Events[0])
	require.Equal(t, "ok", res.Events[1][0].ID)
	require.Equal(t, metrics.OutcomeError, res.Reports[0].Status)
	require.Contains(t, res.Reports[0].Err.Error(), "panic")
}

func TestGather_WeatherOnlyForToday(t *testing.T) {
	w := &mockWeather{text: "Current weather in Paris: Rain, Temp: 9°C"}
	a := New(Sources{Weather: w}, WithClock(clockAt(today.Add(23*time.Hour))))

	res := a.Gather(context.Background(), paris(today.AddDate(0, 0, 1)))
	require.Empty(t, res.Weather)
	require.EqualValues(t, 0, w.calls.Load())

	res = a.Gather(context.Background(), paris(today))
	require.Equal(t, "Current weather in Paris: Rain, Temp: 9°C", res.Weather)
	require.EqualValues(t, 1, w.calls.Load())
}

func TestGather_NoSources(t *testing.T) {
	res := New(Sources{}).Gather(context.Background(), paris(today))
	require.Empty(t, res.Events)
	require.Empty(t, res.Weather)
	require.Len(t, res.Reports, 2)
}
