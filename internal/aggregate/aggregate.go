// Package aggregate fans a resolved query out to every provider and
// collects whatever comes back. A provider that fails or times out
// contributes an empty result; nothing it does reaches the caller as an
// error.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/metrics"
)

const DefaultTimeout = 8 * time.Second

// Source names used in logs, metrics and the extras map.
const (
	SourceCurated      = "curated"
	SourceTicketmaster = "ticketmaster"
	SourceOpenTripMap  = "opentripmap"
	SourcePOIs         = "pois"
	SourceWeather      = "weather"
)

type EventSource interface {
	FetchEvents(ctx context.Context, q domain.QueryContext) ([]domain.Event, error)
}

type POISource interface {
	FetchPOIs(ctx context.Context, q domain.QueryContext) ([]domain.POI, error)
}

// WeatherSource only knows current conditions.
type WeatherSource interface {
	Current(ctx context.Context, city string) (string, error)
}

type ListSource interface {
	Name() string
	FetchList(ctx context.Context, q domain.QueryContext) ([]string, error)
}

// NamedEvents pairs an event source with the name it reports under.
type NamedEvents struct {
	Name   string
	Source EventSource
}

// Sources lists the providers. Events are given in precedence order; a nil
// POIs or Weather source is skipped.
type Sources struct {
	Events  []NamedEvents
	POIs    POISource
	Weather WeatherSource
	Lists   []ListSource
}

// Outcome is the value-or-failure of one provider call.
type Outcome[T any] struct {
	Source  string
	Value   T
	Err     error
	Status  string
	Elapsed time.Duration
}

// Report is the type-erased part of an Outcome.
type Report struct {
	Source  string
	Status  string
	Err     error
	Elapsed time.Duration
}

func (o Outcome[T]) report() Report {
	return Report{Source: o.Source, Status: o.Status, Err: o.Err, Elapsed: o.Elapsed}
}

// Result holds everything gathered for one query. Events has one list per
// event source in precedence order; Extras maps list source names to their
// values.
type Result struct {
	Events  [][]domain.Event
	Weather string
	POIs    []domain.POI
	Extras  map[string][]string
	Reports []Report
}

type Aggregator struct {
	sources Sources
	timeout time.Duration
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Aggregator)

// WithTimeout bounds every provider call.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(sources Sources, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: sources,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Gather queries all providers concurrently and waits for every one of them
// to succeed, fail or time out.
func (a *Aggregator) Gather(ctx context.Context, q domain.QueryContext) Result {
	events := make([]Outcome[[]domain.Event], len(a.sources.Events))
	lists := make([]Outcome[[]string], len(a.sources.Lists))
	var (
		pois    Outcome[[]domain.POI]
		weather Outcome[string]
	)

	var g errgroup.Group
	for i, src := range a.sources.Events {
		g.Go(func() error {
			events[i] = run(ctx, a, src.Name, q.City, func(ctx context.Context) ([]domain.Event, error) {
				return src.Source.FetchEvents(ctx, q)
			})
			return nil
		})
	}
	for i, src := range a.sources.Lists {
		g.Go(func() error {
			lists[i] = run(ctx, a, src.Name(), q.City, func(ctx context.Context) ([]string, error) {
				return src.FetchList(ctx, q)
			})
			return nil
		})
	}
	if a.sources.POIs != nil {
		g.Go(func() error {
			pois = run(ctx, a, SourcePOIs, q.City, func(ctx context.Context) ([]domain.POI, error) {
				return a.sources.POIs.FetchPOIs(ctx, q)
			})
			return nil
		})
	} else {
		pois = skipped[[]domain.POI](a, SourcePOIs)
	}
	switch {
	case a.sources.Weather == nil:
		weather = skipped[string](a, SourceWeather)
	case !domain.SameDay(q.Date, a.now().In(q.Date.Location())):
		// Only current conditions are available.
		weather = skipped[string](a, SourceWeather)
	default:
		g.Go(func() error {
			weather = run(ctx, a, SourceWeather, q.City, func(ctx context.Context) (string, error) {
				return a.sources.Weather.Current(ctx, q.City)
			})
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Events:  make([][]domain.Event, len(events)),
		Weather: weather.Value,
		POIs:    pois.Value,
		Extras:  make(map[string][]string, len(lists)),
	}
	for i, o := range events {
		res.Events[i] = o.Value
		res.Reports = append(res.Reports, o.report())
	}
	for _, o := range lists {
		res.Extras[o.Source] = o.Value
		res.Reports = append(res.Reports, o.report())
	}
	res.Reports = append(res.Reports, pois.report(), weather.report())
	return res
}

func skipped[T any](a *Aggregator, source string) Outcome[T] {
	a.metrics.ObserveFetch(source, metrics.OutcomeSkipped, 0)
	return Outcome[T]{Source: source, Status: metrics.OutcomeSkipped}
}

// run calls fn under the provider timeout and turns any failure into a zero
// value. fn keeps running in the background if it ignores its context, but
// the caller is released at the deadline.
func run[T any](ctx context.Context, a *Aggregator, source, city string, fn func(context.Context) (T, error)) Outcome[T] {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(cctx)
		ch <- result{v: v, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-cctx.Done():
		r = result{err: cctx.Err()}
	}

	out := Outcome[T]{Source: source, Elapsed: time.Since(start), Status: metrics.OutcomeOK}
	switch {
	case r.err == nil:
		out.Value = r.v
	case errors.Is(r.err, context.DeadlineExceeded) || errors.Is(cctx.Err(), context.DeadlineExceeded):
		out.Err, out.Status = r.err, metrics.OutcomeTimeout
	default:
		out.Err, out.Status = r.err, metrics.OutcomeError
	}
	a.metrics.ObserveFetch(source, out.Status, out.Elapsed)
	if out.Err != nil {
		a.logger.Warn("source degraded to empty",
			"source", source, "city", city, "status", out.Status,
			"err", out.Err, "elapsed", out.Elapsed)
	}
	return out
}
