// Package metrics holds the Prometheus collectors for provider fetches and
// response synthesis.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
	OutcomeSkipped = "skipped"
)

// Synthesis paths.
const (
	PathPrimary  = "primary"
	PathFallback = "fallback"
)

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	fetchTotal   *prometheus.CounterVec
	fetchSeconds *prometheus.HistogramVec
	synthTotal   *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel",
			Name:      "source_fetch_total",
			Help:      "Provider fetches by source and outcome",
		}, []string{"source", "outcome"}),
		fetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "travel",
			Name:      "source_fetch_seconds",
			Help:      "Provider fetch latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"source"}),
		synthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "travel",
			Name:      "synthesis_total",
			Help:      "Responses by synthesis path",
		}, []string{"path"}),
	}
	if reg == nil {
		return r, nil
	}
	var err error
	if r.fetchTotal, err = register(reg, r.fetchTotal); err != nil {
		return nil, err
	}
	if r.fetchSeconds, err = register(reg, r.fetchSeconds); err != nil {
		return nil, err
	}
	if r.synthTotal, err = register(reg, r.synthTotal); err != nil {
		return nil, err
	}
	return r, nil
}

// register returns the already registered collector when one with the same
// descriptor exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveFetch records one provider call. Skipped calls carry no latency.
func (r *Recorder) ObserveFetch(source, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.fetchTotal.WithLabelValues(source, outcome).Inc()
	if outcome != OutcomeSkipped {
		r.fetchSeconds.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}

func (r *Recorder) ObserveSynthesis(path string) {
	if r == nil {
		return
	}
	r.synthTotal.WithLabelValues(path).Inc()
}
