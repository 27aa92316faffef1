// Package synth turns the ranked events and gathered context into the reply
// text. A generative backend writes the reply; when it fails, a fixed
// template does.
package synth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"travel-assistant/internal/domain"
	"travel-assistant/internal/metrics"
	"travel-assistant/internal/rank"
)

const (
	DefaultTimeout = 30 * time.Second

	noEventsText       = "It seems like there are no events scheduled for now. Maybe take the opportunity to relax or explore something spontaneous!"
	eventsHeader       = "Here are some events you might enjoy:"
	maxBulletDescChars = 200
)

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

// Input is everything the reply may draw on. Events are expected in ranked
// order.
type Input struct {
	Query   string
	Context domain.QueryContext
	Events  []domain.Event
	Weather string
	POIs    []domain.POI
	Extras  map[string][]string
	History []domain.ChatTurn
}

type Synthesizer struct {
	llm     LLMClient
	model   string
	timeout time.Duration
	metrics *metrics.Recorder
	logger  *slog.Logger
}

type Option func(*Synthesizer)

func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Synthesizer) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Synthesizer. With a nil llm every reply uses the template.
func New(llm LLMClient, model string, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		llm:     llm,
		model:   model,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize never fails: any backend error yields the template reply.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) string {
	if s.llm != nil {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		start := time.Now()
		text, err := s.llm.Chat(cctx, s.model, buildPromptMessages(in))
		cancel()
		if err == nil && strings.TrimSpace(text) != "" {
			s.metrics.ObserveSynthesis(metrics.PathPrimary)
			return strings.TrimSpace(text)
		}
		s.logger.Warn("generation failed, using template reply",
			"city", in.Context.City, "err", err, "elapsed", time.Since(start))
	}
	s.metrics.ObserveSynthesis(metrics.PathFallback)
	return Fallback(in.Events, in.Weather)
}

// Fallback renders the template reply: a weather line, then one bullet per
// event in ranked order.
func Fallback(events []domain.Event, weather string) string {
	ranked := make([]domain.Event, len(events))
	copy(ranked, events)
	rank.Sort(ranked)

	var b strings.Builder
	if w := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(weather), ".")); w != "" {
		b.WriteString("The weather for the day is expected to be: " + w + ".\n\n")
	} else {
		b.WriteString("No weather information is available for the day.\n\n")
	}
	if len(ranked) == 0 {
		b.WriteString(noEventsText)
		return b.String()
	}
	b.WriteString(eventsHeader)
	for _, ev := range ranked {
		b.WriteString("\n- ")
		b.WriteString(eventLine(ev))
	}
	return b.String()
}

// eventLine renders name, then location, date and description when present.
func eventLine(ev domain.Event) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(ev.Name))
	if loc := strings.TrimSpace(ev.Location); loc != "" {
		b.WriteString(" at " + loc)
	}
	if ev.Date != nil && !ev.Date.IsZero() {
		b.WriteString(" on " + formatWhen(*ev.Date))
	}
	if desc := flatten(ev.Description); desc != "" {
		b.WriteString(" - " + clip(desc, maxBulletDescChars))
	}
	return b.String()
}

// formatWhen omits the clock for dates without a time of day.
func formatWhen(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("Monday, January 2")
	}
	return t.Format("Monday, January 2 at 3:04 PM")
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
