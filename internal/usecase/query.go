package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"travel-assistant/internal/aggregate"
	"travel-assistant/internal/domain"
	"travel-assistant/internal/intent"
	"travel-assistant/internal/rank"
	"travel-assistant/internal/session"
	"travel-assistant/internal/synth"
)

const (
	defaultMaxContext = 6
	defaultMaxQuery   = 500

	cityNotResolvedText = "You seem to have not provided the city or date correctly. Please double check it"
)

type Extractor interface {
	Extract(ctx context.Context, text string) (domain.Extraction, error)
}

type CityResolver interface {
	Resolve(extracted *string, keywords []string) (string, []string, error)
}

type DateNormalizer interface {
	Normalize(text *string) time.Time
}

type Gatherer interface {
	Gather(ctx context.Context, q domain.QueryContext) aggregate.Result
}

type Synthesizer interface {
	Synthesize(ctx context.Context, in synth.Input) string
}

// QueryDeps are the collaborators of a QueryService. Logger may be nil.
type QueryDeps struct {
	Extractor   Extractor
	Cities      CityResolver
	Dates       DateNormalizer
	Gatherer    Gatherer
	Synthesizer Synthesizer
	Sessions    session.Store
	Logger      *slog.Logger
}

type QueryService struct {
	deps            QueryDeps
	logger          *slog.Logger
	maxContextItems int
	maxQueryLen     int
}

type QueryInput struct {
	UserInput string
	SessionID string
}

// QueryOutput carries the ranked events behind Message for callers that
// render them separately.
type QueryOutput struct {
	ID      string
	Message string
	Events  []domain.Event
}

func NewQueryService(d QueryDeps, maxContextItems, maxQueryLen int) (*QueryService, error) {
	switch {
	case d.Extractor == nil:
		return nil, errors.New("usecase: extractor must not be nil")
	case d.Cities == nil:
		return nil, errors.New("usecase: city resolver must not be nil")
	case d.Dates == nil:
		return nil, errors.New("usecase: date normalizer must not be nil")
	case d.Gatherer == nil:
		return nil, errors.New("usecase: gatherer must not be nil")
	case d.Synthesizer == nil:
		return nil, errors.New("usecase: synthesizer must not be nil")
	case d.Sessions == nil:
		return nil, errors.New("usecase: session store must not be nil")
	}
	if maxContextItems <= 0 {
		maxContextItems = defaultMaxContext
	}
	if maxQueryLen <= 0 {
		maxQueryLen = defaultMaxQuery
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		deps:            d,
		logger:          logger,
		maxContextItems: maxContextItems,
		maxQueryLen:     maxQueryLen,
	}, nil
}

// Process answers one user message. The sentinel session id, an empty id and
// any unknown or expired id all start a new session seeded with this
// exchange.
func (s *QueryService) Process(ctx context.Context, in QueryInput) (QueryOutput, error) {
	text := strings.TrimSpace(in.UserInput)
	if text == "" {
		return QueryOutput{}, newError(ErrorInvalidInput, "empty_query", nil)
	}
	if utf8.RuneCountInString(text) > s.maxQueryLen {
		return QueryOutput{}, newError(ErrorInvalidInput, "query_too_long", nil)
	}

	sessionID := strings.TrimSpace(in.SessionID)
	var history []domain.ChatTurn
	if sessionID == session.NewSessionSentinel {
		sessionID = ""
	}
	if sessionID != "" {
		turns, err := s.deps.Sessions.Read(ctx, sessionID, s.maxContextItems)
		switch {
		case errors.Is(err, session.ErrNotFound):
			s.logger.Info("unknown session, starting a new one", "session_id", sessionID)
			sessionID = ""
		case err != nil:
			return QueryOutput{}, newError(ErrorInternal, "session_read_error", err)
		default:
			history = turns
		}
	}

	reply, events, err := s.answer(ctx, text, history)
	if err != nil {
		return QueryOutput{}, err
	}

	id, err := s.persist(ctx, sessionID, domain.UserTurn(text), domain.AssistantTurn(reply))
	if err != nil {
		return QueryOutput{}, newError(ErrorInternal, "session_write_error", err)
	}
	return QueryOutput{ID: id, Message: reply, Events: events}, nil
}

func (s *QueryService) answer(ctx context.Context, text string, history []domain.ChatTurn) (string, []domain.Event, error) {
	ex, err := s.deps.Extractor.Extract(ctx, text)
	if err != nil {
		s.logger.Warn("entity extraction failed", "err", err)
		ex = domain.Extraction{}
	}

	city, keywords, err := s.deps.Cities.Resolve(ex.City, ex.Keywords)
	if errors.Is(err, intent.ErrCityNotResolved) {
		return cityNotResolvedText, nil, nil
	}
	if err != nil {
		return "", nil, newError(ErrorInternal, "city_resolve_error", err)
	}

	q := domain.QueryContext{
		City:     city,
		Date:     s.deps.Dates.Normalize(ex.Date),
		Keywords: keywords,
	}
	if ex.Date != nil {
		q.DateText = *ex.Date
	}

	res := s.deps.Gatherer.Gather(ctx, q)
	events := rank.Merge(res.Events...)
	reply := s.deps.Synthesizer.Synthesize(ctx, synth.Input{
		Query:   text,
		Context: q,
		Events:  events,
		Weather: res.Weather,
		POIs:    res.POIs,
		Extras:  res.Extras,
		History: history,
	})
	s.logger.Info("query answered",
		"city", q.City, "date", q.Date.Format(time.DateOnly), "events", len(events))
	return reply, events, nil
}

// persist writes both turns of the exchange in one call. A session that
// expired while the query was in flight is replaced by a new one.
func (s *QueryService) persist(ctx context.Context, id string, turns ...domain.ChatTurn) (string, error) {
	if id != "" {
		err := s.deps.Sessions.Append(ctx, id, turns...)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return "", err
		}
		s.logger.Info("session expired during query, starting a new one", "session_id", id)
	}
	return s.deps.Sessions.Create(ctx, turns...)
}
