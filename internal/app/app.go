// Package app builds the service object graph from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"travel-assistant/internal/aggregate"
	"travel-assistant/internal/api"
	"travel-assistant/internal/config"
	"travel-assistant/internal/integrations/datasets"
	"travel-assistant/internal/integrations/httputil"
	"travel-assistant/internal/integrations/openai"
	"travel-assistant/internal/integrations/opentripmap"
	"travel-assistant/internal/integrations/openweather"
	"travel-assistant/internal/integrations/overpass"
	"travel-assistant/internal/integrations/paramstore"
	"travel-assistant/internal/integrations/ticketmaster"
	"travel-assistant/internal/intent"
	"travel-assistant/internal/metrics"
	"travel-assistant/internal/pinned"
	"travel-assistant/internal/repository"
	"travel-assistant/internal/session"
	"travel-assistant/internal/session/inmemory"
	"travel-assistant/internal/synth"
	"travel-assistant/internal/usecase"
)

// Parameter names, relative to PARAM_PREFIX or mapped to env variables.
const (
	paramTicketmasterKey = "ticketmaster-api-key"
	paramOpenTripMapKey  = "opentripmap-api-key"
	paramOpenWeatherKey  = "openweather-api-key"
	paramLLMKey          = "llm-api-key"
)

// App is the wired service.
type App struct {
	Services api.Services
	Registry *prometheus.Registry

	sessions session.Store
}

type Option func(*builder)

// WithEnv replaces os.LookupEnv for secrets read from the environment.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(b *builder) { b.lookup = lookup }
}

// WithSessionSweep makes the in-memory session backend drop expired sessions
// every interval until Close. The DynamoDB backend relies on the table TTL
// and ignores it.
func WithSessionSweep(interval time.Duration) Option {
	return func(b *builder) { b.sweep = interval }
}

// WithAWSConfig skips loading the default AWS configuration.
func WithAWSConfig(cfg aws.Config) Option {
	return func(b *builder) {
		b.aws = cfg
		b.awsLoaded = true
	}
}

type builder struct {
	cfg       config.Config
	logger    *slog.Logger
	lookup    func(string) (string, bool)
	aws       aws.Config
	awsLoaded bool
	dynamo    *awsdynamodb.Client
	sweep     time.Duration
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &builder{cfg: cfg, logger: logger, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(b)
	}
	if (cfg.UsesDynamoDB() || cfg.UsesSSM()) && !b.awsLoaded {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load AWS config: %w", err)
		}
		b.aws = awsCfg
		b.awsLoaded = true
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec, err := metrics.New(reg)
	if err != nil {
		return nil, err
	}

	sessions, err := b.sessions()
	if err != nil {
		return nil, err
	}
	a := &App{Registry: reg, sessions: sessions}
	curated, err := b.pinned()
	if err != nil {
		return nil, err
	}
	secrets, err := b.secrets()
	if err != nil {
		return nil, err
	}
	sources, err := b.sources(secrets, curated)
	if err != nil {
		return nil, err
	}

	gaz := intent.DefaultGazetteer()
	cities, err := intent.NewCityResolver(gaz)
	if err != nil {
		return nil, err
	}
	query, err := usecase.NewQueryService(usecase.QueryDeps{
		Extractor: intent.NewRuleExtractor(gaz),
		Cities:    cities,
		Dates:     intent.NewDateNormalizer(nil),
		Gatherer: aggregate.New(sources,
			aggregate.WithTimeout(cfg.ProviderTimeout),
			aggregate.WithMetrics(rec),
			aggregate.WithLogger(logger),
		),
		Synthesizer: synth.New(b.llm(secrets), cfg.LLMModel,
			synth.WithTimeout(cfg.LLMTimeout),
			synth.WithMetrics(rec),
			synth.WithLogger(logger),
		),
		Sessions: sessions,
		Logger:   logger,
	}, cfg.MaxContextItems, cfg.MaxQueryLength)
	if err != nil {
		return nil, err
	}
	history, err := usecase.NewHistoryService(sessions)
	if err != nil {
		return nil, err
	}
	admin, err := usecase.NewAdminService(curated)
	if err != nil {
		return nil, err
	}

	a.Services = api.Services{Query: query, History: history, Admin: admin}
	logger.Info("service wired",
		"session_backend", cfg.SessionBackend,
		"pinned_backend", cfg.PinnedBackend,
		"ssm_secrets", cfg.UsesSSM(),
	)
	return a, nil
}

// Close shuts the session store down. Requests served afterwards fail.
func (a *App) Close(ctx context.Context) error {
	if err := a.sessions.Close(ctx); err != nil {
		return fmt.Errorf("app: close sessions: %w", err)
	}
	return nil
}

func (b *builder) dynamoClient() *awsdynamodb.Client {
	if b.dynamo == nil {
		b.dynamo = awsdynamodb.NewFromConfig(b.aws)
	}
	return b.dynamo
}

func (b *builder) sessions() (session.Store, error) {
	if b.cfg.SessionBackend == config.BackendDynamoDB {
		return repository.NewSessionStore(b.dynamoClient(), b.cfg.StateTable, b.cfg.SessionIdleTTL)
	}
	return inmemory.New(b.cfg.SessionIdleTTL, inmemory.WithSweepInterval(b.sweep)), nil
}

func (b *builder) pinned() (pinned.Store, error) {
	if b.cfg.PinnedBackend == config.BackendDynamoDB {
		return repository.NewPinnedStore(b.dynamoClient(), b.cfg.StateTable)
	}
	return pinned.NewFileStore(b.cfg.PinnedDir)
}

func (b *builder) secrets() (paramstore.Getter, error) {
	if !b.cfg.UsesSSM() {
		return paramstore.EnvGetter{Lookup: b.lookup}, nil
	}
	return paramstore.New(awsssm.NewFromConfig(b.aws), paramstore.WithPrefix(b.cfg.ParamPrefix))
}

func (b *builder) sources(secrets paramstore.Getter, curated pinned.Store) (aggregate.Sources, error) {
	tm, err := ticketmaster.NewClient(
		paramstore.NewSecret(secrets, paramTicketmasterKey, paramstore.Plain),
		ticketmaster.WithBaseURL(b.cfg.TicketmasterBaseURL),
	)
	if err != nil {
		return aggregate.Sources{}, err
	}
	otm, err := opentripmap.NewClient(
		paramstore.NewSecret(secrets, paramOpenTripMapKey, paramstore.Plain),
		opentripmap.WithBaseURL(b.cfg.OpenTripMapBaseURL),
		opentripmap.WithWalkingMinutes(b.cfg.WalkingMinutes),
		opentripmap.WithLogger(b.logger),
	)
	if err != nil {
		return aggregate.Sources{}, err
	}
	weather, err := openweather.NewClient(
		paramstore.NewSecret(secrets, paramOpenWeatherKey, paramstore.Plain),
		openweather.WithBaseURL(b.cfg.OpenWeatherBaseURL),
	)
	if err != nil {
		return aggregate.Sources{}, err
	}
	store, err := datasets.NewStore(os.DirFS(b.cfg.DataDir))
	if err != nil {
		return aggregate.Sources{}, err
	}
	var lists []aggregate.ListSource
	for _, ds := range datasets.Defaults() {
		lists = append(lists, store.Source(ds))
	}

	return aggregate.Sources{
		Events: []aggregate.NamedEvents{
			{Name: aggregate.SourceCurated, Source: aggregate.NewCuratedSource(curated)},
			{Name: aggregate.SourceTicketmaster, Source: tm},
			{Name: aggregate.SourceOpenTripMap, Source: otm},
		},
		POIs:    overpass.NewClient(overpass.WithURL(b.cfg.OverpassURL)),
		Weather: weather,
		Lists:   lists,
	}, nil
}

// llm returns the generative backend. Local OpenAI-compatible servers need
// no key, so outside SSM the key is only sent when LLM_API_KEY is set.
func (b *builder) llm(secrets paramstore.Getter) *openai.Client {
	opts := []openai.Option{
		openai.WithBaseURL(b.cfg.LLMBaseURL),
		openai.WithHTTPClient(httputil.NewClient(b.cfg.LLMTimeout)),
	}
	switch {
	case b.cfg.UsesSSM():
		opts = append(opts, openai.WithAPIKey(paramstore.NewSecret(secrets, paramLLMKey, paramstore.JSONToken)))
	default:
		if v, ok := b.lookup(paramstore.EnvName(paramLLMKey)); ok && v != "" {
			opts = append(opts, openai.WithAPIKey(paramstore.Static(v)))
		}
	}
	return openai.NewClient(opts...)
}
