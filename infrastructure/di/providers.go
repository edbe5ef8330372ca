// Package di assembles the object graph. Providers are plain
// constructors composed by Wire; the generated initializer lives in
// wire_gen.go.
package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"phrasely-backend/application/commands"
	"phrasely-backend/application/commands/bus"
	commandhandlers "phrasely-backend/application/commands/handlers"
	"phrasely-backend/application/ports"
	"phrasely-backend/application/queries"
	querybus "phrasely-backend/application/queries/bus"
	queryhandlers "phrasely-backend/application/queries/handlers"
	"phrasely-backend/application/services"
	domaincfg "phrasely-backend/domain/config"
	"phrasely-backend/infrastructure/config"
	"phrasely-backend/infrastructure/messaging"
	"phrasely-backend/infrastructure/persistence/memory"
	"phrasely-backend/infrastructure/upstream"
	"phrasely-backend/interfaces/http/rest"
	resthandlers "phrasely-backend/interfaces/http/rest/handlers"
	"phrasely-backend/interfaces/ws"
	pkgerrors "phrasely-backend/pkg/errors"
	"phrasely-backend/pkg/observability"
	"phrasely-backend/pkg/ratelimit"
)

// statusCacheTTL is how long cached status and listing reads may lag
// the live session, in seconds.
const statusCacheTTL = 2

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideDomainConfig exposes the domain tunables from the loaded config
func ProvideDomainConfig(cfg *config.Config) *domaincfg.DomainConfig {
	if cfg.Domain != nil {
		return cfg.Domain
	}
	return domaincfg.LoadDomainConfig(cfg.Environment)
}

// ProvideSessionRepository creates the in-memory session store
func ProvideSessionRepository(logger *zap.Logger) ports.SessionRepository {
	return memory.NewSessionStore(logger)
}

// ProvideEventBus creates the in-process domain event bus
func ProvideEventBus(logger *zap.Logger) ports.EventBus {
	return messaging.NewInProcessBus(logger)
}

// ProvideMetrics creates the Prometheus metrics collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector("phrasely")
}

// ProvideRateLimiter creates the per-owner submission rate limiter
func ProvideRateLimiter(cfg *config.Config) *ratelimit.OwnerRateLimiter {
	return ratelimit.NewOwnerRateLimiter(cfg.SubmitsPerMinute)
}

// ProvideUpstreamGateway creates the circuit-broken upstream HTTP client
func ProvideUpstreamGateway(cfg *config.Config, logger *zap.Logger) ports.UpstreamGateway {
	return upstream.NewClient(upstream.ClientConfig{
		BaseURL:     cfg.UpstreamBaseURL,
		Timeout:     cfg.UpstreamTimeout,
		Model:       cfg.UpstreamModel,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		BreakerWait: cfg.BreakerTimeout,
	}, logger)
}

// ProvideSegmenter creates the sentence segmenter
func ProvideSegmenter() *services.Segmenter {
	return services.NewSegmenter()
}

// ProvideAnnotationCache creates the bounded annotation memo cache
func ProvideAnnotationCache(domainCfg *domaincfg.DomainConfig) *services.AnnotationCache {
	return services.NewAnnotationCache(domainCfg.AnnotationCacheCapacity)
}

// ProvideAnnotator creates the diff annotator
func ProvideAnnotator(
	cache *services.AnnotationCache,
	domainCfg *domaincfg.DomainConfig,
	metrics *observability.Collector,
) *services.Annotator {
	return services.NewAnnotator(cache, domainCfg, metrics)
}

// ProvideProjector creates the projection renderer
func ProvideProjector() *services.Projector {
	return services.NewProjector()
}

// ProvideHub creates the WebSocket hub
func ProvideHub(metrics *observability.Collector, logger *zap.Logger) *ws.Hub {
	return ws.NewHub(metrics, logger)
}

// ProvideProjectionPusher exposes the hub behind the pusher port
func ProvideProjectionPusher(hub *ws.Hub) ports.ProjectionPusher {
	return hub
}

// ProvideStreamAssembler creates the stream event assembler
func ProvideStreamAssembler(
	sessions ports.SessionRepository,
	segmenter *services.Segmenter,
	annotator *services.Annotator,
	projector *services.Projector,
	pusher ports.ProjectionPusher,
	eventBus ports.EventBus,
	metrics *observability.Collector,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *services.StreamAssembler {
	return services.NewStreamAssembler(sessions, segmenter, annotator, projector, pusher, eventBus, metrics, domainCfg, logger)
}

// ProvideProjectionListener creates the document.updated listener
func ProvideProjectionListener(
	sessions ports.SessionRepository,
	annotator *services.Annotator,
	projector *services.Projector,
	pusher ports.ProjectionPusher,
	logger *zap.Logger,
) *services.ProjectionListener {
	return services.NewProjectionListener(sessions, annotator, projector, pusher, logger)
}

// ProvideEventSource creates the upstream socket consumer
func ProvideEventSource(
	cfg *config.Config,
	sessions ports.SessionRepository,
	assembler *services.StreamAssembler,
	logger *zap.Logger,
) *upstream.EventSource {
	return upstream.NewEventSource(cfg.UpstreamSocketURL, sessions, assembler, logger)
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideCreateSessionHandler creates the session creation handler
func ProvideCreateSessionHandler(
	sessions ports.SessionRepository,
	eventBus ports.EventBus,
	domainCfg *domaincfg.DomainConfig,
	logger *zap.Logger,
) *commands.CreateSessionHandler {
	return commands.NewCreateSessionHandler(sessions, eventBus, domainCfg, logger)
}

// ProvideSubmitParaphraseHandler creates the paraphrase submission handler
func ProvideSubmitParaphraseHandler(
	sessions ports.SessionRepository,
	gateway ports.UpstreamGateway,
	eventBus ports.EventBus,
	limiter *ratelimit.OwnerRateLimiter,
	logger *zap.Logger,
) *commands.SubmitParaphraseHandler {
	return commands.NewSubmitParaphraseHandler(sessions, gateway, eventBus, limiter, logger)
}

// ProvideReplaceWordHandler creates the word replacement handler
func ProvideReplaceWordHandler(
	sessions ports.SessionRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *commands.ReplaceWordHandler {
	return commands.NewReplaceWordHandler(sessions, eventBus, logger)
}

// ProvideReplaceSentenceHandler creates the sentence replacement handler
func ProvideReplaceSentenceHandler(
	sessions ports.SessionRepository,
	gateway ports.UpstreamGateway,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *commands.ReplaceSentenceHandler {
	return commands.NewReplaceSentenceHandler(sessions, gateway, eventBus, logger)
}

// ProvideUndoReplacementHandler creates the undo handler
func ProvideUndoReplacementHandler(
	sessions ports.SessionRepository,
	eventBus ports.EventBus,
	logger *zap.Logger,
) *commands.UndoReplacementHandler {
	return commands.NewUndoReplacementHandler(sessions, eventBus, logger)
}

// ProvideReconnectSocketHandler creates the socket rebind handler
func ProvideReconnectSocketHandler(sessions ports.SessionRepository, logger *zap.Logger) *commands.ReconnectSocketHandler {
	return commands.NewReconnectSocketHandler(sessions, logger)
}

// ProvideCleanupSessionsHandler creates the session cleanup handler
func ProvideCleanupSessionsHandler(sessions ports.SessionRepository, logger *zap.Logger) *commands.CleanupSessionsHandler {
	return commands.NewCleanupSessionsHandler(sessions, logger)
}

// ProvideCommandBus creates a command bus with every mutation handler
// registered behind the logging pipeline
func ProvideCommandBus(
	submit *commands.SubmitParaphraseHandler,
	replaceWord *commands.ReplaceWordHandler,
	replaceSentence *commands.ReplaceSentenceHandler,
	undo *commands.UndoReplacementHandler,
	reconnect *commands.ReconnectSocketHandler,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()

	pipeline := bus.NewPipeline(
		bus.LoggingMiddleware(&zapLoggerAdapter{logger: logger}),
	)

	if err := commandhandlers.RegisterAll(commandBus, pipeline, submit, replaceWord, replaceSentence, undo, reconnect); err != nil {
		return nil, fmt.Errorf("register command handlers: %w", err)
	}

	return commandBus, nil
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers. All
// handlers report metrics; status and listing reads are additionally
// cached for a couple of seconds, document and projection reads are
// always served live.
func ProvideQueryBus(
	sessions ports.SessionRepository,
	annotator *services.Annotator,
	projector *services.Projector,
	metrics *observability.Collector,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	metricsMW := querybus.NewMetricsMiddleware(metrics)
	cachingMW := querybus.NewCachingMiddleware(NewInMemoryCache(), statusCacheTTL)

	getDocumentHandler := queryhandlers.NewGetDocumentHandler(sessions, logger)
	documentAdapter := &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			typed, ok := query.(queries.GetDocumentQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return getDocumentHandler.Handle(ctx, typed)
		},
	}
	if err := queryBus.Register(queries.GetDocumentQuery{}, metricsMW.Wrap(documentAdapter)); err != nil {
		return nil, err
	}

	getProjectionHandler := queryhandlers.NewGetProjectionHandler(sessions, annotator, projector, logger)
	projectionAdapter := &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			typed, ok := query.(queries.GetProjectionQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return getProjectionHandler.Handle(ctx, typed)
		},
	}
	if err := queryBus.Register(queries.GetProjectionQuery{}, metricsMW.Wrap(projectionAdapter)); err != nil {
		return nil, err
	}

	getStatusHandler := queryhandlers.NewGetSessionStatusHandler(sessions, logger)
	statusAdapter := &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			typed, ok := query.(queries.GetSessionStatusQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return getStatusHandler.Handle(ctx, typed)
		},
	}
	if err := queryBus.Register(queries.GetSessionStatusQuery{}, metricsMW.Wrap(cachingMW.Wrap(statusAdapter))); err != nil {
		return nil, err
	}

	listSessionsHandler := queryhandlers.NewListSessionsHandler(sessions, logger)
	listAdapter := &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			typed, ok := query.(queries.ListSessionsQuery)
			if !ok {
				return nil, fmt.Errorf("unexpected query type %T", query)
			}
			return listSessionsHandler.Handle(ctx, typed)
		},
	}
	if err := queryBus.Register(queries.ListSessionsQuery{}, metricsMW.Wrap(cachingMW.Wrap(listAdapter))); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideWSServer creates the WebSocket upgrade server
func ProvideWSServer(
	hub *ws.Hub,
	sessions ports.SessionRepository,
	commandBus *bus.CommandBus,
	logger *zap.Logger,
) *ws.Server {
	return ws.NewServer(hub, sessions, commandBus, ws.DefaultServerConfig(), logger)
}

// ProvideSessionHandler creates the REST session handler
func ProvideSessionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	createHandler *commands.CreateSessionHandler,
	submitHandler *commands.SubmitParaphraseHandler,
	cleanupHandler *commands.CleanupSessionsHandler,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *resthandlers.SessionHandler {
	return resthandlers.NewSessionHandler(commandBus, queryBus, createHandler, submitHandler, cleanupHandler, errorHandler, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	sessionHandler *resthandlers.SessionHandler,
	wsServer *ws.Server,
	metrics *observability.Collector,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(sessionHandler, wsServer, metrics, rest.RouterConfig{
		EnableCORS:    cfg.EnableCORS,
		EnableMetrics: cfg.EnableMetrics,
	}, logger)
}

// zapLoggerAdapter adapts zap.Logger to the bus.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, _ := fields[i].(string)
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}
	}
	return zapFields
}
