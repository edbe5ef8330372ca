//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"phrasely-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideSessionRepository,
	ProvideEventBus,
	ProvideMetrics,
	ProvideRateLimiter,
	ProvideUpstreamGateway,
	ProvideSegmenter,
	ProvideAnnotationCache,
	ProvideAnnotator,
	ProvideProjector,
	ProvideHub,
	ProvideProjectionPusher,
	ProvideStreamAssembler,
	ProvideProjectionListener,
	ProvideEventSource,
	ProvideErrorHandler,
	ProvideCreateSessionHandler,
	ProvideSubmitParaphraseHandler,
	ProvideReplaceWordHandler,
	ProvideReplaceSentenceHandler,
	ProvideUndoReplacementHandler,
	ProvideReconnectSocketHandler,
	ProvideCleanupSessionsHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideWSServer,
	ProvideSessionHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
