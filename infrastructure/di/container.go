package di

import (
	"go.uber.org/zap"

	"phrasely-backend/application/commands/bus"
	"phrasely-backend/application/ports"
	querybus "phrasely-backend/application/queries/bus"
	"phrasely-backend/application/services"
	"phrasely-backend/infrastructure/config"
	"phrasely-backend/infrastructure/upstream"
	"phrasely-backend/interfaces/http/rest"
	"phrasely-backend/interfaces/ws"
	"phrasely-backend/pkg/observability"
	"phrasely-backend/pkg/ratelimit"
)

// Container holds all application dependencies
type Container struct {
	Config             *config.Config
	Logger             *zap.Logger
	Sessions           ports.SessionRepository
	EventBus           ports.EventBus
	CommandBus         *bus.CommandBus
	QueryBus           *querybus.QueryBus
	Assembler          *services.StreamAssembler
	ProjectionListener *services.ProjectionListener
	EventSource        *upstream.EventSource
	Hub                *ws.Hub
	Router             *rest.Router
	Metrics            *observability.Collector
	RateLimiter        *ratelimit.OwnerRateLimiter
}
