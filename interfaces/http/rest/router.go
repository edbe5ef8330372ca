// Package rest wires the HTTP surface: session lifecycle, document
// reads, replacement commands and the WebSocket upgrade endpoint.
package rest

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"phrasely-backend/interfaces/http/rest/handlers"
	"phrasely-backend/interfaces/http/rest/middleware"
	"phrasely-backend/interfaces/ws"
	"phrasely-backend/pkg/observability"
	"phrasely-backend/pkg/utils"
)

// RouterConfig toggles optional surfaces
type RouterConfig struct {
	EnableCORS    bool
	EnableMetrics bool
}

// Router creates and configures the HTTP router
type Router struct {
	sessionHandler *handlers.SessionHandler
	wsServer       *ws.Server
	metrics        *observability.Collector
	config         RouterConfig
	logger         *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	sessionHandler *handlers.SessionHandler,
	wsServer *ws.Server,
	metrics *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		sessionHandler: sessionHandler,
		wsServer:       wsServer,
		metrics:        metrics,
		config:         config,
		logger:         logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.phrasely.app"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "X-User-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	if rt.config.EnableMetrics && rt.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// WebSocket upgrade for projection pushes
	router.Get("/ws", rt.wsServer.HandleWebSocket)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity())

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", rt.sessionHandler.CreateSession)
			r.Get("/", rt.sessionHandler.ListSessions)
			r.Post("/cleanup", rt.sessionHandler.CleanupSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Post("/paraphrase", rt.sessionHandler.SubmitParaphrase)
				r.Post("/words", rt.sessionHandler.ReplaceWord)
				r.Post("/sentences", rt.sessionHandler.ReplaceSentence)
				r.Post("/undo", rt.sessionHandler.UndoReplacement)
				r.Get("/document", rt.sessionHandler.GetDocument)
				r.Get("/projection", rt.sessionHandler.GetProjection)
				r.Get("/status", rt.sessionHandler.GetStatus)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","time":%q}`, utils.NowRFC3339())
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ready","time":%q}`, utils.NowRFC3339())
}
