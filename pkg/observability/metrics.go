package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global metrics instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Streaming metrics
	EventsApplied   *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	EventsDeferred  prometheus.Counter
	RunsStarted     prometheus.Counter
	RunsCompleted   prometheus.Counter
	RunsFailed      prometheus.Counter
	StreamDuration  prometheus.Histogram

	// Annotation metrics
	AnnotateDuration prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter

	// WebSocket metrics
	ActiveConnections prometheus.Gauge
	MessagesPushed    prometheus.Counter
	PushFailures      prometheus.Counter

	// Query bus metrics
	QueryDuration *prometheus.HistogramVec
	QueryOutcomes *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Use singleton pattern to avoid duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	eventsApplied := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_applied_total",
			Help:      "Stream events applied to a document, by channel",
		},
		[]string{"channel"},
	)

	eventsDropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_dropped_total",
			Help:      "Stream events dropped, by channel and reason",
		},
		[]string{"channel", "reason"},
	)

	eventsDeferred := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_events_deferred_total",
		Help:      "Events parked because their sentence index had no mapping yet",
	})

	runsStarted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "paraphrase_runs_started_total",
		Help:      "Paraphrase runs started",
	})

	runsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "paraphrase_runs_completed_total",
		Help:      "Paraphrase runs completed",
	})

	runsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "paraphrase_runs_failed_total",
		Help:      "Paraphrase runs failed upstream",
	})

	streamDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "paraphrase_stream_duration_seconds",
		Help:      "Time from run start to enrichment sentinel",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	annotateDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "annotation_duration_seconds",
		Help:      "Diff annotation duration in seconds",
		Buckets:   prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "annotation_cache_hits_total",
		Help:      "Annotation memo cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "annotation_cache_misses_total",
		Help:      "Annotation memo cache misses",
	})

	activeConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_active_connections",
		Help:      "Currently connected WebSocket clients",
	})

	messagesPushed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "websocket_messages_pushed_total",
		Help:      "Projection updates pushed over WebSocket",
	})

	pushFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "websocket_push_failures_total",
		Help:      "Failed WebSocket pushes",
	})

	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query handler duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	queryOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_outcomes_total",
			Help:      "Query handler outcomes, by query type and result",
		},
		[]string{"query", "outcome"},
	)

	registry.MustRegister(
		httpRequests, httpDuration,
		queryDuration, queryOutcomes,
		eventsApplied, eventsDropped, eventsDeferred,
		runsStarted, runsCompleted, runsFailed, streamDuration,
		annotateDuration, cacheHits, cacheMisses,
		activeConnections, messagesPushed, pushFailures,
	)

	globalCollector = &Collector{
		registry:          registry,
		HTTPRequests:      httpRequests,
		HTTPDuration:      httpDuration,
		EventsApplied:     eventsApplied,
		EventsDropped:     eventsDropped,
		EventsDeferred:    eventsDeferred,
		RunsStarted:       runsStarted,
		RunsCompleted:     runsCompleted,
		RunsFailed:        runsFailed,
		StreamDuration:    streamDuration,
		AnnotateDuration:  annotateDuration,
		CacheHits:         cacheHits,
		CacheMisses:       cacheMisses,
		ActiveConnections: activeConnections,
		MessagesPushed:    messagesPushed,
		PushFailures:      pushFailures,
		QueryDuration:     queryDuration,
		QueryOutcomes:     queryOutcomes,
	}
	return globalCollector
}

// Registry exposes the collector's registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveHTTP records one HTTP request.
func (c *Collector) ObserveHTTP(method, route string, status string, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveQuery records one query bus dispatch.
func (c *Collector) ObserveQuery(query string, duration time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	c.QueryDuration.WithLabelValues(query).Observe(duration.Seconds())
	c.QueryOutcomes.WithLabelValues(query, outcome).Inc()
}

// ObserveDrop records one dropped stream event.
func (c *Collector) ObserveDrop(channel, reason string) {
	c.EventsDropped.WithLabelValues(channel, reason).Inc()
}

// ObserveApplied records one applied stream event.
func (c *Collector) ObserveApplied(channel string) {
	c.EventsApplied.WithLabelValues(channel).Inc()
}
