package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered      prometheus.Counter
	ArticlesCreated      prometheus.Counter
	CommentsCreated      prometheus.Counter
	EventsPublished      *prometheus.CounterVec
	EventHandlerFailures *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conduit_users_registered_total",
			Help: "Total number of user accounts registered",
		}),
		ArticlesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conduit_articles_created_total",
			Help: "Total number of articles created",
		}),
		CommentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conduit_comments_created_total",
			Help: "Total number of comments created",
		}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_events_published_total",
			Help: "Total number of domain events published to the bus",
		}, []string{"event"}),
		EventHandlerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "conduit_event_handler_failures_total",
			Help: "Total number of event handler invocations that failed",
		}, []string{"event"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conduit_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

// ObserveBus returns an observer suitable for events.WithObserver so bus
// traffic shows up in /metrics without the events package importing
// prometheus.
func (m *Metrics) ObserveBus() func(event string, handlerErr bool) {
	return func(event string, handlerErr bool) {
		if handlerErr {
			m.EventHandlerFailures.WithLabelValues(event).Inc()
			return
		}
		m.EventsPublished.WithLabelValues(event).Inc()
	}
}
