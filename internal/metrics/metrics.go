package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"carbon-connect/portal-backend/internal/notifications"
)

// Metrics provides observability for the portal API and its domain events.
type Metrics struct {
	// Domain events by type
	Events *prometheus.CounterVec

	// Request latency by route and status
	RequestLatency *prometheus.HistogramVec

	// Accounts flagged by the last compliance sweep, by status
	FlaggedAccounts *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers the portal metrics on reg. Pass a fresh prometheus.Registry
// in tests; production passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "carbon_portal_events_total",
			Help: "Total domain events published by type",
		}, []string{"type"}),

		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carbon_portal_request_duration_seconds",
			Help:    "Duration of API requests by route, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),

		FlaggedAccounts: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "carbon_portal_flagged_accounts",
			Help: "Accounts flagged by the most recent compliance sweep",
		}, []string{"status"}),

		gatherer: gatherer,
	}
}

// Publish counts the event. It satisfies notifications.Publisher so the
// metrics can subscribe to the event bus.
func (m *Metrics) Publish(_ context.Context, event notifications.Event) error {
	if m != nil {
		m.Events.WithLabelValues(string(event.Type)).Inc()
	}
	return nil
}

// ObserveSweep records the outcome of a compliance sweep.
func (m *Metrics) ObserveSweep(warnings, deficits int) {
	if m != nil {
		m.FlaggedAccounts.WithLabelValues("warning").Set(float64(warnings))
		m.FlaggedAccounts.WithLabelValues("deficit").Set(float64(deficits))
	}
}

// Middleware records request latency. Unmatched routes share one label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestLatency.
			WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
