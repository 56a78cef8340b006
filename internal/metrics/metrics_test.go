package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-connect/portal-backend/internal/notifications"
)

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return New(reg, reg)
}

func TestPublishCountsByType(t *testing.T) {
	m := newMetrics()
	ctx := context.Background()

	require.NoError(t, m.Publish(ctx, notifications.NewEvent(notifications.EventProjectVerified, "p", "a", nil)))
	require.NoError(t, m.Publish(ctx, notifications.NewEvent(notifications.EventProjectVerified, "q", "a", nil)))
	require.NoError(t, m.Publish(ctx, notifications.NewEvent(notifications.EventCreditsMinted, "p", "w", nil)))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues(string(notifications.EventProjectVerified))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues(string(notifications.EventCreditsMinted))))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Publish(context.Background(), notifications.Event{}))
	m.ObserveSweep(1, 2)
}

func TestObserveSweep(t *testing.T) {
	m := newMetrics()
	m.ObserveSweep(3, 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.FlaggedAccounts.WithLabelValues("warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlaggedAccounts.WithLabelValues("deficit")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newMetrics()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestLatency))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `carbon_portal_request_duration_seconds_count{method="GET",route="/ping",status="204"} 1`)
}
