package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestServerMetrics_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "api")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/listings/:listing_id/initiate", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(Handler(reg)))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/listings/l-1/initiate", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("/listings/:listing_id/initiate", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "404")))

	m.Outcome("commit", "redirect")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("commit", "redirect")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	assert.True(t, strings.Contains(string(body), "checkout_api_http_requests_total"))
}

func TestOutcome_NilIsNoop(t *testing.T) {
	var m *ServerMetrics
	assert.NotPanics(t, func() { m.Outcome("preview", "ok") })
}

func TestTracing_StartsServerSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	shutdown, err := SetupTracing(context.Background(), "test", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	var sc trace.SpanContext
	r := gin.New()
	r.Use(Tracing("test"))
	r.GET("/x", func(c *gin.Context) {
		sc = trace.SpanContextFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, sc.IsValid())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
}
