package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics(MetricsConfig{SkipPaths: []string{"/metrics"}}))
	app.Get("/api/v1/leads/:id", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/metrics", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	labels := prometheus.Labels{"method": http.MethodGet, "route": "/api/v1/leads/:id", "status": "404"}
	before := testutil.ToFloat64(httpRequestsTotal.With(labels))

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/leads/"+id, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(httpRequestsTotal.With(labels)))
	assert.Equal(t, float64(0), testutil.ToFloat64(httpInFlight))

	skipped := prometheus.Labels{"method": http.MethodGet, "route": "/metrics", "status": "200"}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsTotal.With(skipped)))
}
