package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestHTTPMetricsLetsErrorHandlerWriteStatus(t *testing.T) {
	m, err := NewHTTPMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(m.Middleware(nil))
	e.GET("/api/recipes/:id/", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Not found.")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recipes/9/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not found.")
}

func TestHTTPMetricsSkipper(t *testing.T) {
	m, err := NewHTTPMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	var skipped bool
	e := echo.New()
	e.Use(m.Middleware(func(c echo.Context) bool {
		skipped = c.Path() == "/metrics/"
		return skipped
	}))
	e.GET("/metrics/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/", nil))

	assert.True(t, skipped)
	assert.Equal(t, http.StatusOK, rec.Code)
}
