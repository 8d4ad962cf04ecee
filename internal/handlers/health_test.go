package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"foodgram-api/internal/middleware"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkHealth(t *testing.T, probes map[string]Probe) (int, HealthResponse) {
	t.Helper()

	e := echo.New()
	e.JSONSerializer = middleware.JSONSerializer{}
	e.GET("/api/health/", NewHealthHandler(probes).Check)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealthAllProbesPass(t *testing.T) {
	ok := func(context.Context) error { return nil }

	code, resp := checkHealth(t, map[string]Probe{"database": ok, "redis": ok})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, map[string]string{"database": "healthy", "redis": "healthy"}, resp.Checks)
}

func TestHealthDegradedWhenOneProbeFails(t *testing.T) {
	code, resp := checkHealth(t, map[string]Probe{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["database"])
	assert.Equal(t, "unhealthy", resp.Checks["redis"])
}

func TestHealthProbeTimesOut(t *testing.T) {
	code, resp := checkHealth(t, map[string]Probe{
		"database": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", resp.Checks["database"])
}
