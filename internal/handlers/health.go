package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"foodgram-api/internal/database"
	"foodgram-api/internal/logging"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const probeTimeout = 2 * time.Second

// Probe reports whether one dependency is reachable.
type Probe func(ctx context.Context) error

type HealthHandler struct {
	probes map[string]Probe
}

func NewHealthHandler(probes map[string]Probe) *HealthHandler {
	return &HealthHandler{probes: probes}
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Check runs every probe in parallel. Any failure turns the response into a
// 503 with status "degraded".
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := make([]error, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		probe := h.probes[name]
		g.Go(func() error {
			failures[i] = probe(gctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := HealthResponse{Status: "healthy", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for i, name := range names {
		if failures[i] != nil {
			logging.Warn(ctx).Err(failures[i]).Str("dependency", name).Msg("health probe failed")
			resp.Checks[name] = "unhealthy"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "healthy"
	}

	return c.JSON(status, resp)
}

func DatabaseProbe(db *gorm.DB) Probe {
	return func(ctx context.Context) error {
		return database.CheckHealth(ctx, db)
	}
}

// RedisProbe lists the asynq queues. The inspector has no context support, so
// the call is abandoned once ctx expires.
func RedisProbe(redisAddr string) Probe {
	return func(ctx context.Context) error {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})

		done := make(chan error, 1)
		go func() {
			defer inspector.Close()
			_, err := inspector.Queues()
			done <- err
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
