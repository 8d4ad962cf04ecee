package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests no route matched, keeping raw paths out of
// metric attributes.
const unmatchedRoute = "unmatched"

type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	var err error

	if m.requests, err = meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.duration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.inFlight, err = meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// Middleware records every request not matched by skipper. Errors are handed
// to the error handler first so the recorded status is the one sent.
func (m *HTTPMetrics) Middleware(skipper echomiddleware.Skipper) echo.MiddlewareFunc {
	if skipper == nil {
		skipper = echomiddleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper(c) {
				return next(c)
			}

			start := time.Now()
			ctx := c.Request().Context()

			method := attribute.String("http.request.method", c.Request().Method)
			m.inFlight.Add(ctx, 1, metric.WithAttributes(method))
			defer m.inFlight.Add(ctx, -1, metric.WithAttributes(method))

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = unmatchedRoute
			}
			attrs := metric.WithAttributes(
				method,
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", c.Response().Status),
			)
			m.requests.Add(ctx, 1, attrs)
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)

			return nil
		}
	}
}
