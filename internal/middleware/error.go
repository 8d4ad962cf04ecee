package middleware

import (
	"errors"
	"net/http"

	"foodgram-api/internal/logging"
	"foodgram-api/internal/validation"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorResponse carries either a message or a map of field errors.
type ErrorResponse struct {
	Errors  any    `json:"errors"`
	TraceID string `json:"trace_id,omitempty"`
}

func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ctx := c.Request().Context()
	span := trace.SpanFromContext(ctx)

	code, body := classify(err)

	span.SetAttributes(attribute.Int("http.response.status_code", code))
	if code >= http.StatusInternalServerError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.Error(ctx).Err(err).Int("status", code).Msg("request error")
	} else {
		logging.Debug(ctx).Err(err).Int("status", code).Msg("request rejected")
	}

	var traceID string
	if span.SpanContext().HasTraceID() {
		traceID = span.SpanContext().TraceID().String()
	}

	response := ErrorResponse{
		Errors:  body,
		TraceID: traceID,
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, response)
	}
	if err != nil {
		logging.Error(ctx).Err(err).Msg("failed to write error response")
	}
}

func classify(err error) (int, any) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Fields()
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			if errors.As(he.Internal, &verr) {
				return http.StatusBadRequest, verr.Fields()
			}
		}
		switch m := he.Message.(type) {
		case string:
			return he.Code, m
		case nil:
			return he.Code, http.StatusText(he.Code)
		case error:
			return he.Code, m.Error()
		default:
			return he.Code, m
		}
	}

	return http.StatusInternalServerError, "internal server error"
}
