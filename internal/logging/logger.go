// Package logging is the process-wide zerolog logger. Events created through
// Info, Warn, Error and Debug carry the trace and span ids of the active span.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

type Options struct {
	Development bool
	// Level is a zerolog level name; empty means debug in development and
	// info otherwise.
	Level   string
	Service string
	Output  io.Writer
}

func Init(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Development {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if opts.Development {
		level = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(opts.Level); err == nil && opts.Level != "" {
		level = parsed
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Development {
		ctx = ctx.Caller()
	}
	logger = ctx.Logger()
}

// SetOutput redirects the logger, mostly for tests.
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

func Logger() *zerolog.Logger {
	return &logger
}

func WithContext(ctx context.Context) zerolog.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return logger
	}

	return logger.With().
		Str("traceId", sc.TraceID().String()).
		Str("spanId", sc.SpanID().String()).
		Logger()
}

func Info(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Info()
}

func Error(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Error()
}

func Debug(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Debug()
}

func Warn(ctx context.Context) *zerolog.Event {
	l := WithContext(ctx)
	return l.Warn()
}
