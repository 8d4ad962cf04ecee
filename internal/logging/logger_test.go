package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInfoWithoutSpanOmitsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	Info(context.Background()).Uint("recipe_id", 7).Msg("recipe created")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "recipe created", entry["message"])
	assert.EqualValues(t, 7, entry["recipe_id"])
	assert.NotContains(t, entry, "traceId")
}

func TestInfoWithSpanAddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	Error(ctx).Msg("boom")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["traceId"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["spanId"])
	assert.Equal(t, "error", entry["level"])
}

func TestInitAppliesLevelAndService(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Service: "foodgram-worker", Output: &buf})
	t.Cleanup(func() { Init(Options{}) })

	Info(context.Background()).Msg("dropped")
	assert.Zero(t, buf.Len())

	Warn(context.Background()).Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "foodgram-worker", entry["service"])
}
