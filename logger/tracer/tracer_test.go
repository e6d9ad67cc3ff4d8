package tracer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/shortlink-org/kernel-client/logger/tracer"
)

func setupTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return rec
}

func findAttr[T any](attrs []attribute.KeyValue, key string) (T, bool) {
	var zero T

	for _, a := range attrs {
		if string(a.Key) != key {
			continue
		}

		if v, ok := a.Value.AsInterface().(T); ok {
			return v, true
		}
	}

	return zero, false
}

func valueOf(fields []any, key string) (string, bool) {
	for idx := 0; idx+1 < len(fields); idx += 2 {
		if k, ok := fields[idx].(string); ok && k == key {
			v, isString := fields[idx+1].(string)

			return v, isString
		}
	}

	return "", false
}

func TestEventOnActiveSpanForError(t *testing.T) {
	rec := setupTracer(t)

	ctx, root := otel.Tracer("test").Start(context.Background(), "root")

	fields, err := tracer.NewTraceFromContext(ctx, "ERROR", "write failed", nil,
		"token", "abc.1", "error", errors.New("broken pipe"))
	require.NoError(t, err)

	traceID, ok := valueOf(fields, "traceID")
	require.True(t, ok)
	assert.Equal(t, root.SpanContext().TraceID().String(), traceID)

	root.End()

	spans := rec.Ended()
	require.Len(t, spans, 1, "active span must be reused")
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	var logEv sdktrace.Event

	for _, e := range spans[0].Events() {
		if e.Name == "log.ERROR" {
			logEv = e
		}
	}

	require.Equal(t, "log.ERROR", logEv.Name)

	msg, ok := findAttr[string](logEv.Attributes, "exception.message")
	require.True(t, ok)
	assert.Equal(t, "broken pipe", msg)

	token, ok := findAttr[string](logEv.Attributes, "token")
	require.True(t, ok)
	assert.Equal(t, "abc.1", token)
}

func TestInfoWithoutSpanPassesThrough(t *testing.T) {
	rec := setupTracer(t)

	out, err := tracer.NewTraceFromContext(context.Background(), "INFO", "hello", nil, "a", "b")
	require.NoError(t, err)

	assert.Empty(t, rec.Ended())
	assert.Equal(t, []any{"a", "b"}, out)
}

func TestWarnWithoutSpanCreatesShortSpan(t *testing.T) {
	rec := setupTracer(t)

	out, err := tracer.NewTraceFromContext(context.Background(), "WARN", "heads-up", nil, "x", 1)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)

	severity, ok := findAttr[string](spans[0].Attributes(), "log.severity")
	require.True(t, ok)
	assert.Equal(t, "WARN", severity)

	spanID, ok := valueOf(out, "spanID")
	require.True(t, ok)
	assert.Equal(t, spans[0].SpanContext().SpanID().String(), spanID)
}

func TestFieldsToOpenTelemetry(t *testing.T) {
	attrs := tracer.FieldsToOpenTelemetry(
		"kind", "CommandSucceeded",
		"attempt", 2,
		"is_error", "true",
		42, "skipped",
		"dangling",
	)

	kind, ok := findAttr[string](attrs, "kind")
	require.True(t, ok)
	assert.Equal(t, "CommandSucceeded", kind)

	attempt, ok := findAttr[int64](attrs, "attempt")
	require.True(t, ok)
	assert.Equal(t, int64(2), attempt)

	isErr, ok := findAttr[bool](attrs, "log.is_error")
	require.True(t, ok)
	assert.True(t, isErr)

	assert.Len(t, attrs, 3)
}
