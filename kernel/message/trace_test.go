package message_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/shortlink-org/kernel-client/kernel/message"
)

func TestInjectExtractTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "send")
	defer span.End()

	env := message.Envelope{Kind: "SubmitCode", Token: "t1"}
	message.InjectTrace(ctx, &env)
	require.NotEmpty(t, env.Meta)

	extracted := message.ExtractTrace(context.Background(), env)
	sc := trace.SpanContextFromContext(extracted)
	assert.Equal(t, span.SpanContext().TraceID(), sc.TraceID())
	assert.True(t, sc.IsRemote())
}

func TestExtractTraceWithoutMeta(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, message.ExtractTrace(ctx, message.Envelope{Kind: "Progress"}))
}
