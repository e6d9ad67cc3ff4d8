package message

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTrace stamps the trace context of ctx into env.Meta.
func InjectTrace(ctx context.Context, env *Envelope) {
	injectTrace(ctx, otel.GetTextMapPropagator(), env)
}

// ExtractTrace returns ctx enriched with the trace context carried in env.Meta.
func ExtractTrace(ctx context.Context, env Envelope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(env.Meta) == 0 {
		return ctx
	}

	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(env.Meta))
}

func injectTrace(ctx context.Context, propagator propagation.TextMapPropagator, env *Envelope) {
	if ctx == nil || env == nil || propagator == nil {
		return
	}

	carrier := propagation.MapCarrier{}
	propagator.Inject(ctx, carrier)

	if len(carrier) == 0 {
		return
	}

	if env.Meta == nil {
		env.Meta = make(map[string]string, len(carrier))
	}

	for k, v := range carrier {
		env.Meta[k] = v
	}
}
