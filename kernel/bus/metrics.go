package bus

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shortlink-org/kernel-client/kernel/message"
)

const instrumentationName = "github.com/shortlink-org/kernel-client/kernel/bus"

type metrics struct {
	published   metric.Int64Counter
	diagnostics metric.Int64Counter
	sent        metric.Int64Counter
	inflight    metric.Int64UpDownCounter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	published, err := meter.Int64Counter("kernel.events.published",
		metric.WithDescription("Events published on the event bus"))
	if err != nil {
		return nil, fmt.Errorf("kernel/bus: events counter: %w", err)
	}

	diagnostics, err := meter.Int64Counter("kernel.events.diagnostics",
		metric.WithDescription("Diagnostic events produced for unparseable lines"))
	if err != nil {
		return nil, fmt.Errorf("kernel/bus: diagnostics counter: %w", err)
	}

	sent, err := meter.Int64Counter("kernel.commands.sent",
		metric.WithDescription("Commands written to the outbound sink"))
	if err != nil {
		return nil, fmt.Errorf("kernel/bus: commands counter: %w", err)
	}

	inflight, err := meter.Int64UpDownCounter("kernel.commands.inflight",
		metric.WithDescription("Commands waiting for a terminal event"))
	if err != nil {
		return nil, fmt.Errorf("kernel/bus: inflight counter: %w", err)
	}

	return &metrics{
		published:   published,
		diagnostics: diagnostics,
		sent:        sent,
		inflight:    inflight,
	}, nil
}

// kindOther labels every inbound kind that is neither terminal nor a diagnostic.
// The peer picks event kinds, so they never become label values.
const kindOther = "other"

func kindLabel(kind message.Kind) string {
	if kind.IsTerminal() || kind == message.KindDiagnostic {
		return kind.String()
	}

	return kindOther
}

func (m *metrics) eventPublished(evt message.Event) {
	ctx := context.Background()
	m.published.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kindLabel(evt.Kind))))

	if evt.Kind == message.KindDiagnostic {
		m.diagnostics.Add(ctx, 1)
	}
}

func (m *metrics) commandSent(ctx context.Context, kind message.Kind) {
	m.sent.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}

func (m *metrics) waiting(ctx context.Context, delta int64) {
	m.inflight.Add(ctx, delta)
}
