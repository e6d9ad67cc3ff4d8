package bus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/shortlink-org/kernel-client/kernel/bus"
	"github.com/shortlink-org/kernel-client/kernel/message"
)

func TestPublishedKindLabelIsBounded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})

	events, err := bus.NewEventBus(bus.WithMeterProvider(mp))
	require.NoError(t, err)

	defer events.Close()

	for _, kind := range []message.Kind{"Progress", "ValueProduced", "RandomKind-42", message.KindCommandSucceeded} {
		require.NoError(t, events.Publish(message.Event{Kind: kind, Token: "t.1"}))
	}

	require.NoError(t, events.Publish(message.NewDiagnosticEvent("{oops", message.ErrMalformed)))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	perKind := map[string]int64{}

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "kernel.events.published" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				kind, found := dp.Attributes.Value("kind")
				require.True(t, found)

				perKind[kind.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, map[string]int64{
		"other":                      3,
		"CommandSucceeded":           1,
		"DiagnosticLogEntryProduced": 1,
	}, perKind)
}
