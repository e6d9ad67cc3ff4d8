package metrics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/shortlink-org/kernel-client/config"
	"github.com/shortlink-org/kernel-client/kernel"
	"github.com/shortlink-org/kernel-client/kernel/message"
	"github.com/shortlink-org/kernel-client/observability/metrics"
	"github.com/shortlink-org/kernel-client/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type SubmitCode struct {
	Code string `json:"code"`
}

func newMonitoring(t *testing.T) *metrics.Monitoring {
	t.Helper()

	mon, err := metrics.New(context.Background(), config.NewEnv())
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mon.Shutdown())
	})

	return mon
}

func scrape(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))

	return rec
}

func TestClientInstrumentsAreExported(t *testing.T) {
	mon := newMonitoring(t)

	push := transport.NewPushSource()
	sink := transport.SinkFunc(func(context.Context, string) error {
		// token is fixed below, so the reply can be static
		push.Push(`{"kind":"CommandSucceeded","token":"m.1","body":{}}`)

		return nil
	})

	client, err := kernel.New(push, sink, kernel.WithMeterProvider(mon.Provider))
	require.NoError(t, err)

	defer client.Dispose()

	_, err = client.Send(context.Background(), message.NewCommand(SubmitCode{}), kernel.WithToken("m.1"))
	require.NoError(t, err)

	rec := scrape(t, mon.Handler, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kernel_commands_sent")
	assert.Contains(t, rec.Body.String(), "kernel_events_published")
}

func TestReadinessFollowsChecks(t *testing.T) {
	mon := newMonitoring(t)

	assert.Equal(t, http.StatusOK, scrape(t, mon.Handler, "/live").Code)

	mon.AddReadinessCheck("kernel", func() error {
		return errors.New("not started")
	})

	assert.Equal(t, http.StatusServiceUnavailable, scrape(t, mon.Handler, "/ready").Code)
}
