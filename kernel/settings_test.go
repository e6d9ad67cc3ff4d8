package kernel_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlink-org/kernel-client/config"
	"github.com/shortlink-org/kernel-client/kernel"
	"github.com/shortlink-org/kernel-client/kernel/message"
	"github.com/shortlink-org/kernel-client/transport"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s := kernel.LoadSettings(config.NewEnv())

	assert.Equal(t, "kernel-client", s.ClientName)
	assert.Zero(t, s.SendTimeout)
	assert.Equal(t, transport.DefaultMaxLineBytes, s.MaxLineBytes)
	assert.False(t, s.BreakerEnabled)
	assert.Equal(t, uint32(5), s.BreakerFailures)
	assert.Equal(t, 30*time.Second, s.BreakerTimeout)
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("KERNEL_CLIENT_NAME", "notebook")
	t.Setenv("KERNEL_SEND_TIMEOUT", "250ms")
	t.Setenv("KERNEL_MAX_LINE_BYTES", "1024")
	t.Setenv("KERNEL_SINK_BREAKER_ENABLED", "true")
	t.Setenv("KERNEL_SINK_BREAKER_FAILURES", "0")

	s := kernel.LoadSettings(config.NewEnv())

	assert.Equal(t, "notebook", s.ClientName)
	assert.Equal(t, 250*time.Millisecond, s.SendTimeout)
	assert.Equal(t, 1024, s.MaxLineBytes)
	assert.True(t, s.BreakerEnabled)
	assert.Equal(t, uint32(1), s.BreakerFailures, "failures are clamped to at least one")
}

func TestNewFromSettingsAppliesSendTimeout(t *testing.T) {
	push := transport.NewPushSource()

	client, err := kernel.NewFromSettings(push, &echoSink{push: push, silent: true}, kernel.Settings{
		SendTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	defer client.Dispose()

	_, err = client.Send(context.Background(), message.NewCommand(SubmitCode{Code: "slow"}))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewFromSettingsOpensBreaker(t *testing.T) {
	errBroken := errors.New("broken pipe")
	writes := 0

	sink := transport.SinkFunc(func(context.Context, string) error {
		writes++

		return errBroken
	})

	client, err := kernel.NewFromSettings(transport.NewPushSource(), sink, kernel.Settings{
		BreakerEnabled:  true,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	})
	require.NoError(t, err)

	defer client.Dispose()

	for range 2 {
		_, err = client.Send(context.Background(), message.NewCommand(SubmitCode{}))
		require.ErrorIs(t, err, errBroken)
	}

	_, err = client.Send(context.Background(), message.NewCommand(SubmitCode{}))
	require.ErrorIs(t, err, transport.ErrSinkOpen)
	assert.Equal(t, 2, writes, "an open circuit must not reach the sink")
	assert.Zero(t, client.InFlight())
}

func TestNewStdioWritesFramedCommands(t *testing.T) {
	var stdout bytes.Buffer

	client, err := kernel.NewStdio(bytes.NewReader(nil), &stdout, kernel.Settings{})
	require.NoError(t, err)

	defer client.Dispose()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cmd := message.NewCommand(SubmitCode{Code: "1"}).WithToken("t.1")
	_, err = client.Send(ctx, cmd)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t,
		`{"kind":"SubmitCode","token":"t.1","body":{"code":"1"}}`+"\n",
		stdout.String(),
	)
}
