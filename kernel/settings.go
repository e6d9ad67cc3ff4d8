package kernel

import (
	"io"
	"time"

	"github.com/shortlink-org/kernel-client/config"
	"github.com/shortlink-org/kernel-client/transport"
)

// Settings is the ENV-driven part of the client configuration.
type Settings struct {
	ClientName      string
	SendTimeout     time.Duration
	MaxLineBytes    int
	BreakerEnabled  bool
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// LoadSettings reads KERNEL_* keys from cfg, applying defaults first.
func LoadSettings(cfg *config.Config) Settings {
	cfg.SetDefault("KERNEL_CLIENT_NAME", defaultClientName)
	cfg.SetDefault("KERNEL_SEND_TIMEOUT", "0s") // no timeout unless asked for
	cfg.SetDefault("KERNEL_MAX_LINE_BYTES", transport.DefaultMaxLineBytes)
	cfg.SetDefault("KERNEL_SINK_BREAKER_ENABLED", false)
	cfg.SetDefault("KERNEL_SINK_BREAKER_FAILURES", 5)
	cfg.SetDefault("KERNEL_SINK_BREAKER_TIMEOUT", "30s")

	failures := cfg.GetInt("KERNEL_SINK_BREAKER_FAILURES")
	if failures < 1 {
		failures = 1
	}

	return Settings{
		ClientName:      cfg.GetString("KERNEL_CLIENT_NAME"),
		SendTimeout:     cfg.GetDuration("KERNEL_SEND_TIMEOUT"),
		MaxLineBytes:    cfg.GetInt("KERNEL_MAX_LINE_BYTES"),
		BreakerEnabled:  cfg.GetBool("KERNEL_SINK_BREAKER_ENABLED"),
		BreakerFailures: uint32(failures), //nolint:gosec // clamped above
		BreakerTimeout:  cfg.GetDuration("KERNEL_SINK_BREAKER_TIMEOUT"),
	}
}

func (s Settings) breaker() transport.BreakerSettings {
	return transport.BreakerSettings{
		Name:     s.ClientName + "_sink",
		Failures: s.BreakerFailures,
		Timeout:  s.BreakerTimeout,
	}
}

// NewFromSettings is New with s applied: name, send timeout and, when
// enabled, a circuit breaker around sink. Explicit opts win over s.
func NewFromSettings(source transport.Source, sink transport.Sink, s Settings, opts ...Option) (*Client, error) {
	base := []Option{WithSendTimeout(s.SendTimeout)}
	if s.ClientName != "" {
		base = append(base, WithName(s.ClientName))
	}

	opts = append(base, opts...)

	if s.BreakerEnabled && sink != nil {
		sink = transport.NewBreakerSink(sink, s.breaker(), applyOptions(opts).log)
	}

	return New(source, sink, opts...)
}

// NewStdio wires a client to a kernel process' stdout (r) and stdin (w).
func NewStdio(r io.Reader, w io.Writer, s Settings, opts ...Option) (*Client, error) {
	source := transport.NewReaderSource(r,
		transport.WithMaxLineBytes(s.MaxLineBytes),
		transport.WithReaderLogger(applyOptions(opts).log),
	)

	return NewFromSettings(source, transport.NewWriterSink(w), s, opts...)
}
