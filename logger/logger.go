package logger

import (
	"context"
	"log/slog"

	"github.com/shortlink-org/kernel-client/logger/tracer"
)

type SlogLogger struct {
	logger *slog.Logger
}

func New(cfg Configuration) (*SlogLogger, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(cfg.Writer, &slog.HandlerOptions{
		Level:     convertLevel(cfg.Level),
		AddSource: true,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(cfg.TimeFormat))
			}

			return a
		},
	})

	return &SlogLogger{logger: slog.New(handler)}, nil
}

// Nop returns a logger that drops every record.
func Nop() *SlogLogger {
	return &SlogLogger{logger: slog.New(slog.DiscardHandler)}
}

func (log *SlogLogger) Close() error {
	// slog.Logger keeps no buffer of its own
	return nil
}

func convertLevel(level int) slog.Level {
	switch level {
	case ERROR_LEVEL:
		return slog.LevelError
	case WARN_LEVEL:
		return slog.LevelWarn
	case INFO_LEVEL:
		return slog.LevelInfo
	case DEBUG_LEVEL:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func (log *SlogLogger) logWithContext(ctx context.Context, level slog.Level, msg string, fields ...any) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !log.logger.Enabled(ctx, level) {
		return
	}

	fields, err := tracer.NewTraceFromContext(ctx, level.String(), msg, nil, fields...)
	if err != nil {
		log.logger.ErrorContext(ctx, "Error sending span to OpenTelemetry: "+err.Error())
	}

	log.logger.Log(ctx, level, msg, fields...)
}
