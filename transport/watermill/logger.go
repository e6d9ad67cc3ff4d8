package watermill

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/shortlink-org/kernel-client/logger"
)

type loggerAdapter struct {
	log    logger.Logger
	fields watermill.LogFields
}

// NewLogger routes Watermill's internal logging into log.
func NewLogger(log logger.Logger) watermill.LoggerAdapter {
	if log == nil {
		log = logger.Nop()
	}

	return &loggerAdapter{
		log:    log,
		fields: make(watermill.LogFields),
	}
}

func (l *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{
		log:    l.log,
		fields: l.fields.Add(fields),
	}
}

// mergeFields flattens base and call fields into key/value pairs; call fields win.
func (l *loggerAdapter) mergeFields(fields watermill.LogFields) []any {
	out := make([]any, 0, 2*(len(l.fields)+len(fields)))

	for k, v := range l.fields {
		if _, overridden := fields[k]; overridden {
			continue
		}

		out = append(out, k, v)
	}

	for k, v := range fields {
		out = append(out, k, v)
	}

	return out
}

func (l *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	kv := l.mergeFields(fields)
	if err != nil {
		kv = append(kv, "reason", err.Error())
	}

	l.log.Error(msg, kv...)
}

func (l *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.log.Info(msg, l.mergeFields(fields)...)
}

func (l *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.log.Debug(msg, l.mergeFields(fields)...)
}

func (l *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.Debug(msg, fields)
}
