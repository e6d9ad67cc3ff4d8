package logger

// WithFields creates a new logger with pre-set fields
func (log *SlogLogger) WithFields(fields ...any) *SlogLogger {
	if len(fields) == 0 {
		return log
	}

	return &SlogLogger{logger: log.logger.With(fields...)}
}

// WithError creates a new logger with error field
func (log *SlogLogger) WithError(err error) *SlogLogger {
	if err == nil {
		return log
	}

	return log.WithFields("error", err.Error())
}

// WithComponent tags every record with the emitting component, e.g. "bus" or "pump".
func (log *SlogLogger) WithComponent(name string) *SlogLogger {
	if name == "" {
		return log
	}

	return log.WithFields("component", name)
}

// WithTags creates a new logger with multiple tags
func (log *SlogLogger) WithTags(tags map[string]string) *SlogLogger {
	if len(tags) == 0 {
		return log
	}

	fields := make([]any, 0, len(tags)*2)
	for k, v := range tags {
		if k != "" && v != "" {
			fields = append(fields, k, v)
		}
	}

	if len(fields) == 0 {
		return log
	}

	return log.WithFields(fields...)
}
