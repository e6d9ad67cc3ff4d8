package logger

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Log levels. The numeric values are what LOG_LEVEL carries in ENV.
//
//nolint:revive,stylecheck // keep the ENV-facing names
const (
	ERROR_LEVEL = iota
	WARN_LEVEL
	INFO_LEVEL
	DEBUG_LEVEL
)

// Configuration - options for the logger.
type Configuration struct {
	Writer     io.Writer
	TimeFormat string
	Level      int
}

// Default returns the configuration used when nothing is set.
func Default() Configuration {
	return Configuration{
		Writer:     os.Stdout,
		TimeFormat: time.RFC3339Nano,
		Level:      INFO_LEVEL,
	}
}

// Validate checks the level and fills in a writer and time format when they are empty.
func (c *Configuration) Validate() error {
	if c.Level < ERROR_LEVEL || c.Level > DEBUG_LEVEL {
		return fmt.Errorf("%w: %d", ErrInvalidLogLevel, c.Level)
	}

	if c.Writer == nil {
		c.Writer = os.Stdout
	}

	if c.TimeFormat == "" {
		c.TimeFormat = time.RFC3339Nano
	}

	return nil
}
