// Package logging builds the zerolog logger that writes into the HAL line sink.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"ringos/hal"
)

const consoleTimeFormat = "15:04:05.000"

// Config selects the level and output format.
type Config struct {
	Level string `yaml:"level"`
	// Console renders human-readable lines instead of JSON.
	Console bool `yaml:"console"`
}

// ParseLevel accepts trace, debug, info, warn(ing), error and disabled, case-insensitive.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel, nil
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "", "INFO":
		return zerolog.InfoLevel, nil
	case "WARN", "WARNING":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "DISABLED", "OFF":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// New returns a logger writing one line per event to sink.
func New(sink hal.Logger, cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	var w io.Writer = LineWriter{Sink: sink}
	if cfg.Console {
		w = zerolog.ConsoleWriter{
			Out:        LineWriter{Sink: sink},
			NoColor:    true,
			TimeFormat: consoleTimeFormat,
		}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// LineWriter adapts a hal.Logger to io.Writer. Each Write is one log line; the trailing
// newline zerolog appends is dropped because the sink adds its own.
type LineWriter struct {
	Sink hal.Logger
}

func (w LineWriter) Write(p []byte) (int, error) {
	if w.Sink == nil {
		return len(p), nil
	}
	w.Sink.WriteLineBytes(bytes.TrimRight(p, "\r\n"))
	return len(p), nil
}
