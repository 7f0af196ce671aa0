package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TimeFormat is the timestamp layout used by the text format
const TimeFormat = "2006-01-02 15:04:05"

// Structured field names that the text format keeps out of the rendered line
// because the message already carries them.
var textExcludedFields = []string{"component", "engine", "format", "operation", "elapsed_seconds"}

// New builds the logger for one run. Nothing global is touched, so two runs
// in the same process (tests) can log with different settings.
// A nil out writes to stdout.
func New(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	var output io.Writer = out
	switch strings.ToLower(format) {
	case "json":
	case "console":
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	default:
		// "<timestamp> - INFO - <message>"
		output = zerolog.ConsoleWriter{
			Out:           out,
			NoColor:       true,
			PartsOrder:    []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName},
			FieldsExclude: textExcludedFields,
			FormatTimestamp: func(i interface{}) string {
				ts := fmt.Sprintf("%v", i)
				if t, err := time.Parse(zerolog.TimeFieldFormat, ts); err == nil {
					ts = t.Local().Format(TimeFormat)
				}
				return ts + " -"
			},
			FormatLevel: func(i interface{}) string {
				return fmt.Sprintf("%s -", strings.ToUpper(fmt.Sprintf("%v", i)))
			},
		}
	}

	return zerolog.New(output).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// parseLevel converts string level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger tagged with the given component name
func With(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}
