// Package logger provides the package-level logging surface used across
// typeahead, backed by charmbracelet/log.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

var std = log.NewWithOptions(os.Stderr, log.Options{
	Prefix:          "typeahead",
	ReportTimestamp: true,
	Level:           log.InfoLevel,
})

// Setup points the logger at w with the given level. Daemon mode calls
// this with its log file; the zero configuration logs to stderr at info.
func Setup(w io.Writer, level string) {
	std = log.NewWithOptions(w, log.Options{
		Prefix:          "typeahead",
		ReportTimestamp: true,
		Level:           ParseLevel(level),
	})
}

// SetLevel adjusts the level of the active logger.
func SetLevel(level string) {
	std.SetLevel(ParseLevel(level))
}

// ParseLevel maps a level name to a charm log level, defaulting to info.
func ParseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Debug logs a formatted debug message.
func Debug(format string, v ...any) { std.Debugf(format, v...) }

// Info logs a formatted info message.
func Info(format string, v ...any) { std.Infof(format, v...) }

// Warn logs a formatted warning.
func Warn(format string, v ...any) { std.Warnf(format, v...) }

// Error logs a formatted error.
func Error(format string, v ...any) { std.Errorf(format, v...) }

// Fatal logs a formatted error and exits.
func Fatal(format string, v ...any) { std.Fatalf(format, v...) }
