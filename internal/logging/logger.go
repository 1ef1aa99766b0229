// Package logging provides the subsystem logger with redaction support.
// Secret material must never reach a log line; wrap anything derived from
// a token or bundle field in Secret before formatting it.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Logger writes human-readable diagnostics to stderr.
type Logger struct {
	debug   bool
	noColor bool
	out     io.Writer
}

// New creates a logger. Debug lines are suppressed unless debug is set.
func New(debug, noColor bool) *Logger {
	return &Logger{debug: debug, noColor: noColor, out: os.Stderr}
}

// NewWithWriter creates a logger writing to the given writer, for tests.
func NewWithWriter(debug bool, out io.Writer) *Logger {
	return &Logger{debug: debug, noColor: true, out: out}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit("\033[32m✓\033[0m", "✓", format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit("\033[33m⚠\033[0m", "⚠", format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit("\033[31m✗\033[0m", "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit("\033[36m[DEBUG]\033[0m", "[DEBUG]", format, args...)
}

func (l *Logger) emit(colored, plain, format string, args ...interface{}) {
	glyph := colored
	if l.noColor {
		glyph = plain
	}
	fmt.Fprintf(l.out, "%s %s\n", glyph, fmt.Sprintf(format, args...))
}

// Secret is a value that must be redacted when formatted.
type Secret string

// String implements fmt.Stringer, always returning a redacted value.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces every occurrence of the given secrets in s with [REDACTED].
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		// Short fragments would mangle unrelated output.
		if len(secret) > 3 {
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
