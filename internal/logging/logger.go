// ABOUTME: Structured logger construction on top of charmbracelet/log
// ABOUTME: Logs go to stderr so stdout stays clean for MCP stdio and CLI output
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configures a logger
type Options struct {
	Level  string
	Output io.Writer
	// JSON switches to machine-readable output
	JSON   bool
	Prefix string
}

// New creates a logger writing to stderr unless Output is set
func New(opts Options) *log.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	logger := log.NewWithOptions(out, log.Options{
		Level:           ParseLevel(opts.Level),
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          opts.Prefix,
	})
	if opts.JSON {
		logger.SetFormatter(log.JSONFormatter)
	}
	return logger
}

// ParseLevel maps a level name onto a log level, defaulting to info
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
