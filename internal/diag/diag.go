// Package diag provides the engine's pluggable diagnostic sink. The engine
// formats free-text operational messages into whichever Logger an open
// database was configured with. The Logger's address doubles as the
// correlation token the tap registry keys on, so every open database gets
// its own instance.
package diag

import (
	"github.com/sirupsen/logrus"
)

// Logger is an opaque sink with a single formatting entry point.
type Logger struct {
	logf func(format string, args ...interface{})
}

// New wraps an arbitrary formatting function.
func New(logf func(format string, args ...interface{})) *Logger {
	return &Logger{logf: logf}
}

// NewLogrus forwards engine diagnostics to a logrus logger at debug level.
func NewLogrus(log logrus.FieldLogger) *Logger {
	return &Logger{logf: log.Debugf}
}

// Discard returns a fresh silent sink. Sweeps use one of these: the
// messages are irrelevant, only the sink's identity matters.
func Discard() *Logger {
	return &Logger{}
}

// Logf formats one diagnostic message. Safe on a Logger with no underlying
// sink.
func (l *Logger) Logf(format string, args ...interface{}) {
	if l == nil || l.logf == nil {
		return
	}
	l.logf(format, args...)
}
