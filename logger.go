package skyfetch

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger receives structured debug output. Provide one via WithLogger or
// WithSimpleLogger; the library stays silent otherwise.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SimpleLogger writes leveled key=value lines to standard error.
type SimpleLogger struct {
	out *log.Logger
}

// NewSimpleLogger creates a console logger suitable for development.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		out: log.New(os.Stderr, "skyfetch ", log.LstdFlags|log.Lmicroseconds),
	}
}

// Debug implements Logger.
func (l *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log("DEBUG", msg, keysAndValues...)
}

// Info implements Logger.
func (l *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log("INFO", msg, keysAndValues...)
}

// Warn implements Logger.
func (l *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log("WARN", msg, keysAndValues...)
}

// Error implements Logger.
func (l *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log("ERROR", msg, keysAndValues...)
}

func (l *SimpleLogger) log(level, msg string, keysAndValues ...interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	if len(keysAndValues)%2 != 0 {
		fmt.Fprintf(&b, " %v=?", keysAndValues[len(keysAndValues)-1])
	}

	l.out.Println(b.String())
}

// DebugConfig selects which lifecycle events are logged when debugging is
// enabled, so individual concerns can be inspected without noise.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogCache     bool
	LogRetries   bool
	LogDedup     bool
	LogScheduler bool
	LogPool      bool
	RequestIDGen func() string
}

// DefaultDebugConfig enables all event categories with short UUID request IDs.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:      false,
		LogRequests:  true,
		LogCache:     true,
		LogRetries:   true,
		LogDedup:     true,
		LogScheduler: true,
		LogPool:      true,
		RequestIDGen: defaultRequestID,
	}
}

func defaultRequestID() string {
	return uuid.NewString()[:8]
}
