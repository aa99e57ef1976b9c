// Package logger is the process-wide structured logger.
//
// Call sites use the key/value helpers (Info("msg", "key", value, ...));
// output is produced by zerolog as JSON lines or, for local development,
// as human-readable console output.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the default logger.
type Options struct {
	Level       string    // debug, info, warn, error
	Format      string    // json or console
	Output      io.Writer // defaults to os.Stderr
	ServiceName string
	RedactPII   bool
}

// Logger wraps a zerolog.Logger with secret and PII redaction.
type Logger struct {
	zl        zerolog.Logger
	redactPII bool
}

var (
	mu            sync.RWMutex
	defaultLogger = New(Options{Level: "info", Format: "json", RedactPII: true})
)

// New builds a Logger from opts.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zctx := zerolog.New(out).Level(ParseLevel(opts.Level)).With().Timestamp()
	if opts.ServiceName != "" {
		zctx = zctx.Str("service", opts.ServiceName)
	}
	return &Logger{zl: zctx.Logger(), redactPII: opts.RedactPII}
}

// Configure replaces the default logger.
func Configure(opts Options) {
	l := New(opts)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { current().log(zerolog.DebugLevel, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { current().log(zerolog.InfoLevel, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { current().log(zerolog.WarnLevel, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { current().log(zerolog.ErrorLevel, msg, fields...) }

func (l *Logger) log(level zerolog.Level, msg string, fields ...interface{}) {
	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}

	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		switch v := fields[i+1].(type) {
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		case error:
			ev = ev.Str(key, l.redact(key, v.Error()))
		default:
			ev = ev.Str(key, l.redact(key, fmt.Sprintf("%v", v)))
		}
	}
	ev.Msg(msg)
}

func (l *Logger) redact(key, val string) string {
	if isSecretKey(key) {
		return RedactSecret(val)
	}
	if !l.redactPII {
		return val
	}
	return redactPIIValue(key, val)
}
