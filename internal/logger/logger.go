// Package logger provides structured logging for the RightHome backend
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with key/value style helpers
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or pretty
	Output io.Writer
}

// New creates a new structured logger
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "pretty") || strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "righthome").
		Logger()

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{zlog: l.zlog.With().Fields(keysAndValues).Logger()}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.zlog.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.zlog.Info().Fields(keysAndValues).Msg(msg)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zlog.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.zlog.Error().Fields(keysAndValues).Msg(msg)
}

func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.zlog.Fatal().Fields(keysAndValues).Msg(msg)
}
