// Package logging provides a small wrapper around log/slog that is created
// once in main and passed to every component that needs it.
package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with a component label.
type Logger struct {
	*slog.Logger
	handler   slog.Handler
	component string
}

// Config holds logger configuration.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// DefaultConfig returns sensible defaults for logging.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: "app",
	}
}

// New creates a new logger with the given configuration.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}

	return &Logger{
		Logger:    slog.New(handler).With("component", config.Component),
		handler:   handler,
		component: config.Component,
	}
}

// WithComponent returns a logger relabelled with the given component name.
// The label replaces the previous one, it never stacks.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    slog.New(l.handler).With("component", component),
		handler:   l.handler,
		component: component,
	}
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *Logger {
	handler := slog.NewTextHandler(discardWriter{}, nil)
	return &Logger{
		Logger:    slog.New(handler),
		handler:   handler,
		component: "test",
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
