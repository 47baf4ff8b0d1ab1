// Package logging initialises an apex/log logger from the CLI configuration,
// installs it into the template library and propagates it through contexts.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"

	"github.com/benjaminschreck/go-stache/internal/config"
	"github.com/benjaminschreck/go-stache/pkg/stache"
)

type ctxKey struct{}

// Setup creates a logger configured according to cfg, writing to stderr.
func Setup(cfg *config.Config) *log.Logger {
	return SetupWithWriter(cfg, os.Stderr)
}

// SetupWithWriter creates a logger configured according to cfg, writing to w,
// and installs it as the template library's logger.
func SetupWithWriter(cfg *config.Config, w io.Writer) *log.Logger {
	var handler log.Handler

	switch cfg.LogFormat {
	case config.LogFormatJSON:
		handler = json.New(w)
	default:
		handler = text.New(w)
	}

	logger := &log.Logger{
		Handler: handler,
		Level:   ParseLevel(cfg.EffectiveLogLevel()),
	}
	stache.SetLogger(logger)

	return logger
}

// ParseLevel converts a configured log level to an apex/log level.
func ParseLevel(level string) log.Level {
	switch level {
	case config.LogLevelDebug:
		return log.DebugLevel
	case config.LogLevelWarn:
		return log.WarnLevel
	case config.LogLevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewContext returns a child context carrying logger.
func NewContext(ctx context.Context, logger log.Interface) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from ctx, falling back to the library logger.
func FromContext(ctx context.Context) log.Interface {
	if l, ok := ctx.Value(ctxKey{}).(log.Interface); ok {
		return l
	}

	return stache.GetLogger()
}
