// Package logger builds slog loggers with environment-aware defaults and
// automatic injection of request-scoped attributes (tenant id, request id)
// extracted from context at log time.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrymomot/tenantkit/pkg/environment"
)

// Format selects the log output encoding.
type Format string

const (
	// FormatJSON for structured output consumed by log aggregation.
	FormatJSON Format = "json"
	// FormatText for human-readable development output.
	FormatText Format = "text"
)

// ContextExtractor pulls a slog attribute out of a request context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

type config struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
}

// Option configures logger construction.
type Option func(*config)

// WithLevel sets the minimum log level.
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output encoding.
func WithFormat(f Format) Option {
	return func(c *config) { c.format = f }
}

// WithOutput sets a custom output destination. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) { c.attrs = append(c.attrs, attrs...) }
}

// WithContextExtractors registers extractors that inject request-scoped
// attributes. Nil extractors are skipped.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		for _, ex := range extractors {
			if ex != nil {
				c.extractors = append(c.extractors, ex)
			}
		}
	}
}

// WithEnvironment applies conventional defaults for the deployment mode:
// text/debug in development, JSON/info everywhere else.
func WithEnvironment(env environment.Environment, service string) Option {
	return func(c *config) {
		if env == environment.Development {
			c.format = FormatText
			c.level = slog.LevelDebug
		} else {
			c.format = FormatJSON
			c.level = slog.LevelInfo
		}
		if service != "" {
			c.attrs = append(c.attrs,
				slog.String("service", service),
				slog.String("env", string(env)),
			)
		}
	}
}

// New creates a configured *slog.Logger. The returned logger resolves
// context extractors on every record so request-scoped values stay fresh.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}

	var handler slog.Handler
	if cfg.format == FormatText {
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}

	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}

	return slog.New(newContextHandler(handler, cfg.extractors))
}
