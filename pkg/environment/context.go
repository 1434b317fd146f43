package environment

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithContext attaches the environment to the context.
func WithContext(ctx context.Context, env Environment) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext retrieves the environment from the context.
// Returns Production when none is set: absent wiring must never
// relax the trust policy.
func FromContext(ctx context.Context) Environment {
	if ctx == nil {
		return Production
	}
	env, ok := ctx.Value(contextKey{}).(Environment)
	if !ok {
		return Production
	}
	return env
}

// IsProduction checks if the environment from context is production-like.
func IsProduction(ctx context.Context) bool {
	return FromContext(ctx).IsProductionLike()
}

// IsDevelopment checks if the environment from context is development.
func IsDevelopment(ctx context.Context) bool {
	return FromContext(ctx) == Development
}

// LoggerExtractor returns a logger context extractor that adds the
// deployment mode to every log record.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if env, ok := ctx.Value(contextKey{}).(Environment); ok {
			return slog.String("env", string(env)), true
		}
		return slog.Attr{}, false
	}
}
