package tenant

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// ErrorHandler renders tenant-resolution failures.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	errorHandler ErrorHandler
	skipPaths    []string
	logger       *slog.Logger
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths lists path prefixes that bypass tenant resolution
// (health probes, webhooks addressed by the base domain).
func WithSkipPaths(paths ...string) MiddlewareOption {
	return func(c *middlewareConfig) { c.skipPaths = append(c.skipPaths, paths...) }
}

// WithLogger sets the middleware logger.
func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Middleware resolves the request's tenant and stores it in the request
// context for every downstream component. Resolution failures terminate
// the request; there is no anonymous-tenant mode.
func Middleware(resolver *Resolver, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		errorHandler: defaultErrorHandler,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			identity, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				if errors.Is(err, ErrHostRequired) {
					cfg.logger.ErrorContext(r.Context(), "tenant resolution misconfigured",
						slog.String("host", r.Host), slog.Any("error", err))
				}
				cfg.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireTenant guards routes that must not run without a resolved tenant.
func RequireTenant(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = defaultErrorHandler
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, ErrNoTenantInContext)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTenantNotFound), errors.Is(err, ErrInvalidSubdomain):
		http.Error(w, "Tenant not found", http.StatusNotFound)
	case errors.Is(err, ErrTenantSuspended):
		http.Error(w, "Tenant is suspended", http.StatusForbidden)
	default:
		// Configuration failures stay opaque to the client.
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
