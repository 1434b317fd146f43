package authctx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tenantkit/pkg/jwt"
)

// ErrorHandler renders an authentication failure.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	errorHandler ErrorHandler
}

// WithErrorHandler overrides the default failure response.
func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// Middleware authenticates requests with the builder and injects the
// AuthContext. It must run after tenant resolution.
func Middleware(builder *Builder, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _, err := builder.Build(r.Context(), BearerToken(r))
			if err != nil {
				cfg.errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLevel rejects authenticated requests below the given access
// level. It must run after Middleware.
func RequireLevel(min int, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := middlewareConfig{errorHandler: defaultErrorHandler}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := FromContext(r.Context())
			if !ok {
				cfg.errorHandler(w, r, ErrNoAuthContext)
				return
			}
			if ac.AccessLevel < min && !ac.IsSuperadmin {
				cfg.errorHandler(w, r, ErrAccessDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header. Empty
// when absent or malformed.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidClaims),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrExpiredToken),
		errors.Is(err, jwt.ErrInvalidSignature),
		errors.Is(err, jwt.ErrUnexpectedSigningMethod):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrTenantMismatch), errors.Is(err, ErrAccessDenied):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
