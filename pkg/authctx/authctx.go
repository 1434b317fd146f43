// Package authctx builds the per-request authentication context: it
// decodes the bearer token, checks revocation, and enforces that the
// token's tenant matches the tenant resolved from the host. Superadmins
// may cross tenants, but only with a synchronous audit record. The
// revocation check is the single deliberate fail-soft in this
// subsystem: an unavailable store is logged and treated as not revoked.
package authctx

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/jwt"
)

// Claims is the token payload this subsystem issues and accepts.
type Claims struct {
	jwt.StandardClaims
	TenantID     string `json:"tenant_id"`
	AccessLevel  int    `json:"access_level"`
	IsSuperadmin bool   `json:"is_super_admin"`
}

// User is the full principal with resolved roles, loaded lazily when a
// handler actually needs it.
type User struct {
	ID    uuid.UUID
	Email string
	Roles []string
}

// UserLoader resolves the full user object. External collaborator; the
// role/permission service behind it is a black box here.
type UserLoader func(ctx context.Context, userID uuid.UUID) (*User, error)

// AuthContext is the cheap per-request principal, built once from
// claims plus the revocation check. The full user is fetched on first
// use through User.
type AuthContext struct {
	UserID       uuid.UUID
	TenantID     uuid.UUID
	AccessLevel  int
	IsSuperadmin bool
	TokenJTI     string

	loader   UserLoader
	userOnce sync.Once
	user     *User
	userErr  error
}

// User loads the full user-with-roles object. The result is cached for
// the life of the request.
func (a *AuthContext) User(ctx context.Context) (*User, error) {
	if a.loader == nil {
		return nil, ErrNoUserLoader
	}
	a.userOnce.Do(func() {
		a.user, a.userErr = a.loader(ctx, a.UserID)
	})
	return a.user, a.userErr
}

type authContextKey struct{}

// WithContext stores the auth context on ctx.
func WithContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext returns the auth context set by the builder.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return ac, ok
}

// ActorIDExtractor adapts the auth context for audit event enrichment.
func ActorIDExtractor() func(ctx context.Context) (string, bool) {
	return func(ctx context.Context) (string, bool) {
		ac, ok := FromContext(ctx)
		if !ok {
			return "", false
		}
		return ac.UserID.String(), true
	}
}

// LoggerExtractor exposes the authenticated user id to the structured
// logger.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		ac, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String("user_id", ac.UserID.String()), true
	}
}
