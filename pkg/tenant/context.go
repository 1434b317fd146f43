package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Tenant context is strictly request-scoped: it travels on the
// context.Context of one call chain and is never stored in a package
// variable, so concurrent requests cannot observe each other's tenant.

type identityKey struct{}
type overrideKey struct{}

// WithIdentity attaches the resolved tenant to the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// FromContext retrieves the resolved tenant, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}

// IDFromContext retrieves just the resolved tenant id.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	identity, ok := FromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return identity.ID, true
}

// WithSuperadminOverride marks the request as a superadmin operating
// across tenant boundaries. Set only after the mandatory audit record
// has been written.
func WithSuperadminOverride(ctx context.Context) context.Context {
	return context.WithValue(ctx, overrideKey{}, true)
}

// HasSuperadminOverride reports whether cross-tenant access was granted
// for this request.
func HasSuperadminOverride(ctx context.Context) bool {
	ok, _ := ctx.Value(overrideKey{}).(bool)
	return ok
}

// LoggerExtractor adds the resolved tenant id to every log record.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := IDFromContext(ctx); ok {
			return slog.String("tenant_id", id.String()), true
		}
		return slog.Attr{}, false
	}
}
