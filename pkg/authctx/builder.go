package authctx

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
	"github.com/dmitrymomot/tenantkit/pkg/jwt"
	"github.com/dmitrymomot/tenantkit/pkg/revocation"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Builder validates bearer tokens against the resolved tenant.
type Builder struct {
	jwt        *jwt.Service
	revocation revocation.Checker
	audit      audit.Logger
	loader     UserLoader
	log        *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRevocationChecker enables the token revocation check.
func WithRevocationChecker(c revocation.Checker) Option {
	return func(b *Builder) { b.revocation = c }
}

// WithAuditLogger sets the sink for cross-tenant access records.
// Required if superadmin tokens are in circulation: cross-tenant access
// fails without it.
func WithAuditLogger(a audit.Logger) Option {
	return func(b *Builder) { b.audit = a }
}

// WithUserLoader enables lazy loading of the full user object.
func WithUserLoader(l UserLoader) Option {
	return func(b *Builder) { b.loader = l }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// NewBuilder creates a Builder around the token service.
func NewBuilder(jwtService *jwt.Service, opts ...Option) *Builder {
	if jwtService == nil {
		panic("authctx: jwt service cannot be nil")
	}

	b := &Builder{
		jwt: jwtService,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates the token and returns a context carrying the
// AuthContext. The returned context also carries the superadmin
// override marker when a superadmin crossed tenants, after the audit
// record was written.
func (b *Builder) Build(ctx context.Context, token string) (context.Context, *AuthContext, error) {
	if token == "" {
		return ctx, nil, ErrMissingToken
	}

	var claims Claims
	if err := b.jwt.Parse(token, &claims); err != nil {
		return ctx, nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, nil, ErrInvalidClaims
	}
	tokenTenant, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return ctx, nil, ErrInvalidClaims
	}
	// A token without a jti could never be revoked.
	if claims.ID == "" {
		return ctx, nil, ErrInvalidClaims
	}

	if err := b.checkRevocation(ctx, claims.ID); err != nil {
		return ctx, nil, err
	}

	resolvedTenant, ok := tenant.IDFromContext(ctx)
	if !ok {
		return ctx, nil, ErrTenantContextMissing
	}

	if tokenTenant != resolvedTenant {
		if !claims.IsSuperadmin {
			return ctx, nil, ErrTenantMismatch
		}
		if err := b.recordCrossTenant(ctx, userID, tokenTenant, resolvedTenant); err != nil {
			return ctx, nil, err
		}
		ctx = tenant.WithSuperadminOverride(ctx)
	}

	ac := &AuthContext{
		UserID:       userID,
		TenantID:     tokenTenant,
		AccessLevel:  claims.AccessLevel,
		IsSuperadmin: claims.IsSuperadmin,
		TokenJTI:     claims.ID,
		loader:       b.loader,
	}
	return WithContext(ctx, ac), ac, nil
}

// checkRevocation consults the revocation store. An unavailable store
// is logged and treated as not revoked so the store's downtime does not
// take authentication down with it.
func (b *Builder) checkRevocation(ctx context.Context, jti string) error {
	if b.revocation == nil {
		return nil
	}

	status, err := b.revocation.Check(ctx, jti)
	switch status {
	case revocation.StatusRevoked:
		return ErrTokenRevoked
	case revocation.StatusUnavailable:
		b.log.WarnContext(ctx, "revocation store unavailable, treating token as not revoked",
			slog.String("jti", jti),
			slog.Any("error", err),
		)
	}
	return nil
}

// recordCrossTenant writes the audit record for a superadmin crossing
// tenants. The write is synchronous and mandatory: if it fails the
// request does not proceed.
func (b *Builder) recordCrossTenant(ctx context.Context, actor uuid.UUID, home, target uuid.UUID) error {
	if b.audit == nil {
		return ErrTenantMismatch
	}
	return b.audit.Log(ctx, audit.ActionCrossTenantAccess,
		audit.WithActor(actor.String()),
		audit.WithTenant(home.String()),
		audit.WithTargetTenant(target.String()),
	)
}
