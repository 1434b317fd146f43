package authctx

import "errors"

var (
	// ErrMissingToken is returned when no bearer token accompanies the
	// request.
	ErrMissingToken = errors.New("authctx: missing bearer token")

	// ErrInvalidClaims is returned when the token parses but its claims
	// are unusable (bad subject or tenant id).
	ErrInvalidClaims = errors.New("authctx: invalid token claims")

	// ErrTokenRevoked is returned when the revocation store reports the
	// token as revoked.
	ErrTokenRevoked = errors.New("authctx: token has been revoked")

	// ErrTenantMismatch is returned when the token's tenant claim does
	// not match the resolved tenant and the principal is not a
	// superadmin.
	ErrTenantMismatch = errors.New("authctx: token tenant does not match request tenant")

	// ErrTenantContextMissing is returned when no tenant was resolved
	// before authentication ran. This is an infrastructure fault, never
	// attributable to the caller.
	ErrTenantContextMissing = errors.New("authctx: no tenant resolved on request context")

	// ErrAccessDenied is returned when the principal's access level is
	// below a required threshold.
	ErrAccessDenied = errors.New("authctx: insufficient access level")

	// ErrNoAuthContext is returned when an AuthContext is read off a
	// context that never went through the builder.
	ErrNoAuthContext = errors.New("authctx: no auth context on request")

	// ErrNoUserLoader is returned when the full user object is requested
	// but the builder was not given a loader.
	ErrNoUserLoader = errors.New("authctx: no user loader configured")
)
