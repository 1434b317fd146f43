package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when no tenant owns the subdomain.
	ErrTenantNotFound = errors.New("tenant: not found")

	// ErrTenantSuspended is returned when the tenant exists but is not active.
	ErrTenantSuspended = errors.New("tenant: suspended")

	// ErrInvalidSubdomain is returned when the extracted subdomain is not
	// a valid DNS label.
	ErrInvalidSubdomain = errors.New("tenant: invalid subdomain")

	// ErrHostRequired is returned when the request carries no usable Host
	// to resolve a tenant from. This indicates missing wiring (a proxy
	// stripping the header) rather than a client mistake.
	ErrHostRequired = errors.New("tenant: cannot resolve tenant from request host")

	// ErrNoTenantInContext is returned when a tenant is required but none
	// was resolved for the request.
	ErrNoTenantInContext = errors.New("tenant: no tenant in context")
)
