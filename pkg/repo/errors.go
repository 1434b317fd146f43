package repo

import "errors"

var (
	// ErrTenantContextRequired is returned when a tenant-scoped call has
	// neither an explicit tenant id nor a tenant on the request context.
	// The query is never issued.
	ErrTenantContextRequired = errors.New("repo: tenant context required")

	// ErrBypassDisabled is returned when a call opts into the tenant
	// filter bypass while the global flag is off. Deliberately distinct
	// from ErrTenantContextRequired so the two escape hatches cannot be
	// conflated.
	ErrBypassDisabled = errors.New("repo: tenant filter bypass is disabled")

	// ErrInvalidTable is returned when a table definition is unusable.
	ErrInvalidTable = errors.New("repo: invalid table definition")
)
