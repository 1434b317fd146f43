package repo

import "github.com/google/uuid"

type queryOptions struct {
	tenantID  uuid.UUID
	hasTenant bool
	bypass    bool
}

// QueryOption adjusts the scoping of a single repository call.
type QueryOption func(*queryOptions)

// WithTenant scopes the call to the given tenant instead of the one on
// the request context.
func WithTenant(id uuid.UUID) QueryOption {
	return func(o *queryOptions) {
		o.tenantID = id
		o.hasTenant = true
	}
}

// WithBypassTenantFilter requests an unfiltered call. It only takes
// effect when the global AllowBypass flag is on; otherwise the call
// fails with ErrBypassDisabled.
func WithBypassTenantFilter() QueryOption {
	return func(o *queryOptions) { o.bypass = true }
}
