// Package pool manages bounded per-tenant database connection pools.
//
// Pools are created lazily on the first acquisition for a (tenant, kind)
// pair from the tenant's encrypted connection descriptor, tracked by
// recency, and evicted when idle too long or when the global cap is hit.
// When a pool cannot be built or a checkout fails for operational reasons
// the manager degrades to a single direct connection for that one request
// instead of failing it; credential failures are fatal.
package pool

// Kind selects which credentials from the connection descriptor are used.
// It is a closed enum: every switch over Kind handles all cases.
type Kind uint8

const (
	// KindTenant connects with the tenant's regular application role.
	KindTenant Kind = iota
	// KindAdmin connects with the elevated role used for maintenance.
	KindAdmin
)

func (k Kind) String() string {
	switch k {
	case KindTenant:
		return "tenant"
	case KindAdmin:
		return "admin"
	default:
		return "invalid"
	}
}

func (k Kind) valid() bool {
	return k == KindTenant || k == KindAdmin
}

// Mode records how a connection was obtained.
type Mode uint8

const (
	// ModePooled connections come from a managed per-tenant pool.
	ModePooled Mode = iota
	// ModeDirect connections are unpooled one-offs used when pooling is
	// disabled or the pooled path degraded.
	ModeDirect
)

func (m Mode) String() string {
	if m == ModeDirect {
		return "direct"
	}
	return "pooled"
}
