// Package tenantkit is a tenant isolation and connection management
// layer for multi-tenant SaaS backends.
//
// It resolves the target tenant from the request host, maintains
// bounded per-tenant connection pools with LRU eviction, forces a
// bound-parameter tenant predicate onto every tenant-scoped query,
// validates bearer tokens against the resolved tenant, and scopes
// multi-statement transactions to a single borrowed connection.
//
// The building blocks live under pkg/ and compose as middleware:
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//	r.Use(environment.Middleware(env))
//	r.Use(tenant.Middleware(resolver))
//	r.Use(authctx.Middleware(builder))
//
// Tenant identity propagates through the request context only; there
// is no process-global tenant state.
package tenantkit
