// Package audit records security-relevant events: superadmin cross-tenant
// access and tenant-filter bypasses. Events are written synchronously so a
// request cannot proceed past a mandatory audit point without a record.
package audit

import (
	"context"
	"fmt"
	"time"
)

// Well-known actions recorded by this subsystem.
const (
	ActionCrossTenantAccess  = "auth.cross_tenant_access"
	ActionTenantFilterBypass = "repo.tenant_filter_bypass"
)

// Result represents the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultError   Result = "error"
)

// Event is a single audit record. TenantID is the actor's home tenant;
// TargetTenantID is set when the action crossed a tenant boundary.
type Event struct {
	ID             string         `json:"id"`
	Action         string         `json:"action"`
	ActorID        string         `json:"actor_id"`
	TenantID       string         `json:"tenant_id"`
	TargetTenantID string         `json:"target_tenant_id,omitempty"`
	Result         Result         `json:"result"`
	Error          string         `json:"error,omitempty"`
	RequestID      string         `json:"request_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate checks required fields before storage.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// Storage persists audit events. Implementations are external to this
// subsystem (database table, append-only log, SIEM forwarder).
type Storage interface {
	Store(ctx context.Context, event Event) error
}

// Logger records audit events.
type Logger interface {
	// Log records a successful action.
	Log(ctx context.Context, action string, opts ...EventOption) error
	// LogError records a failed action.
	LogError(ctx context.Context, action string, err error, opts ...EventOption) error
}

// EventOption customizes an event at log time.
type EventOption func(*Event)

// WithActor sets the acting principal.
func WithActor(actorID string) EventOption {
	return func(e *Event) { e.ActorID = actorID }
}

// WithTenant sets the actor's home tenant.
func WithTenant(tenantID string) EventOption {
	return func(e *Event) { e.TenantID = tenantID }
}

// WithTargetTenant marks the event as crossing into another tenant.
func WithTargetTenant(tenantID string) EventOption {
	return func(e *Event) { e.TargetTenantID = tenantID }
}

// WithMetadata attaches free-form metadata.
func WithMetadata(md map[string]any) EventOption {
	return func(e *Event) { e.Metadata = md }
}
