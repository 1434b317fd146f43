package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status of a tenant in the registry.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// InstallKind describes where the tenant's data lives.
type InstallKind string

const (
	// InstallShared tenants share a database cluster, isolated by the
	// mandatory tenant filter.
	InstallShared InstallKind = "shared"
	// InstallDedicated tenants have their own database.
	InstallDedicated InstallKind = "dedicated"
)

// ConnectionDescriptor holds everything needed to reach a tenant's
// database. Passwords are stored encrypted (see pkg/secrets) and only
// decrypted inside the connection pool manager.
type ConnectionDescriptor struct {
	Host                   string `json:"host"`
	Port                   uint16 `json:"port"`
	Database               string `json:"database"`
	User                   string `json:"user"`
	EncryptedPassword      string `json:"encrypted_password"`
	AdminUser              string `json:"admin_user,omitempty"`
	EncryptedAdminPassword string `json:"encrypted_admin_password,omitempty"`
}

// Identity is a tenant record as provisioned in the registry. It is
// read-only from this subsystem's perspective.
type Identity struct {
	ID          uuid.UUID            `json:"id"`
	Subdomain   string               `json:"subdomain"`
	Name        string               `json:"name"`
	Status      Status               `json:"status"`
	InstallKind InstallKind          `json:"install_kind"`
	Connection  ConnectionDescriptor `json:"-"`
	// CredentialKey is the per-tenant half of the compound encryption
	// key protecting the connection credentials.
	CredentialKey []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Active reports whether the tenant may serve traffic.
func (i *Identity) Active() bool {
	return i != nil && i.Status == StatusActive
}

// Directory looks tenants up in the registry. The registry itself
// (provisioning, storage) is external to this subsystem.
type Directory interface {
	// LookupBySubdomain returns the tenant owning the subdomain.
	// Returns ErrTenantNotFound when no tenant matches.
	LookupBySubdomain(ctx context.Context, subdomain string) (*Identity, error)
}
