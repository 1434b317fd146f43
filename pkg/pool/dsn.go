package pool

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/dmitrymomot/tenantkit/pkg/secrets"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// buildDSN decrypts the credentials for the requested kind and assembles
// a connection string. The plaintext password exists only in the returned
// DSN, which is handed straight to the opener and never logged.
func buildDSN(appKey []byte, identity *tenant.Identity, kind Kind) (string, error) {
	desc := identity.Connection

	var user, encrypted string
	switch kind {
	case KindTenant:
		user, encrypted = desc.User, desc.EncryptedPassword
	case KindAdmin:
		if desc.AdminUser == "" || desc.EncryptedAdminPassword == "" {
			return "", errors.Join(ErrDatabase, ErrMissingAdminCredentials)
		}
		user, encrypted = desc.AdminUser, desc.EncryptedAdminPassword
	default:
		return "", ErrInvalidKind
	}

	password, err := secrets.DecryptString(appKey, identity.CredentialKey, encrypted)
	if err != nil {
		return "", errors.Join(ErrDatabase, err)
	}

	port := desc.Port
	if port == 0 {
		port = 5432
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		url.QueryEscape(user),
		url.QueryEscape(password),
		desc.Host,
		port,
		url.PathEscape(desc.Database),
	), nil
}
