package pool

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrPoolExhausted is returned when no connection became available
	// within the bounded wait. Retriable; maps to 503 upstream.
	ErrPoolExhausted = errors.New("pool: exhausted")

	// ErrDatabase is returned on connect or driver failures that no
	// retry of this request can fix. Fatal; maps to 500 upstream.
	ErrDatabase = errors.New("pool: database failure")

	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("pool: manager is closed")

	// ErrInvalidKind is returned for a Kind outside the closed enum.
	ErrInvalidKind = errors.New("pool: invalid connection kind")

	// ErrMissingAdminCredentials is returned when KindAdmin is requested
	// for a tenant whose descriptor has no admin credentials.
	ErrMissingAdminCredentials = errors.New("pool: descriptor has no admin credentials")

	// ErrLeaseReleased is returned when a released lease is used.
	ErrLeaseReleased = errors.New("pool: lease already released")

	// ErrIdentityRequired is returned when Acquire is called without a
	// tenant identity.
	ErrIdentityRequired = errors.New("pool: tenant identity required")
)

// isCredentialError reports whether err indicates bad credentials or a
// bad descriptor rather than an operational hiccup. Credential failures
// are fatal and never trigger the direct-connection fallback: retrying
// with the same broken credentials cannot succeed.
func isCredentialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingAdminCredentials) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28000", "28P01": // invalid authorization, invalid password
			return true
		case "3D000": // database does not exist
			return true
		}
	}
	return false
}

// isAcquireTimeout reports whether err is the bounded-wait expiry of a
// pool checkout.
func isAcquireTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
