// Package httperr maps the subsystem's error taxonomy onto HTTP
// responses. Authentication failures are 401, tenant mismatches and
// insufficient access 403, unknown tenants 404, pool exhaustion 503,
// and infrastructure faults 500. Server errors carry the request id as
// a correlation code and never leak internal detail.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/tenantkit/pkg/authctx"
	"github.com/dmitrymomot/tenantkit/pkg/jwt"
	"github.com/dmitrymomot/tenantkit/pkg/pool"
	"github.com/dmitrymomot/tenantkit/pkg/repo"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/uow"
)

// Response is the JSON error body.
type Response struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// From classifies err into an opaque response.
func From(err error) Response {
	switch {
	case errors.Is(err, authctx.ErrMissingToken),
		errors.Is(err, authctx.ErrInvalidClaims),
		errors.Is(err, authctx.ErrTokenRevoked),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrExpiredToken),
		errors.Is(err, jwt.ErrInvalidSignature),
		errors.Is(err, jwt.ErrUnexpectedSigningMethod):
		return Response{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "authentication required"}

	case errors.Is(err, authctx.ErrTenantMismatch),
		errors.Is(err, authctx.ErrAccessDenied),
		errors.Is(err, tenant.ErrTenantSuspended):
		return Response{Status: http.StatusForbidden, Code: "forbidden", Message: "access denied"}

	case errors.Is(err, tenant.ErrTenantNotFound),
		errors.Is(err, tenant.ErrInvalidSubdomain),
		errors.Is(err, tenant.ErrHostRequired):
		return Response{Status: http.StatusNotFound, Code: "tenant_not_found", Message: "tenant not found"}

	case errors.Is(err, pool.ErrPoolExhausted):
		return Response{Status: http.StatusServiceUnavailable, Code: "pool_exhausted", Message: "service busy, retry shortly"}

	case errors.Is(err, repo.ErrBypassDisabled),
		errors.Is(err, repo.ErrTenantContextRequired),
		errors.Is(err, authctx.ErrTenantContextMissing),
		errors.Is(err, tenant.ErrNoTenantInContext):
		return Response{Status: http.StatusInternalServerError, Code: "configuration_error", Message: "internal server error"}

	case errors.Is(err, pool.ErrDatabase),
		errors.Is(err, uow.ErrBeginFailed),
		errors.Is(err, uow.ErrCommitFailed):
		return Response{Status: http.StatusInternalServerError, Code: "database_error", Message: "internal server error"}

	default:
		return Response{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
	}
}

// Render writes the error as JSON. Server errors get the request id
// attached so operators can correlate the log line without the client
// seeing internals.
func Render(w http.ResponseWriter, r *http.Request, err error) {
	resp := From(err)
	if resp.Status >= http.StatusInternalServerError {
		resp.RequestID = requestid.FromContext(r.Context())
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if resp.Status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Handler adapts Render to the middleware error handler signatures used
// across this module.
func Handler() func(w http.ResponseWriter, r *http.Request, err error) {
	return Render
}
