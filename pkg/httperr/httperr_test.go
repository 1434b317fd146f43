package httperr_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/authctx"
	"github.com/dmitrymomot/tenantkit/pkg/httperr"
	"github.com/dmitrymomot/tenantkit/pkg/jwt"
	"github.com/dmitrymomot/tenantkit/pkg/pool"
	"github.com/dmitrymomot/tenantkit/pkg/repo"
	"github.com/dmitrymomot/tenantkit/pkg/requestid"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

func TestFrom(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		code   string
	}{
		{authctx.ErrMissingToken, http.StatusUnauthorized, "unauthorized"},
		{jwt.ErrExpiredToken, http.StatusUnauthorized, "unauthorized"},
		{jwt.ErrInvalidSignature, http.StatusUnauthorized, "unauthorized"},
		{authctx.ErrTokenRevoked, http.StatusUnauthorized, "unauthorized"},
		{authctx.ErrTenantMismatch, http.StatusForbidden, "forbidden"},
		{authctx.ErrAccessDenied, http.StatusForbidden, "forbidden"},
		{tenant.ErrTenantSuspended, http.StatusForbidden, "forbidden"},
		{tenant.ErrTenantNotFound, http.StatusNotFound, "tenant_not_found"},
		{tenant.ErrHostRequired, http.StatusNotFound, "tenant_not_found"},
		{pool.ErrPoolExhausted, http.StatusServiceUnavailable, "pool_exhausted"},
		{repo.ErrTenantContextRequired, http.StatusInternalServerError, "configuration_error"},
		{repo.ErrBypassDisabled, http.StatusInternalServerError, "configuration_error"},
		{authctx.ErrTenantContextMissing, http.StatusInternalServerError, "configuration_error"},
		{pool.ErrDatabase, http.StatusInternalServerError, "database_error"},
		{errors.New("something else"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			t.Parallel()

			resp := httperr.From(tc.err)
			assert.Equal(t, tc.status, resp.Status)
			assert.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestFromWrappedError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("acquire tenant connection: %w", pool.ErrPoolExhausted)
	resp := httperr.From(wrapped)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
}

func TestRenderServerErrorCarriesRequestID(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(requestid.WithContext(r.Context(), "req-123"))
	w := httptest.NewRecorder()

	internal := fmt.Errorf("pool open: %w: %s", pool.ErrDatabase, "password authentication failed for user")
	httperr.Render(w, r, internal)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "database_error", body["code"])
	assert.Equal(t, "req-123", body["request_id"])
	assert.Equal(t, "internal server error", body["message"])
	assert.NotContains(t, w.Body.String(), "password", "internal detail must not leak")
}

func TestRenderClientErrorOmitsRequestID(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(requestid.WithContext(r.Context(), "req-123"))
	w := httptest.NewRecorder()

	httperr.Render(w, r, authctx.ErrMissingToken)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "req-123")
}

func TestRenderRetryAfterOnExhaustion(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	httperr.Render(w, httptest.NewRequest(http.MethodGet, "/", nil), pool.ErrPoolExhausted)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
