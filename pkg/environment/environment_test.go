package environment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := map[string]environment.Environment{
		"development": environment.Development,
		"dev":         environment.Development,
		"local":       environment.Development,
		"staging":     environment.Staging,
		"stage":       environment.Staging,
		"production":  environment.Production,
		"prod":        environment.Production,
		"":            environment.Production,
		"garbage":     environment.Production,
		" DEV ":       environment.Development,
	}

	for raw, want := range cases {
		assert.Equal(t, want, environment.Parse(raw), "raw=%q", raw)
	}
}

func TestIsProductionLike(t *testing.T) {
	t.Parallel()

	assert.True(t, environment.Production.IsProductionLike())
	assert.True(t, environment.Staging.IsProductionLike())
	assert.False(t, environment.Development.IsProductionLike())
}

func TestContextDefaultsToProduction(t *testing.T) {
	t.Parallel()

	// Missing wiring must never relax the trust policy.
	assert.Equal(t, environment.Production, environment.FromContext(context.Background()))
	assert.True(t, environment.IsProduction(context.Background()))
	assert.False(t, environment.IsDevelopment(context.Background()))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got environment.Environment
	h := environment.Middleware(environment.Development)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = environment.FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, environment.Development, got)
}
