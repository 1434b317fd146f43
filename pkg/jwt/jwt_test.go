package jwt_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/jwt"
)

func newService(t *testing.T) *jwt.Service {
	t.Helper()

	svc, err := jwt.New([]byte("test-signing-key-32-bytes-long!!"))
	require.NoError(t, err)
	return svc
}

func TestNewRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := jwt.New(nil)
	assert.ErrorIs(t, err, jwt.ErrMissingSigningKey)
}

func TestGenerateParse(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	claims := jwt.StandardClaims{
		ID:        "jti-1",
		Subject:   "user-1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}

	token, err := svc.Generate(claims)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(token, ".")))

	var parsed jwt.StandardClaims
	require.NoError(t, svc.Parse(token, &parsed))
	assert.Equal(t, claims, parsed)
}

func TestParseRejectsTamperedToken(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	token, err := svc.Generate(jwt.StandardClaims{Subject: "user-1"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xx"
	tampered := strings.Join(parts, ".")

	var parsed jwt.StandardClaims
	assert.ErrorIs(t, svc.Parse(tampered, &parsed), jwt.ErrInvalidSignature)
}

func TestParseRejectsWrongKey(t *testing.T) {
	t.Parallel()

	svc := newService(t)
	other, err := jwt.New([]byte("another-signing-key-32-bytes!!!!"))
	require.NoError(t, err)

	token, err := other.Generate(jwt.StandardClaims{Subject: "user-1"})
	require.NoError(t, err)

	var parsed jwt.StandardClaims
	assert.ErrorIs(t, svc.Parse(token, &parsed), jwt.ErrInvalidSignature)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	token, err := svc.Generate(jwt.StandardClaims{
		Subject:   "user-1",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})
	require.NoError(t, err)

	var parsed jwt.StandardClaims
	assert.ErrorIs(t, svc.Parse(token, &parsed), jwt.ErrExpiredToken)
}

func TestParseRejectsMalformedToken(t *testing.T) {
	t.Parallel()

	svc := newService(t)

	var parsed jwt.StandardClaims
	assert.ErrorIs(t, svc.Parse("not-a-jwt", &parsed), jwt.ErrInvalidToken)
	assert.ErrorIs(t, svc.Parse("a.b", &parsed), jwt.ErrInvalidToken)
}
