package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
)

func TestLog(t *testing.T) {
	t.Parallel()

	storage := audit.NewMemoryStorage()
	log := audit.NewLogger(storage)

	err := log.Log(context.Background(), audit.ActionCrossTenantAccess,
		audit.WithActor("user-1"),
		audit.WithTenant("tenant-a"),
		audit.WithTargetTenant("tenant-b"),
	)
	require.NoError(t, err)

	events := storage.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionCrossTenantAccess, events[0].Action)
	assert.Equal(t, "user-1", events[0].ActorID)
	assert.Equal(t, "tenant-a", events[0].TenantID)
	assert.Equal(t, "tenant-b", events[0].TargetTenantID)
	assert.Equal(t, audit.ResultSuccess, events[0].Result)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestLogError(t *testing.T) {
	t.Parallel()

	storage := audit.NewMemoryStorage()
	log := audit.NewLogger(storage)

	err := log.LogError(context.Background(), audit.ActionTenantFilterBypass, errors.New("boom"))
	require.NoError(t, err)

	events := storage.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ResultError, events[0].Result)
	assert.Equal(t, "boom", events[0].Error)
}

func TestLogRequiresAction(t *testing.T) {
	t.Parallel()

	log := audit.NewLogger(audit.NewMemoryStorage())
	err := log.Log(context.Background(), "")
	assert.ErrorIs(t, err, audit.ErrEventValidation)
}

func TestContextExtractors(t *testing.T) {
	t.Parallel()

	type tenantKey struct{}
	type actorKey struct{}

	storage := audit.NewMemoryStorage()
	log := audit.NewLogger(storage,
		audit.WithTenantIDExtractor(func(ctx context.Context) (string, bool) {
			v, ok := ctx.Value(tenantKey{}).(string)
			return v, ok
		}),
		audit.WithActorIDExtractor(func(ctx context.Context) (string, bool) {
			v, ok := ctx.Value(actorKey{}).(string)
			return v, ok
		}),
	)

	ctx := context.WithValue(context.Background(), tenantKey{}, "tenant-a")
	ctx = context.WithValue(ctx, actorKey{}, "user-7")

	require.NoError(t, log.Log(ctx, "test.action"))

	events := storage.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "tenant-a", events[0].TenantID)
	assert.Equal(t, "user-7", events[0].ActorID)
}

type failingStorage struct{}

func (failingStorage) Store(context.Context, audit.Event) error {
	return errors.New("write refused")
}

func TestStorageFailurePropagates(t *testing.T) {
	t.Parallel()

	// Mandatory audit points depend on this error reaching the caller.
	log := audit.NewLogger(failingStorage{})
	err := log.Log(context.Background(), "test.action")
	assert.ErrorIs(t, err, audit.ErrStorageFailed)
}
