package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
	"github.com/dmitrymomot/tenantkit/pkg/repo"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

type fakeRows struct {
	pgx.Rows
	closed bool
}

func (r *fakeRows) Close() { r.closed = true }

type fakeRow struct {
	scanned bool
}

func (r *fakeRow) Scan(dest ...any) error {
	r.scanned = true
	return nil
}

type fakeConn struct {
	query    string
	args     []any
	execTag  pgconn.CommandTag
	rows     *fakeRows
	row      *fakeRow
	queryErr error
	released int
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.query, c.args = sql, args
	return c.execTag, nil
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.query, c.args = sql, args
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if c.rows == nil {
		c.rows = &fakeRows{}
	}
	return c.rows, nil
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	c.query, c.args = sql, args
	if c.row == nil {
		c.row = &fakeRow{}
	}
	return c.row
}

func (c *fakeConn) Release() { c.released++ }

type fakeAcquirer struct {
	conn  *fakeConn
	err   error
	calls int
}

func (a *fakeAcquirer) acquire(ctx context.Context) (repo.Conn, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.conn, nil
}

var usersTable = repo.Table{Name: "users"}

func tenantCtx(id uuid.UUID) context.Context {
	return tenant.WithIdentity(context.Background(), &tenant.Identity{ID: id})
}

func TestQueryDefaultDeny(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{conn: &fakeConn{}}
	r := repo.New(acq.acquire, repo.Config{})

	_, err := r.Query(context.Background(), usersTable, "SELECT id FROM users", nil)
	assert.ErrorIs(t, err, repo.ErrTenantContextRequired)
	assert.Equal(t, 0, acq.calls, "the database must never see an unscoped call")
}

func TestQueryAppliesContextTenant(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	rows, err := r.Query(tenantCtx(tenantID), usersTable, "SELECT id FROM users", nil)
	require.NoError(t, err)
	rows.Close()

	assert.Equal(t, `SELECT id FROM users WHERE "tenant_id" = $1`, conn.query)
	require.Len(t, conn.args, 1)
	assert.Equal(t, tenantID, conn.args[0])
}

func TestQueryExplicitTenantWins(t *testing.T) {
	t.Parallel()

	explicit := uuid.New()
	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	rows, err := r.Query(tenantCtx(uuid.New()), usersTable,
		"SELECT id FROM users", nil, repo.WithTenant(explicit))
	require.NoError(t, err)
	rows.Close()

	require.Len(t, conn.args, 1)
	assert.Equal(t, explicit, conn.args[0])
}

func TestQueryExtendsExistingWhere(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	rows, err := r.Query(tenantCtx(uuid.New()), usersTable,
		"SELECT id FROM users WHERE email = $1", []any{"a@b.c"})
	require.NoError(t, err)
	rows.Close()

	assert.Equal(t, `SELECT id FROM users WHERE (email = $1) AND "tenant_id" = $2`, conn.query)
	assert.Len(t, conn.args, 2)
}

func TestQueryScopesDisjunctiveWhere(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	// An OR in the caller's clause must not escape the tenant scope
	// through operator precedence: both disjuncts stay inside the
	// parenthesized group.
	rows, err := r.Query(tenantCtx(tenantID), usersTable,
		"SELECT id FROM users WHERE status = $1 OR email = $2", []any{"active", "a@b.c"})
	require.NoError(t, err)
	rows.Close()

	assert.Equal(t,
		`SELECT id FROM users WHERE (status = $1 OR email = $2) AND "tenant_id" = $3`,
		conn.query)
	require.Len(t, conn.args, 3)
	assert.Equal(t, tenantID, conn.args[2])
}

func TestQueryCustomTenantColumn(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})
	table := repo.Table{Name: "invoices", TenantColumn: "org_id"}

	rows, err := r.Query(tenantCtx(uuid.New()), table, "SELECT id FROM invoices", nil)
	require.NoError(t, err)
	rows.Close()

	assert.Contains(t, conn.query, `WHERE "org_id" = $1`)
}

func TestQueryGlobalTableExempt(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})
	table := repo.Table{Name: "plans", Global: true}

	// No tenant anywhere: the global table still works unfiltered.
	rows, err := r.Query(context.Background(), table, "SELECT id FROM plans", nil)
	require.NoError(t, err)
	rows.Close()

	assert.Equal(t, "SELECT id FROM plans", conn.query)
	assert.Empty(t, conn.args)
}

func TestBypassDisabled(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{conn: &fakeConn{}}
	r := repo.New(acq.acquire, repo.Config{AllowBypass: false})

	_, err := r.Query(tenantCtx(uuid.New()), usersTable,
		"SELECT id FROM users", nil, repo.WithBypassTenantFilter())
	assert.ErrorIs(t, err, repo.ErrBypassDisabled)
	assert.NotErrorIs(t, err, repo.ErrTenantContextRequired)
	assert.Equal(t, 0, acq.calls)
}

func TestBypassEnabledIsAudited(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	storage := audit.NewMemoryStorage()
	r := repo.New((&fakeAcquirer{conn: conn}).acquire,
		repo.Config{AllowBypass: true},
		repo.WithAuditLogger(audit.NewLogger(storage)),
	)

	rows, err := r.Query(context.Background(), usersTable,
		"SELECT id FROM users", nil, repo.WithBypassTenantFilter())
	require.NoError(t, err)
	rows.Close()

	assert.Equal(t, "SELECT id FROM users", conn.query, "bypass returns unfiltered results")

	events := storage.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionTenantFilterBypass, events[0].Action)
	assert.Equal(t, "users", events[0].Metadata["table"])
}

func TestBypassAuditFailureFailsCall(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{conn: &fakeConn{}}
	r := repo.New(acq.acquire,
		repo.Config{AllowBypass: true},
		repo.WithAuditLogger(audit.NewLogger(failingStorage{})),
	)

	_, err := r.Query(context.Background(), usersTable,
		"SELECT id FROM users", nil, repo.WithBypassTenantFilter())
	assert.ErrorIs(t, err, audit.ErrStorageFailed)
	assert.Equal(t, 0, acq.calls)
}

type failingStorage struct{}

func (failingStorage) Store(context.Context, audit.Event) error {
	return errors.New("sink unavailable")
}

func TestExecReturnsAffectedRows(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{execTag: pgconn.NewCommandTag("UPDATE 3")}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	affected, err := r.Exec(tenantCtx(uuid.New()), usersTable,
		"UPDATE users SET name = $1", []any{"x"})
	require.NoError(t, err)

	assert.Equal(t, int64(3), affected)
	assert.Equal(t, `UPDATE users SET name = $1 WHERE "tenant_id" = $2`, conn.query)
	assert.Equal(t, 1, conn.released, "the connection is returned after the write")
}

func TestExecDeleteScoped(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	conn := &fakeConn{execTag: pgconn.NewCommandTag("DELETE 1")}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	_, err := r.Exec(tenantCtx(tenantID), usersTable,
		"DELETE FROM users WHERE id = $1", []any{uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, `DELETE FROM users WHERE (id = $1) AND "tenant_id" = $2`, conn.query)
	assert.Equal(t, tenantID, conn.args[1])
}

func TestQueryRowReleasesOnScan(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	row := r.QueryRow(tenantCtx(uuid.New()), usersTable, "SELECT id FROM users", nil)
	var id string
	require.NoError(t, row.Scan(&id))

	assert.True(t, conn.row.scanned)
	assert.Equal(t, 1, conn.released)
}

func TestQueryRowDefaultDeny(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{conn: &fakeConn{}}
	r := repo.New(acq.acquire, repo.Config{})

	row := r.QueryRow(context.Background(), usersTable, "SELECT id FROM users", nil)
	var id string
	assert.ErrorIs(t, row.Scan(&id), repo.ErrTenantContextRequired)
	assert.Equal(t, 0, acq.calls)
}

func TestRowsCloseReleasesOnce(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	rows, err := r.Query(tenantCtx(uuid.New()), usersTable, "SELECT id FROM users", nil)
	require.NoError(t, err)

	rows.Close()
	rows.Close()

	assert.True(t, conn.rows.closed)
	assert.Equal(t, 1, conn.released)
}

func TestQueryErrorReleasesConnection(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{queryErr: errors.New("relation does not exist")}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	_, err := r.Query(tenantCtx(uuid.New()), usersTable, "SELECT id FROM users", nil)
	require.Error(t, err)
	assert.Equal(t, 1, conn.released)
}

func TestResolveTenant(t *testing.T) {
	t.Parallel()

	r := repo.New((&fakeAcquirer{conn: &fakeConn{}}).acquire, repo.Config{})

	t.Run("explicit", func(t *testing.T) {
		explicit := uuid.New()
		id, err := r.ResolveTenant(context.Background(), repo.WithTenant(explicit))
		require.NoError(t, err)
		assert.Equal(t, explicit, id)
	})

	t.Run("from context", func(t *testing.T) {
		ctxID := uuid.New()
		id, err := r.ResolveTenant(tenantCtx(ctxID))
		require.NoError(t, err)
		assert.Equal(t, ctxID, id)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := r.ResolveTenant(context.Background())
		assert.ErrorIs(t, err, repo.ErrTenantContextRequired)
	})
}

func TestCrossTenantIsolation(t *testing.T) {
	t.Parallel()

	conn := &fakeConn{}
	r := repo.New((&fakeAcquirer{conn: conn}).acquire, repo.Config{})

	alpha, beta := uuid.New(), uuid.New()

	rows, err := r.Query(tenantCtx(alpha), usersTable, "SELECT id FROM users", nil)
	require.NoError(t, err)
	rows.Close()
	assert.Equal(t, alpha, conn.args[0])

	conn.rows = nil
	rows, err = r.Query(tenantCtx(beta), usersTable, "SELECT id FROM users", nil)
	require.NoError(t, err)
	rows.Close()
	assert.Equal(t, beta, conn.args[0], "each request is scoped to its own tenant")
}

func TestInvalidTable(t *testing.T) {
	t.Parallel()

	r := repo.New((&fakeAcquirer{conn: &fakeConn{}}).acquire, repo.Config{})

	_, err := r.Query(tenantCtx(uuid.New()), repo.Table{}, "SELECT 1", nil)
	assert.ErrorIs(t, err, repo.ErrInvalidTable)
}
