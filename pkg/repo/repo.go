// Package repo provides the tenant-scoped data access base. Every read
// and write against a tenant-scoped table carries a bound-parameter
// tenant predicate; calls without a resolvable tenant fail closed before
// any query reaches the database. An unfiltered bypass exists for
// maintenance work but requires both a global configuration flag and a
// per-call opt-in, and every use is recorded as a security event.
package repo

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/tenantkit/pkg/audit"
	"github.com/dmitrymomot/tenantkit/pkg/pool"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// Config controls repository-wide enforcement behavior.
type Config struct {
	// AllowBypass globally enables the per-call tenant filter bypass.
	// Off by default; maintenance deployments turn it on explicitly.
	AllowBypass bool `env:"ALLOW_TENANT_FILTER_BYPASS" envDefault:"false"`
}

// Table describes a queried table. Tables marked Global have no tenant
// column and are exempt from filtering.
type Table struct {
	Name         string
	TenantColumn string // defaults to "tenant_id"
	Global       bool
}

func (t Table) tenantColumn() string {
	if t.TenantColumn != "" {
		return t.TenantColumn
	}
	return "tenant_id"
}

// Conn is the scoped connection a repository call runs on. *pool.Lease
// satisfies it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Release()
}

// Acquirer yields a connection scoped to the tenant on the context.
type Acquirer func(ctx context.Context) (Conn, error)

// PoolAcquirer adapts a pool manager into an Acquirer using the regular
// tenant connection kind.
func PoolAcquirer(m *pool.Manager) Acquirer {
	return func(ctx context.Context) (Conn, error) {
		return m.AcquireFromContext(ctx, pool.KindTenant)
	}
}

// Repository is the enforcement layer concrete repositories embed or
// wrap. It is stateless per call; scoping depends only on the arguments
// and the request context.
type Repository struct {
	acquire Acquirer
	cfg     Config
	audit   audit.Logger
	log     *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the structured logger used for security warnings.
func WithLogger(log *slog.Logger) Option {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

// WithAuditLogger sets the audit sink for bypass events.
func WithAuditLogger(a audit.Logger) Option {
	return func(r *Repository) { r.audit = a }
}

// New creates a Repository over the given connection source.
func New(acquire Acquirer, cfg Config, opts ...Option) *Repository {
	if acquire == nil {
		panic("repo: acquirer cannot be nil")
	}

	r := &Repository{
		acquire: acquire,
		cfg:     cfg,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Query runs a read against table with the tenant predicate applied.
// The statement must end where the predicate belongs; the repository
// parenthesizes any existing WHERE conditions and conjoins
// "<col> = $n" with the tenant id as a bound parameter. The returned
// rows release the underlying connection on Close.
func (r *Repository) Query(ctx context.Context, table Table, query string, args []any, opts ...QueryOption) (pgx.Rows, error) {
	query, args, err := r.prepare(ctx, table, query, args, opts)
	if err != nil {
		return nil, err
	}

	conn, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		conn.Release()
		return nil, err
	}
	return &scopedRows{Rows: rows, conn: conn}, nil
}

// QueryRow runs a single-row read with the tenant predicate applied.
// The connection is released when the row is scanned.
func (r *Repository) QueryRow(ctx context.Context, table Table, query string, args []any, opts ...QueryOption) pgx.Row {
	query, args, err := r.prepare(ctx, table, query, args, opts)
	if err != nil {
		return errRow{err: err}
	}

	conn, err := r.acquire(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return &scopedRow{row: conn.QueryRow(ctx, query, args...), conn: conn}
}

// Exec runs a write (UPDATE or DELETE) with the tenant predicate
// applied and returns the affected row count. INSERT statements carry
// the tenant column themselves; use ResolveTenant for the value.
func (r *Repository) Exec(ctx context.Context, table Table, query string, args []any, opts ...QueryOption) (int64, error) {
	query, args, err := r.prepare(ctx, table, query, args, opts)
	if err != nil {
		return 0, err
	}

	conn, err := r.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ResolveTenant returns the tenant id a statement should carry, using
// the same explicit-then-context resolution as filtered queries. Meant
// for INSERTs, where no predicate can be appended.
func (r *Repository) ResolveTenant(ctx context.Context, opts ...QueryOption) (uuid.UUID, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.hasTenant {
		return o.tenantID, nil
	}
	if id, ok := tenant.IDFromContext(ctx); ok {
		return id, nil
	}
	return uuid.Nil, ErrTenantContextRequired
}

func (r *Repository) prepare(ctx context.Context, table Table, query string, args []any, opts []QueryOption) (string, []any, error) {
	if table.Name == "" {
		return "", nil, ErrInvalidTable
	}

	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	sc, err := r.resolveScope(ctx, table, o)
	if err != nil {
		return "", nil, err
	}
	if !sc.filtered {
		return query, args, nil
	}

	query = appendPredicate(query, table.tenantColumn(), len(args)+1)
	args = append(args, sc.tenantID)
	return query, args, nil
}

type scope struct {
	tenantID uuid.UUID
	filtered bool
}

func (r *Repository) resolveScope(ctx context.Context, table Table, o queryOptions) (scope, error) {
	if table.Global {
		return scope{}, nil
	}

	if o.bypass {
		if !r.cfg.AllowBypass {
			return scope{}, ErrBypassDisabled
		}
		if err := r.recordBypass(ctx, table); err != nil {
			return scope{}, err
		}
		return scope{}, nil
	}

	if o.hasTenant {
		return scope{tenantID: o.tenantID, filtered: true}, nil
	}
	if id, ok := tenant.IDFromContext(ctx); ok {
		return scope{tenantID: id, filtered: true}, nil
	}
	return scope{}, ErrTenantContextRequired
}

// recordBypass emits the security event for an unfiltered call. The
// audit write is synchronous; if it fails the call fails.
func (r *Repository) recordBypass(ctx context.Context, table Table) error {
	r.log.WarnContext(ctx, "tenant filter bypassed",
		slog.String("table", table.Name),
	)
	if r.audit == nil {
		return nil
	}
	return r.audit.Log(ctx, audit.ActionTenantFilterBypass,
		audit.WithMetadata(map[string]any{"table": table.Name}),
	)
}

var whereClause = regexp.MustCompile(`(?i)\bwhere\b`)

// appendPredicate conjoins the tenant condition with the statement.
// Existing WHERE conditions are parenthesized first so an OR in the
// caller's clause cannot escape the tenant scope through operator
// precedence.
func appendPredicate(query, column string, position int) string {
	predicate := pgx.Identifier{column}.Sanitize() + " = $" + strconv.Itoa(position)

	loc := whereClause.FindStringIndex(query)
	if loc == nil {
		return query + " WHERE " + predicate
	}

	conditions := strings.TrimSpace(query[loc[1]:])
	return query[:loc[1]] + " (" + conditions + ") AND " + predicate
}
