// Package uow scopes multi-statement transactions to one borrowed
// tenant connection. A session moves through Created, Active, and
// exactly one of Committed or RolledBack; the connection is returned on
// every exit path, including panic and cancellation.
package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/pool"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var (
	// ErrNotActive is returned when a statement runs outside an active
	// scope. Sessions are not reentrant and do not nest.
	ErrNotActive = errors.New("uow: session is not active")

	// ErrBeginFailed wraps a failure to open the transaction.
	ErrBeginFailed = errors.New("uow: failed to begin transaction")

	// ErrCommitFailed wraps a failure to commit.
	ErrCommitFailed = errors.New("uow: failed to commit transaction")
)

// State tracks the session lifecycle.
type State int

const (
	StateCreated State = iota
	StateActive
	StateCommitted
	StateRolledBack
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Conn is the borrowed connection the transaction runs on. *pool.Lease
// satisfies it.
type Conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

// Acquirer yields the single connection for a scope.
type Acquirer func(ctx context.Context) (Conn, error)

// PoolAcquirer adapts a pool manager into an Acquirer using the regular
// tenant connection kind.
func PoolAcquirer(m *pool.Manager) Acquirer {
	return func(ctx context.Context) (Conn, error) {
		return m.AcquireFromContext(ctx, pool.KindTenant)
	}
}

// Session is the handle passed to the scope function. All statements
// run in call order on the one held connection.
type Session struct {
	tx       pgx.Tx
	tenantID uuid.UUID
	state    State
	opCount  int
}

// TenantID returns the tenant the session was opened for.
func (s *Session) TenantID() uuid.UUID { return s.tenantID }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Ops returns how many statements have run in this scope.
func (s *Session) Ops() int { return s.opCount }

// Exec runs a write and returns the affected row count.
func (s *Session) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if s.state != StateActive {
		return 0, ErrNotActive
	}
	s.opCount++

	tag, err := s.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Query runs a read on the held connection.
func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if s.state != StateActive {
		return nil, ErrNotActive
	}
	s.opCount++
	return s.tx.Query(ctx, sql, args...)
}

// QueryRow runs a single-row read on the held connection.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.state != StateActive {
		return errRow{err: ErrNotActive}
	}
	s.opCount++
	return s.tx.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

// Run executes fn inside one transaction on one connection. If fn
// returns nil the transaction commits; on error or panic it rolls
// back. The connection is released unconditionally, and the session is
// terminal after Run returns: a captured Session fails with
// ErrNotActive.
func Run(ctx context.Context, acquire Acquirer, fn func(ctx context.Context, s *Session) error) error {
	tenantID, _ := tenant.IDFromContext(ctx)

	conn, err := acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return errors.Join(ErrBeginFailed, err)
	}

	session := &Session{tx: tx, tenantID: tenantID, state: StateActive}

	defer func() {
		if r := recover(); r != nil {
			session.state = StateRolledBack
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(ctx, session); err != nil {
		session.state = StateRolledBack
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("uow: rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		session.state = StateRolledBack
		return errors.Join(ErrCommitFailed, err)
	}
	session.state = StateCommitted
	return nil
}
