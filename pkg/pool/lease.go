package pool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Lease is one scoped connection acquisition. Callers must Release it on
// every exit path; deferring Release immediately after a successful
// Acquire covers errors, panics and cancellation alike. Release is
// idempotent.
type Lease struct {
	conn     Conn
	mode     Mode
	kind     Kind
	entry    *entry // nil for direct connections
	released atomic.Bool
}

// Mode reports whether the lease is pooled or a direct fallback.
func (l *Lease) Mode() Mode { return l.mode }

// Kind reports which credentials the connection was opened with.
func (l *Lease) Kind() Kind { return l.kind }

// Exec runs a statement on the leased connection.
func (l *Lease) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if l.released.Load() {
		return pgconn.CommandTag{}, ErrLeaseReleased
	}
	return l.conn.Exec(ctx, sql, args...)
}

// Query runs a query on the leased connection.
func (l *Lease) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if l.released.Load() {
		return nil, ErrLeaseReleased
	}
	return l.conn.Query(ctx, sql, args...)
}

// QueryRow runs a single-row query on the leased connection. On a
// released lease the error surfaces at scan time, per the pgx.Row
// contract.
func (l *Lease) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if l.released.Load() {
		return errRow{err: ErrLeaseReleased}
	}
	return l.conn.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

// Begin opens a transaction on the leased connection.
func (l *Lease) Begin(ctx context.Context) (pgx.Tx, error) {
	if l.released.Load() {
		return nil, ErrLeaseReleased
	}
	return l.conn.Begin(ctx)
}

// Release returns the connection to its pool (or closes it, for direct
// connections). Safe to call more than once; only the first call acts.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	l.conn.Release()
	if l.entry != nil {
		l.entry.checkedOut.Add(-1)
		l.entry.lastUsed.Store(time.Now().UnixNano())
	}
}
