package repo

import (
	"sync/atomic"

	"github.com/jackc/pgx/v5"
)

// scopedRows ties the lifetime of the borrowed connection to the rows:
// closing the rows returns the connection.
type scopedRows struct {
	pgx.Rows
	conn     Conn
	released atomic.Bool
}

func (r *scopedRows) Close() {
	r.Rows.Close()
	if r.released.CompareAndSwap(false, true) {
		r.conn.Release()
	}
}

// scopedRow releases the connection once the row is scanned.
type scopedRow struct {
	row  pgx.Row
	conn Conn
}

func (r *scopedRow) Scan(dest ...any) error {
	defer r.conn.Release()
	return r.row.Scan(dest...)
}

// errRow defers a preparation error to Scan, matching the pgx.Row
// contract of surfacing errors at scan time.
type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error { return r.err }
