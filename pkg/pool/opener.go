package pool

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is one checked-out database connection. Release returns it to its
// pool (or closes it, for direct connections) and is safe to call from a
// deferred path after failures.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

// Pool is a bounded set of reusable connections to one database.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Close()
}

// Opener builds pools and direct connections from a DSN. The production
// implementation is PgxOpener; tests substitute fakes so no database is
// needed.
type Opener interface {
	OpenPool(ctx context.Context, dsn string, maxConns int32) (Pool, error)
	OpenDirect(ctx context.Context, dsn string) (Conn, error)
}
