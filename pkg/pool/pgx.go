package pool

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxOpener is the production Opener backed by pgx/v5.
type PgxOpener struct{}

// OpenPool builds a bounded pgxpool and verifies connectivity with a ping
// so credential problems surface at creation time, not first checkout.
func (PgxOpener) OpenPool(ctx context.Context, dsn string, maxConns int32) (Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrDatabase, err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = 0

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return pgxPool{p}, nil
}

// OpenDirect opens one unpooled connection. Release closes it.
func (PgxOpener) OpenDirect(ctx context.Context, dsn string) (Conn, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &directConn{conn: conn}, nil
}

type pgxPool struct {
	pool *pgxpool.Pool
}

func (p pgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (p pgxPool) Close() {
	p.pool.Close()
}

// directConn adapts a raw pgx connection to the Conn interface.
type directConn struct {
	conn *pgx.Conn
}

func (d *directConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return d.conn.Exec(ctx, sql, args...)
}

func (d *directConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return d.conn.Query(ctx, sql, args...)
}

func (d *directConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return d.conn.QueryRow(ctx, sql, args...)
}

func (d *directConn) Begin(ctx context.Context) (pgx.Tx, error) {
	return d.conn.Begin(ctx)
}

// Release closes the underlying connection with its own deadline: the
// request context may already be cancelled, and release must not hang.
func (d *directConn) Release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = d.conn.Close(ctx)
}
