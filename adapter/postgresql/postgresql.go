// Package postgresql connects rowiter and the taste data model to PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"go.llib.dev/rowstream/pkg/flsql"
	"go.llib.dev/rowstream/pkg/rowiter"
)

// Connection is a flsql.Connection over a pgx connection pool.
type Connection struct {
	Pool *pgxpool.Pool
	flsql.QueryableAdapter
}

var _ flsql.Connection = Connection{}

func Connect(dsn string) (Connection, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return Connection{}, err
	}
	q := pgxQueryableAdapter[*pgxpool.Pool]{Q: pool}
	return Connection{
		Pool: pool,
		QueryableAdapter: flsql.QueryableAdapter{
			ExecFunc:     q.ExecContext,
			QueryFunc:    q.QueryContext,
			QueryRowFunc: q.QueryRowContext,
		},
	}, nil
}

// Open acquires a connection from the pool for the lifetime of the cursor.
// Closing the cursor closes the rows first, then hands the connection back to the pool.
func (c Connection) Open(ctx context.Context, query string, args ...any) (rowiter.Cursor, error) {
	conn, err := c.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		conn.Release()
		return nil, err
	}
	release := rowiter.CloserFunc(func() error {
		conn.Release()
		return nil
	})
	cur := pgxRowsAdapter{Rows: rows}
	return &flsql.GuardedRows{Rows: cur, Guard: rowiter.NewGuard(ctx, release, cur)}, nil
}

func (c Connection) Close() error {
	c.Pool.Close()
	return nil
}

// ConnectSQL opens a database/sql pool with the lib/pq driver.
func ConnectSQL(dsn string) (flsql.SQLConnection, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return flsql.SQLConnection{}, err
	}
	return flsql.SQLConnectionAdapter(db), nil
}

type pgxQueryableAdapter[Q pgxQueryable] struct{ Q Q }

type pgxQueryable interface {
	Exec(ctx context.Context, query string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

func (ca pgxQueryableAdapter[Q]) ExecContext(ctx context.Context, query string, args ...interface{}) (flsql.Result, error) {
	r, err := ca.Q.Exec(ctx, query, args...)
	return sqlResultAdapter{CommandTag: r}, err
}

type sqlResultAdapter struct{ pgconn.CommandTag }

func (a sqlResultAdapter) RowsAffected() (int64, error) {
	return a.CommandTag.RowsAffected(), nil
}

func (ca pgxQueryableAdapter[Q]) QueryContext(ctx context.Context, query string, args ...interface{}) (flsql.Rows, error) {
	rows, err := ca.Q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxRowsAdapter{Rows: rows}, nil
}

func (ca pgxQueryableAdapter[Q]) QueryRowContext(ctx context.Context, query string, args ...interface{}) flsql.Row {
	return ca.Q.QueryRow(ctx, query, args...)
}

// pgxRowsAdapter gives pgx.Rows the io.Closer shape.
// Read errors are reported through Err, so Close has nothing to add.
type pgxRowsAdapter struct{ pgx.Rows }

func (a pgxRowsAdapter) Close() error {
	a.Rows.Close()
	return nil
}
