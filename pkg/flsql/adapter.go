package flsql

import (
	"context"
	"database/sql"

	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/logging"
	"go.llib.dev/rowstream/pkg/rowiter"
)

type QueryableAdapter struct {
	ExecFunc     func(ctx context.Context, query string, args ...any) (Result, error)
	QueryFunc    func(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, query string, args ...any) Row
}

func (a QueryableAdapter) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	return a.ExecFunc(ctx, query, args...)
}

func (a QueryableAdapter) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	return a.QueryFunc(ctx, query, args...)
}

func (a QueryableAdapter) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return a.QueryRowFunc(ctx, query, args...)
}

func QueryableSQL[SQLQ sqlQueryable](q SQLQ) QueryableAdapter {
	return QueryableAdapter{
		ExecFunc: func(ctx context.Context, query string, args ...any) (Result, error) {
			debugLogExec(ctx, "ExecContext", query, args)
			r, err := q.ExecContext(ctx, query, args...)
			return r, err
		},
		QueryFunc: func(ctx context.Context, query string, args ...any) (Rows, error) {
			debugLogExec(ctx, "QueryContext", query, args)
			return q.QueryContext(ctx, query, args...)
		},
		QueryRowFunc: func(ctx context.Context, query string, args ...any) Row {
			debugLogExec(ctx, "QueryRowContext", query, args)
			return q.QueryRowContext(ctx, query, args...)
		},
	}
}

type sqlQueryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func debugLogExec(ctx context.Context, method string, query string, args []any) {
	logging.Debug(ctx, "QueryableAdapter", logging.LazyDetail(func() logging.Detail {
		return logging.Fields{
			"method": method,
			"query":  query,
			"args":   len(args),
		}
	}))
}

// SQLSource opens cursors over a database/sql pool.
// Every cursor gets a dedicated connection taken from the pool,
// and closing the cursor closes the result set and then returns the connection.
type SQLSource struct {
	DB *sql.DB
}

var _ rowiter.Source = SQLSource{}

func (s SQLSource) Open(ctx context.Context, query string, args ...any) (rowiter.Cursor, error) {
	conn, err := s.DB.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errorkit.Merge(err, conn.Close())
	}
	return &GuardedRows{Rows: rows, Guard: rowiter.NewGuard(ctx, conn, rows)}, nil
}

// GuardedRows is a cursor whose Close releases the whole bundle that produced the rows.
type GuardedRows struct {
	Rows
	Guard *rowiter.Guard
}

func (r *GuardedRows) Close() error { return r.Guard.Close() }

// SQLConnection is a Connection over a database/sql pool.
type SQLConnection struct {
	SQLSource
	QueryableAdapter
}

var _ Connection = SQLConnection{}

func SQLConnectionAdapter(db *sql.DB) SQLConnection {
	return SQLConnection{
		SQLSource:        SQLSource{DB: db},
		QueryableAdapter: QueryableSQL(db),
	}
}

func (c SQLConnection) Close() error {
	return c.DB.Close()
}
