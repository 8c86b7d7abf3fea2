// Package flsql connects database/sql style handles with rowiter.
package flsql

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"iter"
	"strings"

	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/rowiter"
)

// Connection is everything the data model needs from a database:
// cursors for streaming reads, and plain statements for writes and counts.
type Connection interface {
	rowiter.Source
	Queryable
	io.Closer
}

type Queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
}

type Result interface {
	RowsAffected() (int64, error)
}

// Rows is the shape *sql.Rows and the adapters share.
// Next closes nothing on its own, Close must be called.
type Rows interface {
	io.Closer
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// Row is a single row result. Scan reports sql.ErrNoRows when the query matched nothing.
type Row interface {
	Scan(dest ...any) error
}

type Scanner = rowiter.Scanner

type RowMapper[T any] func(Scanner) (T, error)

func (fn RowMapper[T]) Map(s Scanner) (T, error) { return fn(s) }

type ColumnName string

func JoinColumnName(cns []ColumnName, format string, sep string) string {
	var parts []string
	for _, n := range cns {
		parts = append(parts, fmt.Sprintf(format, n))
	}
	return strings.Join(parts, sep)
}

// MakeRowsIterator turns already executed rows into a sequence.
// The rows are closed when the sequence ends, and close errors are yielded as well.
func MakeRowsIterator[T any](rows Rows, mapper RowMapper[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if rows == nil {
			return
		}
		var done bool
		defer func() {
			if !done {
				_ = rows.Close()
			}
		}()
		for rows.Next() {
			v, err := mapper(rows)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		done = true
		if err := errorkit.Merge(rows.Err(), rows.Close()); err != nil {
			yield(zero, err)
		}
	}
}

// QueryMany runs the query and maps the result rows lazily.
func QueryMany[T any](q Queryable, ctx context.Context, mapper RowMapper[T], query string, args ...any) (iter.Seq2[T, error], error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return MakeRowsIterator(rows, mapper), nil
}

type MigrationStep[C Queryable] struct {
	Up      func(C, context.Context) error
	UpQuery string

	Down      func(C, context.Context) error
	DownQuery string
}

func (m MigrationStep[C]) MigrateUp(c C, ctx context.Context) error {
	if m.Up != nil {
		return m.Up(c, ctx)
	}
	if m.UpQuery != "" {
		_, err := c.ExecContext(ctx, m.UpQuery)
		return err
	}
	return nil
}

func (m MigrationStep[C]) MigrateDown(c C, ctx context.Context) error {
	if m.Down != nil {
		return m.Down(c, ctx)
	}
	if m.DownQuery != "" {
		_, err := c.ExecContext(ctx, m.DownQuery)
		return err
	}
	return nil
}

var _ Rows = (*sql.Rows)(nil)
