// Package memory is an in-process data source.
// Results are registered per query and argument list, and read back through rowiter cursors.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/flsql"
	"go.llib.dev/rowstream/pkg/reflectkit"
	"go.llib.dev/rowstream/pkg/rowiter"
)

func NewMemory() *Memory {
	return &Memory{results: make(map[string][][]any)}
}

// Memory holds query results keyed by the query text and its arguments.
type Memory struct {
	// ExecFunc [optional] handles statements.
	//
	// default: every statement fails with rowiter.ErrUnsupportedOperation
	ExecFunc func(ctx context.Context, query string, args ...any) (flsql.Result, error)
	// Fallback [optional] answers the queries that have no registered result.
	//
	// default: ErrUnknownQuery
	Fallback func(query string, args ...any) ([][]any, error)

	m       sync.RWMutex
	results map[string][][]any
}

var _ flsql.Connection = (*Memory)(nil)

// Set registers the rows a query returns when executed with the given arguments.
func (m *Memory) Set(rows [][]any, query string, args ...any) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.results == nil {
		m.results = make(map[string][][]any)
	}
	m.results[key(query, args)] = rows
}

func (m *Memory) Del(query string, args ...any) {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.results, key(query, args))
}

// Reset forgets every registered result.
func (m *Memory) Reset() {
	m.m.Lock()
	defer m.m.Unlock()
	m.results = make(map[string][][]any)
}

func (m *Memory) lookup(query string, args []any) ([][]any, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	rows, ok := m.results[key(query, args)]
	return rows, ok
}

func key(query string, args []any) string {
	if len(args) == 0 {
		args = nil
	}
	return fmt.Sprintf("%s\x00%#v", query, args)
}

const ErrUnknownQuery errorkit.Error = "memory: no result is registered for the query"

// Open returns a cursor over the registered rows.
// Querying an unregistered query fails with ErrUnknownQuery.
func (m *Memory) Open(ctx context.Context, query string, args ...any) (rowiter.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, ok := m.lookup(query, args)
	if !ok {
		if m.Fallback == nil {
			return nil, ErrUnknownQuery.F("%s", query)
		}
		var err error
		rows, err = m.Fallback(query, args...)
		if err != nil {
			return nil, err
		}
	}
	return &Cursor{rows: rows, index: -1}, nil
}

func (m *Memory) QueryContext(ctx context.Context, query string, args ...any) (flsql.Rows, error) {
	cur, err := m.Open(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return cur.(*Cursor), nil
}

func (m *Memory) QueryRowContext(ctx context.Context, query string, args ...any) flsql.Row {
	cur, err := m.Open(ctx, query, args...)
	if err != nil {
		return row{err: err}
	}
	c := cur.(*Cursor)
	if !c.Next() {
		return row{err: sql.ErrNoRows}
	}
	return row{values: c.rows[c.index]}
}

func (m *Memory) ExecContext(ctx context.Context, query string, args ...any) (flsql.Result, error) {
	if m.ExecFunc == nil {
		return nil, rowiter.ErrUnsupportedOperation.F("memory: %s", query)
	}
	return m.ExecFunc(ctx, query, args...)
}

func (m *Memory) Close() error { return nil }

type row struct {
	values []any
	err    error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return reflectkit.ScanRow(r.values, dest...)
}

// Cursor walks the rows registered for a query.
type Cursor struct {
	rows   [][]any
	index  int
	closed bool
}

func (c *Cursor) Next() bool {
	if c.closed || len(c.rows) <= c.index+1 {
		c.index = len(c.rows)
		return false
	}
	c.index++
	return true
}

func (c *Cursor) Err() error { return nil }

func (c *Cursor) Scan(dest ...any) error {
	if c.closed {
		return fmt.Errorf("memory: Scan called on a closed cursor")
	}
	if c.index < 0 || len(c.rows) <= c.index {
		return fmt.Errorf("memory: Scan called without a current row")
	}
	return reflectkit.ScanRow(c.rows[c.index], dest...)
}

func (c *Cursor) Close() error {
	c.closed = true
	return nil
}
