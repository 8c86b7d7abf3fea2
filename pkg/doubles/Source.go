// Package doubles holds test doubles for the rowiter ports.
package doubles

import (
	"context"

	"go.llib.dev/rowstream/pkg/errorkit"
	"go.llib.dev/rowstream/pkg/reflectkit"
	"go.llib.dev/rowstream/pkg/rowiter"
)

const ErrCursorClosed errorkit.Error = "doubles: cursor is already closed"

// Source is an in-process rowiter.Source.
// Every Open yields the same Rows, and the counters tell how the consumer treated the cursors.
type Source struct {
	Rows [][]any

	// OpenErr makes Open fail.
	OpenErr error
	// ReadErr is reported by the cursor on the ReadErrOn-th pull (1-based).
	ReadErr   error
	ReadErrOn int
	// ScanErr is returned by Scan on the ScanErrOn-th row (1-based).
	ScanErr   error
	ScanErrOn int
	// CloseErr is returned by every Cursor.Close.
	CloseErr error

	Opens  int
	Closes int
	Pulls  int

	Queries []string
	Args    [][]any
}

var _ rowiter.Source = &Source{}

func (s *Source) Open(ctx context.Context, query string, args ...any) (rowiter.Cursor, error) {
	s.Queries = append(s.Queries, query)
	s.Args = append(s.Args, args)
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Opens++
	return &Cursor{src: s, index: -1}, nil
}

// Cursor is the forward-only cursor handed out by Source.
type Cursor struct {
	src    *Source
	index  int
	err    error
	closed bool
}

var _ rowiter.Cursor = &Cursor{}

func (c *Cursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	c.src.Pulls++
	if c.src.ReadErr != nil && c.src.Pulls == c.src.ReadErrOn {
		c.err = c.src.ReadErr
		return false
	}
	c.index++
	return c.index < len(c.src.Rows)
}

func (c *Cursor) Err() error { return c.err }

func (c *Cursor) Scan(dest ...any) error {
	if c.closed {
		return ErrCursorClosed
	}
	if c.index < 0 || len(c.src.Rows) <= c.index {
		return errorkit.Error("doubles: Scan called without a current row")
	}
	if c.src.ScanErr != nil && c.index+1 == c.src.ScanErrOn {
		return c.src.ScanErr
	}
	return reflectkit.ScanRow(c.src.Rows[c.index], dest...)
}

// Close counts every call, even the redundant ones,
// so tests can tell when a cursor is released more than once.
func (c *Cursor) Close() error {
	c.src.Closes++
	c.closed = true
	return c.src.CloseErr
}

func (c *Cursor) IsClosed() bool { return c.closed }
