package rowiter

import (
	"context"

	"go.llib.dev/rowstream/pkg/logging"
)

// cursor is the part FlatIterator and GroupingIterator share:
// the guarded Cursor and the positioned lookahead flag.
type cursor struct {
	ctx    context.Context
	query  string
	logger *logging.Logger
	guard  *Guard
	rows   Cursor
	// positioned is set when an existence check moved rows onto a row that no Next consumed yet.
	positioned bool
}

func open(ctx context.Context, src Source, query string, opts []Option) (*cursor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conf := toConfig(opts)
	conf.Logger.Debug(ctx, "executing query",
		logging.Field("query", query),
		logging.Field("args", len(conf.Args)))

	rows, err := src.Open(ctx, query, conf.Args...)
	if err != nil {
		if rows != nil {
			_ = rows.Close()
		}
		return nil, ErrDataAccess.Wrap(ErrAcquisition.Wrap(err))
	}
	guard := NewGuard(ctx, rows)
	guard.Logger = conf.Logger
	return &cursor{
		ctx:    ctx,
		query:  query,
		logger: conf.Logger,
		guard:  guard,
		rows:   rows,
	}, nil
}

type stepKind int

const (
	stepRow stepKind = iota
	stepEnd
	stepFailed
)

// step is the outcome of advancing the cursor by one row.
type step struct {
	Kind stepKind
	Err  error
}

// advance moves to the next row and releases the resources when there is none.
func (c *cursor) advance() step {
	if c.guard.IsClosed() {
		return step{Kind: stepEnd}
	}
	if c.rows.Next() {
		return step{Kind: stepRow}
	}
	if err := c.rows.Err(); err != nil {
		return step{Kind: stepFailed, Err: c.fail(err)}
	}
	c.logger.Debug(c.ctx, "rows exhausted", logging.Field("query", c.query))
	c.guard.Release()
	return step{Kind: stepEnd}
}

func (c *cursor) peek() (bool, error) {
	if c.guard.IsClosed() {
		return false, nil
	}
	if c.positioned {
		return true, nil
	}
	switch s := c.advance(); s.Kind {
	case stepRow:
		c.positioned = true
		return true, nil
	case stepFailed:
		return false, s.Err
	default:
		return false, nil
	}
}

// consume marks the positioned row as taken and returns it.
func (c *cursor) consume() Scanner {
	c.positioned = false
	return c.rows
}

// fail releases the resources and reports err as a data access failure.
func (c *cursor) fail(err error) error {
	c.guard.Release()
	return ErrDataAccess.Wrap(err)
}

// swallow converts an existence check failure into "no more data".
func (c *cursor) swallow(ok bool, err error) bool {
	if err != nil {
		c.logger.Warn(c.ctx, "unexpected error while checking for more rows; treating it as the end of the data",
			logging.ErrField(err),
			logging.Field("query", c.query))
		return false
	}
	return ok
}

func (c *cursor) State() State { return c.guard.State() }

func (c *cursor) Close() error {
	c.positioned = false
	return c.guard.Close()
}
