// Package rowiter exposes query results as lazily pulled domain entities.
//
// # Summary
//
// A rowiter iterator owns exactly one resource bundle (the cursor, its statement and its connection)
// from the moment it is constructed until the moment it is released.
// Rows are read one at a time, on the caller's goroutine, inside HasNext, Peek and Next.
// The bundle is released exactly once, on whichever path ends the iteration:
// the rows are drained, a read fails, or the caller calls Close.
//
// FlatIterator maps every row to one entity.
// GroupingIterator folds every run of adjacent rows sharing a key into one aggregate entity.
// The grouping key is expected to be non-decreasing across the rows (ORDER BY the key);
// rows are never re-sorted, so an unsorted result legally yields the same key in more than one group.
//
// Iterators are single-consumer and carry no internal synchronisation.
package rowiter

import (
	"context"
	"database/sql"
	"io"

	"go.llib.dev/rowstream/pkg/errorkit"
)

const (
	// ErrAcquisition is returned when the cursor or its connection could not be opened.
	ErrAcquisition errorkit.Error = "rowiter: resource acquisition failed"
	// ErrDataAccess is returned when reading or mapping a row failed.
	ErrDataAccess errorkit.Error = "rowiter: data access failed"
	// ErrExhausted is returned by Next when the iterator has no more elements.
	ErrExhausted errorkit.Error = "rowiter: no more elements"
	// ErrUnsupportedOperation is the error for operations the iterators intentionally lack, such as element removal.
	ErrUnsupportedOperation errorkit.Error = "rowiter: unsupported operation"
)

// Scanner is the current row of a Cursor.
// It is only valid until the Cursor is advanced.
type Scanner interface {
	Scan(dest ...any) error
}

// Cursor is a forward-only handle over the rows returned by a query.
// Its shape matches *sql.Rows, so database/sql results can be used directly.
type Cursor interface {
	// Next prepares the next row for reading.
	// It returns false when there are no more rows or a read failed; Err tells which one happened.
	Next() bool
	// Err returns the error, if any, that was encountered during iteration.
	Err() error
	// Scanner reads the columns of the current row.
	Scanner
	// Close releases every resource the cursor holds: the result set, the statement and the connection.
	io.Closer
}

var _ Cursor = (*sql.Rows)(nil)

// Source opens cursors for fully formed queries.
// Connection acquisition and pooling are the Source's business;
// when Open fails, it must have released whatever it acquired already.
type Source interface {
	Open(ctx context.Context, query string, args ...any) (Cursor, error)
}

// SourceFunc allows an ordinary function to be used as a Source.
type SourceFunc func(ctx context.Context, query string, args ...any) (Cursor, error)

func (fn SourceFunc) Open(ctx context.Context, query string, args ...any) (Cursor, error) {
	return fn(ctx, query, args...)
}

// RowMapper turns a single row into an entity.
type RowMapper[E any] func(Scanner) (E, error)

// RowSplitter extracts the grouping key and the sub-item from a single row.
type RowSplitter[K comparable, S any] func(Scanner) (K, S, error)

// Aggregator builds the aggregate entity of one run of rows sharing the same key.
// The sub-items are in the order the rows were read.
type Aggregator[K comparable, S, E any] func(key K, subItems []S) E

// Iterator is the common contract of FlatIterator and GroupingIterator.
//
// Removal is intentionally not part of the contract.
type Iterator[E any] interface {
	// HasNext reports whether Next can return another element.
	// It has no error channel: a read failure is logged, the resources are released,
	// and it is reported as the end of the data.
	HasNext() bool
	// Peek is HasNext with the read failure returned as an ErrDataAccess.
	Peek() (bool, error)
	// Next returns the next element.
	// It returns ErrExhausted when there is no next element,
	// and ErrDataAccess when reading or mapping the rows failed, after releasing the resources.
	Next() (E, error)
	// State reports whether the iterator still holds its resources.
	State() State
	// Close releases the resources. It is safe to call it any number of times.
	io.Closer
}

// State is the lifecycle state of an iterator. Active → Closed is one-way.
type State int

const (
	Active State = iota
	Closed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
