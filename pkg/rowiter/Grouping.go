package rowiter

import "context"

// NewGrouping issues the query and returns an iterator that folds every run of adjacent rows
// with an equal key into one aggregate entity.
// The query should order its rows by the grouping key.
// When the cursor can't be opened, the returned error is both an ErrDataAccess and an ErrAcquisition.
func NewGrouping[K comparable, S, E any](ctx context.Context, src Source, query string, split RowSplitter[K, S], aggregate Aggregator[K, S, E], opts ...Option) (*GroupingIterator[K, S, E], error) {
	c, err := open(ctx, src, query, opts)
	if err != nil {
		return nil, err
	}
	return &GroupingIterator[K, S, E]{cursor: c, split: split, aggregate: aggregate}, nil
}

// GroupingIterator yields one aggregate entity per run of rows sharing a key.
//
// Detecting the end of a run means reading the first row of the next run.
// That row is split right away and parked in a single-slot buffer,
// and the next call to Next starts its run with it,
// so the underlying cursor never needs to step backwards.
type GroupingIterator[K comparable, S, E any] struct {
	*cursor
	split     RowSplitter[K, S]
	aggregate Aggregator[K, S, E]
	// pending is the boundary row read ahead by the previous Next.
	pending *member[K, S]
}

type member[K comparable, S any] struct {
	Key K
	Sub S
}

var _ Iterator[int] = (*GroupingIterator[string, int, int])(nil)

func (i *GroupingIterator[K, S, E]) HasNext() bool {
	return i.swallow(i.Peek())
}

func (i *GroupingIterator[K, S, E]) Peek() (bool, error) {
	if i.guard.IsClosed() {
		i.pending = nil
		return false, nil
	}
	if i.pending != nil {
		return true, nil
	}
	return i.peek()
}

func (i *GroupingIterator[K, S, E]) Next() (E, error) {
	var zero E
	ok, err := i.Peek()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrExhausted
	}
	first, err := i.first()
	if err != nil {
		return zero, err
	}
	var (
		key  = first.Key
		subs = []S{first.Sub}
	)
	for {
		s := i.advance()
		if s.Kind == stepFailed {
			return zero, s.Err
		}
		if s.Kind == stepEnd {
			break
		}
		m, err := i.read()
		if err != nil {
			return zero, err
		}
		if m.Key != key {
			i.pending = &m
			break
		}
		subs = append(subs, m.Sub)
	}
	return i.aggregate(key, subs), nil
}

// first returns the opening row of the next run, preferring the parked boundary row.
func (i *GroupingIterator[K, S, E]) first() (member[K, S], error) {
	if i.pending != nil {
		m := *i.pending
		i.pending = nil
		return m, nil
	}
	i.consume()
	return i.read()
}

func (i *GroupingIterator[K, S, E]) read() (member[K, S], error) {
	key, sub, err := i.split(i.rows)
	if err != nil {
		return member[K, S]{}, i.fail(err)
	}
	return member[K, S]{Key: key, Sub: sub}, nil
}

func (i *GroupingIterator[K, S, E]) Close() error {
	i.pending = nil
	return i.cursor.Close()
}
