package rowiter

import "context"

// NewFlat issues the query and returns an iterator that maps every row to one entity.
// When the cursor can't be opened, the returned error is both an ErrDataAccess and an ErrAcquisition.
func NewFlat[E any](ctx context.Context, src Source, query string, mapper RowMapper[E], opts ...Option) (*FlatIterator[E], error) {
	c, err := open(ctx, src, query, opts)
	if err != nil {
		return nil, err
	}
	return &FlatIterator[E]{cursor: c, mapper: mapper}, nil
}

// FlatIterator yields one entity per row.
type FlatIterator[E any] struct {
	*cursor
	mapper RowMapper[E]
}

var _ Iterator[int] = (*FlatIterator[int])(nil)

func (i *FlatIterator[E]) HasNext() bool {
	return i.swallow(i.Peek())
}

func (i *FlatIterator[E]) Peek() (bool, error) {
	return i.peek()
}

func (i *FlatIterator[E]) Next() (E, error) {
	var zero E
	ok, err := i.Peek()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrExhausted
	}
	v, err := i.mapper(i.consume())
	if err != nil {
		return zero, i.fail(err)
	}
	return v, nil
}
