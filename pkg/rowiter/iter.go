package rowiter

import (
	"iter"

	"go.llib.dev/rowstream/pkg/errorkit"
)

// All turns the iterator into a range-over-func sequence.
// The iterator is closed when the loop ends, including an early break.
// Existence check failures are yielded as errors instead of being swallowed,
// and the sequence stops after the first error.
func All[E any](it Iterator[E]) iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		var zero E
		defer it.Close()
		for {
			ok, err := it.Peek()
			if err != nil {
				yield(zero, err)
				return
			}
			if !ok {
				break
			}
			v, err := it.Next()
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := it.Close(); err != nil {
			yield(zero, err)
		}
	}
}

// Collect drains the iterator into a slice.
func Collect[E any](it Iterator[E]) ([]E, error) {
	var vs []E
	for v, err := range All(it) {
		if err != nil {
			return vs, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

// First returns the first element and closes the iterator.
func First[E any](it Iterator[E]) (E, bool, error) {
	var zero E
	for v, err := range All(it) {
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	}
	return zero, false, nil
}

// Count drains the iterator and tells how many elements it had.
func Count[E any](it Iterator[E]) (int, error) {
	var n int
	for _, err := range All(it) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// PullIter is the Next/Value/Err/Close iterator shape.
type PullIter[E any] interface {
	// Next will ensure that Value returns the next item when executed.
	// If the next value is not retrievable, Next returns false and Err reports the cause.
	Next() bool
	// Value returns the current value in the iterator.
	Value() E
	// Err return the error cause.
	Err() error
	Close() error
}

func ToPullIter[E any](it Iterator[E]) PullIter[E] {
	return &pullIter[E]{it: it}
}

type pullIter[E any] struct {
	it    Iterator[E]
	value E
	err   error
	done  bool
}

func (i *pullIter[E]) Next() bool {
	if i.done {
		return false
	}
	ok, err := i.it.Peek()
	if err != nil {
		i.stop(err)
		return false
	}
	if !ok {
		i.stop(nil)
		return false
	}
	v, err := i.it.Next()
	if err != nil {
		i.stop(err)
		return false
	}
	i.value = v
	return true
}

func (i *pullIter[E]) stop(err error) {
	var zero E
	i.done = true
	i.value = zero
	i.err = errorkit.Merge(err, i.it.Close())
}

func (i *pullIter[E]) Value() E { return i.value }

func (i *pullIter[E]) Err() error { return i.err }

func (i *pullIter[E]) Close() error {
	if i.done {
		return nil
	}
	i.done = true
	return i.it.Close()
}
