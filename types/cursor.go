package types

// An Iterator is a lazy, finite, single-pass sequence.
// Next returns false once the sequence is exhausted or an error occurred;
// Err reports that error. Close must be called when done.
type Iterator[T any] interface {
	Next() (T, bool)
	Err() error
	Close()
}

type sliceIterator[T any] struct {
	i     int
	slice []T
}

// NewSliceIterator iterates over a slice
func NewSliceIterator[T any](slice []T) Iterator[T] {
	return &sliceIterator[T]{slice: slice}
}

func (si *sliceIterator[T]) Close()     {}
func (si *sliceIterator[T]) Err() error { return nil }
func (si *sliceIterator[T]) Next() (value T, valid bool) {
	if si.i < len(si.slice) {
		value, valid = si.slice[si.i], true
		si.i++
	}
	return
}

type filterIterator[T any] struct {
	Iterator[T]
	keep func(T) bool
}

// Filter wraps an iterator to only yield elements for which keep is true
func Filter[T any](iter Iterator[T], keep func(T) bool) Iterator[T] {
	return &filterIterator[T]{iter, keep}
}

func (fi *filterIterator[T]) Next() (value T, valid bool) {
	for value, valid = fi.Iterator.Next(); valid; value, valid = fi.Iterator.Next() {
		if fi.keep(value) {
			return
		}
	}
	return
}

type mapIterator[S, T any] struct {
	iter Iterator[S]
	f    func(S) T
}

// Map wraps an iterator to transform each element
func Map[S, T any](iter Iterator[S], f func(S) T) Iterator[T] {
	return &mapIterator[S, T]{iter, f}
}

func (mi *mapIterator[S, T]) Close()     { mi.iter.Close() }
func (mi *mapIterator[S, T]) Err() error { return mi.iter.Err() }
func (mi *mapIterator[S, T]) Next() (value T, valid bool) {
	s, valid := mi.iter.Next()
	if valid {
		value = mi.f(s)
	}
	return
}

// Collect drains an iterator into a slice and closes it
func Collect[T any](iter Iterator[T]) ([]T, error) {
	defer iter.Close()
	result := []T{}
	for value, valid := iter.Next(); valid; value, valid = iter.Next() {
		result = append(result, value)
	}
	return result, iter.Err()
}

// Count drains an iterator and returns the number of elements
func Count[T any](iter Iterator[T]) (n int, err error) {
	defer iter.Close()
	for _, valid := iter.Next(); valid; _, valid = iter.Next() {
		n++
	}
	return n, iter.Err()
}

// HasNext reports whether the iterator yields at least one element, and closes it
func HasNext[T any](iter Iterator[T]) (bool, error) {
	defer iter.Close()
	_, valid := iter.Next()
	return valid, iter.Err()
}
