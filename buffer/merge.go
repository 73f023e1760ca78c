package buffer

import (
	"github.com/underlay/delta/types"
)

// merged yields the base elements that are not pending deletion, followed by
// the pending additions. The additions are snapshotted when the iterator is
// created; the base is read lazily.
type merged[T comparable] struct {
	base    types.Iterator[T]
	deleted func(T) bool
	added   []T
	// seen is nil in unique mode, where added and base never overlap
	seen set[T]
	done bool
	err  error
	i    int
}

func newMerged[T comparable](base types.Iterator[T], deleted func(T) bool, added []T, unique bool) *merged[T] {
	m := &merged[T]{base: base, deleted: deleted, added: added}
	if !unique {
		m.seen = set[T]{}
	}
	return m
}

func (m *merged[T]) Next() (value T, valid bool) {
	if m.err != nil {
		return
	}

	if !m.done {
		for value, valid = m.base.Next(); valid; value, valid = m.base.Next() {
			if m.deleted(value) {
				continue
			} else if m.seen != nil {
				m.seen.add(value)
			}
			return
		}
		m.done = true
		if m.err = m.base.Err(); m.err != nil {
			return
		}
	}

	for m.i < len(m.added) {
		value = m.added[m.i]
		m.i++
		if m.seen != nil && m.seen.has(value) {
			continue
		}
		return value, true
	}

	var zero T
	return zero, false
}

func (m *merged[T]) Err() error { return m.err }
func (m *merged[T]) Close()     { m.base.Close() }
