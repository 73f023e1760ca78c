package buffer

type set[T comparable] map[T]struct{}

func (s set[T]) has(x T) bool {
	_, has := s[x]
	return has
}

// add returns false if x was already present
func (s set[T]) add(x T) bool {
	if _, has := s[x]; has {
		return false
	}
	s[x] = struct{}{}
	return true
}

// remove returns false if x was absent
func (s set[T]) remove(x T) bool {
	if _, has := s[x]; !has {
		return false
	}
	delete(s, x)
	return true
}

// journal records how to undo buffer edits made during a write transaction.
// A nil or inactive journal records nothing.
type journal struct {
	active bool
	undo   []func()
}

func (j *journal) record(f func()) {
	if j != nil && j.active {
		j.undo = append(j.undo, f)
	}
}

func (j *journal) start() {
	j.active = true
	j.undo = j.undo[:0]
}

// stop forgets everything recorded so far
func (j *journal) stop() {
	j.active = false
	j.undo = nil
}

// rollback undoes every recorded edit, newest first, and stops recording
func (j *journal) rollback() {
	undo := j.undo
	j.stop()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// delta holds the pending additions and deletions for one kind of element.
// added and deleted are always disjoint. In unique mode added never holds an
// element of the base and deleted only holds elements of the base.
type delta[T comparable] struct {
	added   set[T]
	deleted set[T]
	unique  bool
	journal *journal
	// inBase checks the base store
	inBase func(T) (bool, error)
}

func newDelta[T comparable](unique bool, j *journal, inBase func(T) (bool, error)) *delta[T] {
	return &delta[T]{
		added:   set[T]{},
		deleted: set[T]{},
		unique:  unique,
		journal: j,
		inBase:  inBase,
	}
}

func (d *delta[T]) markAdded(x T) {
	if d.added.add(x) {
		d.journal.record(func() { delete(d.added, x) })
	}
}

func (d *delta[T]) unmarkAdded(x T) {
	if d.added.remove(x) {
		d.journal.record(func() { d.added[x] = struct{}{} })
	}
}

func (d *delta[T]) markDeleted(x T) {
	if d.deleted.add(x) {
		d.journal.record(func() { delete(d.deleted, x) })
	}
}

func (d *delta[T]) unmarkDeleted(x T) {
	if d.deleted.remove(x) {
		d.journal.record(func() { d.deleted[x] = struct{}{} })
	}
}

func (d *delta[T]) add(x T) error {
	if d.unique {
		in, err := d.inBase(x)
		if err != nil {
			return err
		}
		d.unmarkDeleted(x)
		if !in {
			d.markAdded(x)
		}
		return nil
	}
	d.unmarkDeleted(x)
	d.markAdded(x)
	return nil
}

func (d *delta[T]) delete(x T) error {
	if d.unique {
		in, err := d.inBase(x)
		if err != nil {
			return err
		}
		d.unmarkAdded(x)
		if in {
			d.markDeleted(x)
		}
		return nil
	}
	d.unmarkAdded(x)
	d.markDeleted(x)
	return nil
}

func (d *delta[T]) contains(x T) (bool, error) {
	if d.added.has(x) {
		return true, nil
	} else if d.deleted.has(x) {
		return false, nil
	}
	return d.inBase(x)
}

// matching returns the pending additions that satisfy match
func (d *delta[T]) matching(match func(T) bool) []T {
	result := []T{}
	for x := range d.added {
		if match(x) {
			result = append(result, x)
		}
	}
	return result
}

func (d *delta[T]) empty() bool { return len(d.added) == 0 && len(d.deleted) == 0 }

func (d *delta[T]) reset() {
	d.added = set[T]{}
	d.deleted = set[T]{}
}
