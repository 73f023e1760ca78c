package buffer

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/underlay/delta/logger"
	"github.com/underlay/delta/types"
)

var _ types.Dataset = (*Dataset)(nil)

// Dataset buffers quad additions and deletions over a base dataset and
// tracks the transaction it holds on the base. Default graph edits are kept
// as triples and named graph edits as quads.
//
// A Dataset is not safe for concurrent use. Exclusion between writers is
// left to the base, whose Begin and Promote may block.
type Dataset struct {
	base     types.Dataset
	triples  *delta[types.Triple]
	quads    *delta[types.Quad]
	prefixes *Prefixes
	journal  *journal
	unique   bool
	logger   logger.Logger

	access AccessState
	// owned is true when the overlay began the base transaction it holds
	owned bool

	writeTxnCount int
	writeTxnLimit int

	// the caller's transaction on the overlay
	txnType types.TxnType
	txnMode types.TxnMode
}

// NewDataset returns an empty overlay over base
func NewDataset(base types.Dataset, opts ...Option) (*Dataset, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	j := &journal{}
	l := o.prefixed("dataset")
	d := &Dataset{
		base:          base,
		journal:       j,
		unique:        o.unique,
		logger:        l,
		writeTxnLimit: o.writeTxnLimit,
	}

	d.triples = newDelta(o.unique, j, func(t types.Triple) (bool, error) {
		return base.Contains(t.InGraph(types.DefaultGraph))
	})
	d.quads = newDelta(o.unique, j, base.Contains)
	d.prefixes = NewPrefixes(base.Prefixes(), l)
	d.prefixes.journal = j
	return d, nil
}

// AccessState returns what the overlay currently holds on its base
func (d *Dataset) AccessState() AccessState { return d.access }

// WriteTxnCount is the number of committed write transactions not yet flushed
func (d *Dataset) WriteTxnCount() int { return d.writeTxnCount }

func (d *Dataset) ambient() types.TxnMode {
	if d.access == AccessNone && d.base.InTransaction() {
		return d.base.TransactionMode()
	}
	return types.ModeNone
}

// ensure moves the access state forward so that op is allowed
func (d *Dataset) ensure(op access, mode types.Promote) error {
	if !d.base.SupportsTransactions() {
		d.access, _ = transition(d.access, op, types.ModeNone)
		return nil
	}

	next, act := transition(d.access, op, d.ambient())
	switch act {
	case actBeginRead:
		if err := d.base.Begin(types.TxnReadPromote); err != nil {
			return errors.Wrap(err, "beginning read transaction")
		}
		d.owned = true
	case actBeginWrite:
		if err := d.base.Begin(types.TxnWrite); err != nil {
			return errors.Wrap(err, "beginning write transaction")
		}
		d.owned = true
	case actAdopt:
		d.owned = false
	case actPromote, actAdoptPromote:
		ok, err := d.base.Promote(mode)
		if err != nil {
			return errors.Wrap(err, "promoting read transaction")
		} else if !ok {
			d.logger.Warnf("promotion refused: another writer committed")
			return types.ErrTransactionConflict
		}
		if act == actAdoptPromote {
			d.owned = false
		}
	}

	if act != actNone {
		d.logger.Debugf("access %s -> %s (%s)", d.access, next, act)
	}
	d.access = next
	return nil
}

func (d *Dataset) read() error {
	return d.ensure(accessRead, types.PromoteIsolated)
}

// write checks that the caller's transaction allows writing, promoting it
// if it can be promoted, and then takes write access on the base
func (d *Dataset) write() error {
	if d.txnMode == types.ModeRead {
		if d.txnType == types.TxnRead {
			return types.ErrReadOnly
		}
		mode := types.PromoteIsolated
		if d.txnType == types.TxnReadCommittedPromote {
			mode = types.PromoteReadCommitted
		}
		if ok, err := d.Promote(mode); err != nil {
			return err
		} else if !ok {
			return types.ErrTransactionConflict
		}
		return nil
	}
	return d.ensure(accessWrite, types.PromoteIsolated)
}

func (d *Dataset) dirty() bool {
	return !d.triples.empty() || !d.quads.empty() || d.prefixes.IsDirty()
}

// Add buffers the addition of a quad
func (d *Dataset) Add(quad types.Quad) error {
	if err := quad.Validate(); err != nil {
		return err
	} else if err := d.write(); err != nil {
		return err
	} else if quad.IsDefaultGraph() {
		return d.triples.add(quad.Triple())
	}
	return d.quads.add(quad)
}

// Delete buffers the deletion of a quad
func (d *Dataset) Delete(quad types.Quad) error {
	if err := quad.Validate(); err != nil {
		return err
	} else if err := d.write(); err != nil {
		return err
	} else if quad.IsDefaultGraph() {
		return d.triples.delete(quad.Triple())
	}
	return d.quads.delete(quad)
}

// Contains reports whether a quad is visible. A pattern is visible if
// any visible quad matches it.
func (d *Dataset) Contains(quad types.Quad) (bool, error) {
	if !quad.IsConcrete() {
		iter, err := d.Find(quad)
		if err != nil {
			return false, err
		}
		return types.HasNext(iter)
	} else if err := d.read(); err != nil {
		return false, err
	} else if quad.IsDefaultGraph() {
		return d.triples.contains(quad.Triple())
	}
	return d.quads.contains(quad)
}

func (d *Dataset) isDeleted(quad types.Quad) bool {
	if quad.IsDefaultGraph() {
		return d.triples.deleted.has(quad.Triple())
	}
	return d.quads.deleted.has(quad)
}

func (d *Dataset) addedMatching(pattern types.Quad) []types.Quad {
	added := []types.Quad{}
	if pattern.Graph.IsAny() || pattern.IsDefaultGraph() {
		triple := pattern.Triple()
		for t := range d.triples.added {
			if t.Matches(triple) {
				added = append(added, t.InGraph(types.DefaultGraph))
			}
		}
	}
	if !pattern.IsDefaultGraph() {
		added = append(added, d.quads.matching(func(q types.Quad) bool { return q.Matches(pattern) })...)
	}
	return added
}

// Find returns the visible quads matching the pattern. A pattern graph of
// types.Any matches every graph including the default graph.
func (d *Dataset) Find(pattern types.Quad) (types.Iterator[types.Quad], error) {
	if err := d.read(); err != nil {
		return nil, err
	}
	iter, err := d.base.Find(pattern)
	if err != nil {
		return nil, err
	}
	return newMerged(iter, d.isDeleted, d.addedMatching(pattern), d.unique), nil
}

// FindNamed is Find restricted to the named graphs
func (d *Dataset) FindNamed(pattern types.Quad) (types.Iterator[types.Quad], error) {
	if pattern.IsDefaultGraph() {
		return types.NewSliceIterator([]types.Quad{}), nil
	}
	iter, err := d.Find(pattern)
	if err != nil {
		return nil, err
	}
	return types.Filter(iter, func(q types.Quad) bool { return !q.IsDefaultGraph() }), nil
}

// IsEmpty reports whether no quad is visible in any graph
func (d *Dataset) IsEmpty() (bool, error) {
	if err := d.read(); err != nil {
		return false, err
	} else if len(d.triples.added) > 0 || len(d.quads.added) > 0 {
		return false, nil
	}
	iter, err := d.Find(types.Quad{})
	if err != nil {
		return false, err
	}
	has, err := types.HasNext(iter)
	return !has, err
}

// Size counts the visible quads in every graph
func (d *Dataset) Size() (int, error) {
	if err := d.read(); err != nil {
		return 0, err
	}
	if d.unique {
		n, err := d.base.Size()
		if err != nil {
			return 0, err
		}
		n -= len(d.triples.deleted) + len(d.quads.deleted)
		n += len(d.triples.added) + len(d.quads.added)
		return n, nil
	}
	iter, err := d.Find(types.Quad{})
	if err != nil {
		return 0, err
	}
	return types.Count(iter)
}

// GraphNames lists the named graphs with at least one visible quad, sorted
func (d *Dataset) GraphNames() ([]types.Term, error) {
	if err := d.read(); err != nil {
		return nil, err
	}
	names, err := d.base.GraphNames()
	if err != nil {
		return nil, err
	}

	candidates := set[types.Term]{}
	for _, name := range names {
		candidates.add(name)
	}
	for q := range d.quads.added {
		candidates.add(q.Graph)
	}

	result := []types.Term{}
	for name := range candidates {
		has, err := d.Contains(types.Quad{Graph: name})
		if err != nil {
			return nil, err
		} else if has {
			result = append(result, name)
		}
	}
	slices.SortFunc(result, types.TermLess)
	return result, nil
}

// DeleteAny buffers the deletion of every visible quad matching the
// pattern and returns how many there were
func (d *Dataset) DeleteAny(pattern types.Quad) (int, error) {
	if err := d.write(); err != nil {
		return 0, err
	}
	iter, err := d.Find(pattern)
	if err != nil {
		return 0, err
	}
	quads, err := types.Collect(iter)
	if err != nil {
		return 0, err
	}
	for _, q := range quads {
		if err := d.Delete(q); err != nil {
			return 0, err
		}
	}
	return len(quads), nil
}

// Clear buffers the deletion of every quad. Prefixes are kept.
func (d *Dataset) Clear() error {
	if err := d.write(); err != nil {
		return err
	}
	iter, err := d.base.Find(types.Quad{})
	if err != nil {
		return err
	}
	quads, err := types.Collect(iter)
	if err != nil {
		return err
	}

	for t := range d.triples.added {
		d.triples.unmarkAdded(t)
	}
	for q := range d.quads.added {
		d.quads.unmarkAdded(q)
	}
	for _, q := range quads {
		if q.IsDefaultGraph() {
			d.triples.markDeleted(q.Triple())
		} else {
			d.quads.markDeleted(q)
		}
	}
	return nil
}

// Added returns the pending additions, sorted
func (d *Dataset) Added() []types.Quad {
	return sortedQuads(d.triples.added, d.quads.added)
}

// Deleted returns the pending deletions, sorted
func (d *Dataset) Deleted() []types.Quad {
	return sortedQuads(d.triples.deleted, d.quads.deleted)
}

func sortedQuads(triples set[types.Triple], quads set[types.Quad]) []types.Quad {
	result := make([]types.Quad, 0, len(triples)+len(quads))
	for t := range triples {
		result = append(result, t.InGraph(types.DefaultGraph))
	}
	result = append(result, maps.Keys(quads)...)
	slices.SortFunc(result, types.QuadLess)
	return result
}

// Prefix resolves a namespace prefix
func (d *Dataset) Prefix(prefix string) (string, bool, error) {
	if err := d.read(); err != nil {
		return "", false, err
	}
	return d.prefixes.Get(prefix)
}

// SetPrefix maps a prefix to a namespace URI
func (d *Dataset) SetPrefix(prefix, uri string) error {
	if err := d.write(); err != nil {
		return err
	}
	return d.prefixes.Set(prefix, uri)
}

// DeletePrefix removes a prefix mapping
func (d *Dataset) DeletePrefix(prefix string) error {
	if err := d.write(); err != nil {
		return err
	}
	return d.prefixes.Delete(prefix)
}

// ClearPrefixes removes every prefix mapping
func (d *Dataset) ClearPrefixes() error {
	if err := d.write(); err != nil {
		return err
	}
	return d.prefixes.Clear()
}

// ForEachPrefix calls fn with every visible prefix mapping
func (d *Dataset) ForEachPrefix(fn func(prefix, uri string) error) error {
	if err := d.read(); err != nil {
		return err
	}
	return d.prefixes.ForEach(fn)
}

// PrefixCount counts the visible prefix mappings
func (d *Dataset) PrefixCount() (int, error) {
	if err := d.read(); err != nil {
		return 0, err
	}
	return d.prefixes.Size()
}

// Prefixes returns the overlay's prefix map. Its operations take the same
// access on the base as the Dataset's own prefix methods.
func (d *Dataset) Prefixes() types.PrefixMap { return datasetPrefixes{d} }

// PrefixEdits returns the pending prefix mappings and the prefixes
// pending deletion, sorted
func (d *Dataset) PrefixEdits() (added map[string]string, deleted []string) {
	deleted = d.prefixes.Deleted()
	slices.Sort(deleted)
	return d.prefixes.Added(), deleted
}

type datasetPrefixes struct{ d *Dataset }

func (p datasetPrefixes) Get(prefix string) (string, bool, error) { return p.d.Prefix(prefix) }
func (p datasetPrefixes) Set(prefix, uri string) error           { return p.d.SetPrefix(prefix, uri) }
func (p datasetPrefixes) Delete(prefix string) error             { return p.d.DeletePrefix(prefix) }
func (p datasetPrefixes) ForEach(fn func(prefix, uri string) error) error {
	return p.d.ForEachPrefix(fn)
}

// Flush writes the pending edits to the base and releases whatever
// transaction the overlay holds. With read access it only ends the read
// transaction. A failed flush aborts the base transaction the overlay
// began and keeps the buffers; the caller should then Abort or Discard.
func (d *Dataset) Flush() error {
	switch d.access {
	case AccessNone:
		if !d.dirty() {
			return nil
		}
		// left over from a failed flush
		if err := d.ensure(accessWrite, types.PromoteIsolated); err != nil {
			return err
		}
		return d.flushToDB()
	case AccessRead:
		if d.owned {
			d.base.End()
		}
		d.access = AccessNone
		d.owned = false
		return nil
	}
	return d.flushToDB()
}

func (d *Dataset) flushToDB() error {
	pending := len(d.triples.deleted) + len(d.quads.deleted) + len(d.triples.added) + len(d.quads.added)
	if err := d.apply(); err != nil {
		if d.owned && d.base.SupportsTransactions() {
			if abortErr := d.base.Abort(); abortErr != nil {
				d.logger.Errorf("aborting failed flush: %v", abortErr)
			}
			d.base.End()
		}
		d.access = AccessNone
		d.owned = false
		return errors.Wrapf(err, "flushing %d buffered edits", pending)
	}

	if d.owned && d.base.SupportsTransactions() {
		if err := d.base.Commit(); err != nil {
			d.base.End()
			d.access = AccessNone
			d.owned = false
			return errors.Wrap(err, "committing flush")
		}
		d.base.End()
	}

	d.logger.Debugf("flushed %d deletions and %d additions after %d write transactions",
		len(d.triples.deleted)+len(d.quads.deleted),
		len(d.triples.added)+len(d.quads.added),
		d.writeTxnCount)

	d.triples.reset()
	d.quads.reset()
	if d.journal.active {
		d.journal.start()
	}
	d.writeTxnCount = 0
	d.access = AccessNone
	d.owned = false
	return nil
}

// apply replays the buffers against the base: deletions before additions
// and the default graph before named graphs
func (d *Dataset) apply() error {
	for t := range d.triples.deleted {
		if err := d.base.Delete(t.InGraph(types.DefaultGraph)); err != nil {
			return errors.Wrapf(err, "deleting %s", t)
		}
	}
	for q := range d.quads.deleted {
		if err := d.base.Delete(q); err != nil {
			return errors.Wrapf(err, "deleting %s", q)
		}
	}
	for t := range d.triples.added {
		if err := d.base.Add(t.InGraph(types.DefaultGraph)); err != nil {
			return errors.Wrapf(err, "adding %s", t)
		}
	}
	for q := range d.quads.added {
		if err := d.base.Add(q); err != nil {
			return errors.Wrapf(err, "adding %s", q)
		}
	}
	return d.prefixes.Flush()
}

// release gives up the base transaction without writing anything
func (d *Dataset) release() {
	if d.owned && d.base.SupportsTransactions() {
		if d.access == AccessWrite {
			if err := d.base.Abort(); err != nil {
				d.logger.Errorf("aborting base transaction: %v", err)
			}
		}
		d.base.End()
	}
	d.access = AccessNone
	d.owned = false
}

// Discard drops every pending edit and releases the base transaction
func (d *Dataset) Discard() {
	d.triples.reset()
	d.quads.reset()
	d.prefixes.Discard()
	if d.journal.active {
		d.journal.start()
	}
	d.writeTxnCount = 0
	d.release()
}

// Begin starts a transaction on the overlay. The base is not touched
// until the first read or write.
func (d *Dataset) Begin(txnType types.TxnType) error {
	if d.txnMode != types.ModeNone {
		return types.ErrInTransaction
	} else if txnType < types.TxnRead || txnType > types.TxnReadCommittedPromote {
		return errors.Errorf("invalid transaction type %d", txnType)
	}
	d.txnType = txnType
	d.txnMode = txnType.Mode()
	if d.txnMode == types.ModeWrite {
		d.journal.start()
	}
	return nil
}

// Commit ends the transaction keeping its edits. Every writeTxnLimit
// committed write transactions the buffers are flushed to the base.
func (d *Dataset) Commit() error {
	if d.txnMode == types.ModeNone {
		return types.ErrNoTransaction
	}

	mode := d.txnMode
	d.txnMode = types.ModeNone
	d.journal.stop()

	if mode == types.ModeWrite && d.access == AccessWrite {
		d.writeTxnCount++
		if d.writeTxnCount < d.writeTxnLimit {
			return nil
		}
		return d.Flush()
	} else if d.access == AccessRead {
		return d.Flush()
	}
	return nil
}

// Abort ends the transaction and rolls back the edits it made
func (d *Dataset) Abort() error {
	if d.txnMode == types.ModeNone {
		return types.ErrNoTransaction
	}

	if d.txnMode == types.ModeWrite {
		d.journal.rollback()
	}
	d.txnMode = types.ModeNone

	if d.access == AccessRead || (d.writeTxnCount == 0 && !d.dirty()) {
		d.release()
	}
	return nil
}

// End finishes the transaction. A write transaction that was neither
// committed nor aborted is aborted.
func (d *Dataset) End() {
	switch d.txnMode {
	case types.ModeNone:
		return
	case types.ModeWrite:
		d.logger.Warnf("write transaction ended without commit or abort")
	}
	if err := d.Abort(); err != nil {
		d.logger.Errorf("ending transaction: %v", err)
	}
}

// Promote turns the caller's read transaction into a write transaction.
// It returns false if the base refused because of a conflicting writer,
// and ErrNotPromotable for a plain TxnRead.
func (d *Dataset) Promote(mode types.Promote) (bool, error) {
	switch {
	case d.txnMode == types.ModeNone:
		return false, types.ErrNoTransaction
	case d.txnMode == types.ModeWrite:
		return true, nil
	case d.txnType == types.TxnRead:
		return false, types.ErrNotPromotable
	}

	if err := d.ensure(accessWrite, mode); errors.Is(err, types.ErrTransactionConflict) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	d.txnMode = types.ModeWrite
	d.journal.start()
	return true, nil
}

// InTransaction reports whether the caller has a transaction open on the overlay
func (d *Dataset) InTransaction() bool { return d.txnMode != types.ModeNone }

// TransactionMode is the mode of the caller's transaction
func (d *Dataset) TransactionMode() types.TxnMode { return d.txnMode }

// SupportsTransactions is always true for an overlay
func (d *Dataset) SupportsTransactions() bool { return true }
