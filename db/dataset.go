package db

import (
	"encoding/binary"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/underlay/delta/types"
)

var _ types.Dataset = (*Dataset)(nil)

// Dataset is a handle on a Store. Outside a transaction every operation
// runs in its own Badger transaction and writes take the store's writer
// lock for their duration.
type Dataset struct {
	store *Store

	txn     *badger.Txn
	txnType types.TxnType
	mode    types.TxnMode
	// version is the store version when the transaction began
	version uint64
	// locked is true while the handle holds the writer lock
	locked bool
	// done is true once a write transaction was committed or aborted
	done bool
	// wrote is true once the write transaction changed a key
	wrote bool
	// stale holds read transactions replaced by a promotion; iterators
	// opened before the promotion keep reading from them until End
	stale []*badger.Txn
}

// Begin starts a transaction. A write transaction waits for the writer lock.
func (d *Dataset) Begin(txnType types.TxnType) error {
	if d.mode != types.ModeNone {
		return types.ErrInTransaction
	}

	switch txnType {
	case types.TxnWrite:
		d.store.writer.Lock()
		d.locked = true
		d.txn = d.store.Badger.NewTransaction(true)
	case types.TxnRead, types.TxnReadPromote, types.TxnReadCommittedPromote:
		d.txn = d.store.Badger.NewTransaction(false)
	default:
		return errors.Errorf("invalid transaction type %d", txnType)
	}

	d.version = d.store.currentVersion()
	d.txnType = txnType
	d.mode = txnType.Mode()
	d.done, d.wrote = false, false
	return nil
}

// Commit makes the writes of a write transaction visible. The transaction
// stays open, without further writes, until End. A transaction that
// changed nothing does not count as a conflicting write for PromoteIsolated.
func (d *Dataset) Commit() error {
	if d.mode == types.ModeNone {
		return types.ErrNoTransaction
	} else if d.mode == types.ModeRead || d.done {
		return nil
	}

	d.done = true
	if err := d.txn.Commit(); err != nil {
		return errors.Wrap(err, "committing")
	}
	if d.wrote {
		d.store.bump()
	}
	return nil
}

// Abort drops the writes of a write transaction
func (d *Dataset) Abort() error {
	if d.mode == types.ModeNone {
		return types.ErrNoTransaction
	} else if d.mode == types.ModeWrite && !d.done {
		d.done = true
		d.txn.Discard()
	}
	return nil
}

// End finishes the transaction, aborting a write transaction that was not
// committed, and releases the writer lock
func (d *Dataset) End() {
	if d.mode == types.ModeNone {
		return
	}

	d.txn.Discard()
	for _, txn := range d.stale {
		txn.Discard()
	}
	if d.locked {
		d.store.writer.Unlock()
	}

	d.txn, d.stale = nil, nil
	d.mode, d.locked, d.done, d.wrote = types.ModeNone, false, false, false
}

// Promote turns a read transaction into a write transaction. It waits for
// the writer lock. With PromoteIsolated it returns false if another write
// committed since the transaction began.
func (d *Dataset) Promote(mode types.Promote) (bool, error) {
	switch {
	case d.mode == types.ModeNone:
		return false, types.ErrNoTransaction
	case d.mode == types.ModeWrite:
		return true, nil
	case d.txnType == types.TxnRead:
		return false, types.ErrNotPromotable
	}

	d.store.writer.Lock()
	if mode == types.PromoteIsolated && d.store.currentVersion() != d.version {
		d.store.writer.Unlock()
		return false, nil
	}

	d.locked = true
	d.stale = append(d.stale, d.txn)
	d.txn = d.store.Badger.NewTransaction(true)
	d.mode = types.ModeWrite
	return true, nil
}

func (d *Dataset) InTransaction() bool            { return d.mode != types.ModeNone }
func (d *Dataset) TransactionMode() types.TxnMode { return d.mode }
func (d *Dataset) SupportsTransactions() bool     { return true }

// current is the open Badger transaction, if it can still be read
func (d *Dataset) current() *badger.Txn {
	if d.done {
		return nil
	}
	return d.txn
}

func (d *Dataset) view(f func(txn *badger.Txn) error) error {
	if txn := d.current(); txn != nil {
		return f(txn)
	}
	return d.store.Badger.View(f)
}

// update runs f in the write transaction, or in a transaction of its own
// outside one. f reports whether it changed anything.
func (d *Dataset) update(f func(txn *badger.Txn) (bool, error)) error {
	if d.mode == types.ModeRead {
		if d.txnType == types.TxnRead {
			return types.ErrReadOnly
		}
		return errors.Wrap(types.ErrReadOnly, "promote the transaction before writing")
	} else if d.mode == types.ModeWrite {
		if d.done {
			return errors.Wrap(types.ErrReadOnly, "transaction already finished")
		}
		changed, err := f(d.txn)
		d.wrote = d.wrote || changed
		return err
	}

	d.store.writer.Lock()
	defer d.store.writer.Unlock()
	var changed bool
	err := d.store.Badger.Update(func(txn *badger.Txn) (err error) {
		changed, err = f(txn)
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		d.store.bump()
	}
	return nil
}

// Contains reports whether the quad is stored. Patterns are matched.
func (d *Dataset) Contains(quad types.Quad) (has bool, err error) {
	if !quad.IsConcrete() {
		iter, err := d.Find(quad)
		if err != nil {
			return false, err
		}
		return types.HasNext(iter)
	}

	err = d.view(func(txn *badger.Txn) error {
		_, err := txn.Get(quadKey(0, quad))
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		has = true
		return nil
	})
	return
}

// Add stores a quad
func (d *Dataset) Add(quad types.Quad) error {
	if err := quad.Validate(); err != nil {
		return errors.Wrap(err, quad.String())
	}
	return d.update(func(txn *badger.Txn) (bool, error) { return insertQuad(txn, quad) })
}

// insertQuad reports whether the quad was new
func insertQuad(txn *badger.Txn, quad types.Quad) (bool, error) {
	key := quadKey(0, quad)
	if _, err := txn.Get(key); err == nil {
		return false, nil
	} else if err != badger.ErrKeyNotFound {
		return false, err
	}

	for i := uint8(0); i < 3; i++ {
		key := quadKey(i, quad)
		if err := txn.SetEntry(badger.NewEntry(key, nil).WithMeta(key[0])); err != nil {
			return false, err
		}
	}
	return true, addCount(txn, graphKey(quad.Graph), 1)
}

// Delete removes a quad
func (d *Dataset) Delete(quad types.Quad) error {
	if !quad.IsConcrete() {
		return errors.Wrap(types.ErrInvalidQuad, quad.String())
	}
	return d.update(func(txn *badger.Txn) (bool, error) { return removeQuad(txn, quad) })
}

// removeQuad reports whether the quad was stored
func removeQuad(txn *badger.Txn, quad types.Quad) (bool, error) {
	key := quadKey(0, quad)
	if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}

	for i := uint8(0); i < 3; i++ {
		if err := txn.Delete(quadKey(i, quad)); err != nil {
			return false, err
		}
	}
	return true, addCount(txn, graphKey(quad.Graph), -1)
}

// Clear removes every quad. Prefix mappings are kept. Outside a transaction
// large stores are cleared in several Badger transactions.
func (d *Dataset) Clear() error {
	prefixes := [][]byte{{QuadPrefixes[0]}, {QuadPrefixes[1]}, {QuadPrefixes[2]}, {GraphPrefix}}

	if d.mode != types.ModeNone {
		return d.update(func(txn *badger.Txn) (changed bool, err error) {
			for _, prefix := range prefixes {
				keys, err := listKeys(txn, prefix)
				if err != nil {
					return changed, err
				}
				for _, key := range keys {
					if err := txn.Delete(key); err != nil {
						return changed, err
					}
					changed = true
				}
			}
			return changed, nil
		})
	}

	d.store.writer.Lock()
	defer d.store.writer.Unlock()
	defer d.store.bump()

	txn := d.store.Badger.NewTransaction(true)
	defer func() { txn.Discard() }()
	for _, prefix := range prefixes {
		keys, err := listKeys(txn, prefix)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if txn, err = deleteSafe(key, txn, d.store.Badger); err != nil {
				return err
			}
		}
	}
	return txn.Commit()
}

// deleteSafe deletes the key and returns a new transaction if the old one was full
func deleteSafe(key []byte, txn *badger.Txn, db *badger.DB) (*badger.Txn, error) {
	err := txn.Delete(key)
	if err == badger.ErrTxnTooBig {
		if err = txn.Commit(); err != nil {
			return txn, err
		}
		txn = db.NewTransaction(true)
		err = txn.Delete(key)
	}
	return txn, err
}

func listKeys(txn *badger.Txn, prefix []byte) ([][]byte, error) {
	iter := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: prefix})
	defer iter.Close()

	keys := [][]byte{}
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys, nil
}

// Size counts the quads in every graph
func (d *Dataset) Size() (n int, err error) {
	err = d.view(func(txn *badger.Txn) error {
		counts, err := graphCounts(txn)
		for _, c := range counts {
			n += int(c.count)
		}
		return err
	})
	return
}

// GraphNames lists the named graphs with at least one quad, in key order
func (d *Dataset) GraphNames() (names []types.Term, err error) {
	err = d.view(func(txn *badger.Txn) error {
		counts, err := graphCounts(txn)
		if err != nil {
			return err
		}
		names = make([]types.Term, 0, len(counts))
		for _, c := range counts {
			if c.graph.Kind != types.DefaultGraphType {
				names = append(names, c.graph)
			}
		}
		return nil
	})
	return
}

type graphCount struct {
	graph types.Term
	count uint64
}

// graphCounts reads every graph counter in key order, default graph first
func graphCounts(txn *badger.Txn) ([]graphCount, error) {
	prefix := []byte{GraphPrefix}
	iter := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Prefix: prefix})
	defer iter.Close()

	counts := []graphCount{}
	for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		graph, err := parseGraph(item.Key()[1:])
		if err != nil {
			return nil, err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		} else if len(val) != 8 {
			return nil, errors.Errorf("unexpected counter value %v", val)
		}
		counts = append(counts, graphCount{graph, binary.BigEndian.Uint64(val)})
	}
	return counts, nil
}

// Prefixes returns the prefix mappings stored alongside the quads
func (d *Dataset) Prefixes() types.PrefixMap { return prefixMap{d} }

// Graph returns a view of one graph of the dataset
func (d *Dataset) Graph(name types.Term) *Graph {
	return &Graph{dataset: d, name: name}
}
