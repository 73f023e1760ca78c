package db

import (
	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/underlay/delta/types"
)

// Graph is a view of one graph of a Dataset. It shares the dataset's
// transaction, so wrapping it in an overlay flushes inside one transaction.
type Graph struct {
	dataset *Dataset
	name    types.Term
}

var (
	_ types.Graph         = (*Graph)(nil)
	_ types.Transactional = (*Graph)(nil)
)

// Name is the graph name, or types.DefaultGraph
func (g *Graph) Name() types.Term { return g.name }

func (g *Graph) Contains(triple types.Triple) (bool, error) {
	return g.dataset.Contains(triple.InGraph(g.name))
}

func (g *Graph) Find(pattern types.Triple) (types.Iterator[types.Triple], error) {
	iter, err := g.dataset.Find(pattern.InGraph(g.name))
	if err != nil {
		return nil, err
	}
	return types.Map(iter, types.Quad.Triple), nil
}

func (g *Graph) Add(triple types.Triple) error { return g.dataset.Add(triple.InGraph(g.name)) }

func (g *Graph) Delete(triple types.Triple) error {
	return g.dataset.Delete(triple.InGraph(g.name))
}

// Clear deletes every triple in the graph
func (g *Graph) Clear() error {
	iter, err := g.dataset.Find(types.Quad{Graph: g.name})
	if err != nil {
		return err
	}
	quads, err := types.Collect(iter)
	if err != nil {
		return err
	}
	return g.dataset.update(func(txn *badger.Txn) (changed bool, err error) {
		for _, quad := range quads {
			removed, err := removeQuad(txn, quad)
			if err != nil {
				return changed, errors.Wrapf(err, "deleting %s", quad)
			}
			changed = changed || removed
		}
		return changed, nil
	})
}

func (g *Graph) Size() (n int, err error) {
	err = g.dataset.view(func(txn *badger.Txn) error {
		count, err := getCount(txn, graphKey(g.name))
		n = int(count)
		return err
	})
	return
}

func (g *Graph) Prefixes() types.PrefixMap { return g.dataset.Prefixes() }

func (g *Graph) Begin(txnType types.TxnType) error        { return g.dataset.Begin(txnType) }
func (g *Graph) Commit() error                            { return g.dataset.Commit() }
func (g *Graph) Abort() error                             { return g.dataset.Abort() }
func (g *Graph) End()                                     { g.dataset.End() }
func (g *Graph) Promote(mode types.Promote) (bool, error) { return g.dataset.Promote(mode) }
func (g *Graph) InTransaction() bool                      { return g.dataset.InTransaction() }
func (g *Graph) TransactionMode() types.TxnMode           { return g.dataset.TransactionMode() }
func (g *Graph) SupportsTransactions() bool               { return true }

// prefixMap stores prefix mappings under NamespacePrefix keys
type prefixMap struct{ d *Dataset }

func (m prefixMap) Get(prefix string) (uri string, ok bool, err error) {
	err = m.d.view(func(txn *badger.Txn) error {
		item, err := txn.Get(namespaceKey(prefix))
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		uri, ok = string(val), err == nil
		return err
	})
	return
}

func (m prefixMap) Set(prefix, uri string) error {
	key := namespaceKey(prefix)
	return m.d.update(func(txn *badger.Txn) (bool, error) {
		return true, txn.SetEntry(badger.NewEntry(key, []byte(uri)).WithMeta(key[0]))
	})
}

func (m prefixMap) Delete(prefix string) error {
	return m.d.update(func(txn *badger.Txn) (bool, error) { return true, txn.Delete(namespaceKey(prefix)) })
}

// ForEach yields the mappings in prefix order
func (m prefixMap) ForEach(fn func(prefix, uri string) error) error {
	type entry struct{ prefix, uri string }
	var entries []entry
	err := m.d.view(func(txn *badger.Txn) error {
		prefix := []byte{NamespacePrefix}
		iter := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, Prefix: prefix})
		defer iter.Close()
		for iter.Seek(prefix); iter.ValidForPrefix(prefix); iter.Next() {
			val, err := iter.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, entry{string(iter.Item().Key()[1:]), string(val)})
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range entries {
		if err := fn(e.prefix, e.uri); err != nil {
			return err
		}
	}
	return nil
}
