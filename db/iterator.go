package db

import (
	badger "github.com/dgraph-io/badger/v2"

	"github.com/underlay/delta/types"
)

// quadIterator walks one rotation index over a list of key prefixes,
// one for each graph the pattern covers
type quadIterator struct {
	txn *badger.Txn
	// own is true when the iterator opened txn and has to discard it
	own     bool
	iter    *badger.Iterator
	pattern types.Quad
	scans   [][]byte
	current []byte
	err     error
}

// Find returns the quads matching the pattern. Inside a write transaction
// the result is read eagerly, since Badger allows one iterator at a time
// in a read-write transaction; otherwise it is read lazily.
func (d *Dataset) Find(pattern types.Quad) (types.Iterator[types.Quad], error) {
	txn, own := d.current(), false
	if txn == nil {
		txn, own = d.store.Badger.NewTransaction(false), true
	}

	iter, err := newQuadIterator(txn, own, pattern)
	if err != nil {
		return nil, err
	}

	if d.mode == types.ModeWrite && !own {
		quads, err := types.Collect[types.Quad](iter)
		if err != nil {
			return nil, err
		}
		return types.NewSliceIterator(quads), nil
	}
	return iter, nil
}

func newQuadIterator(txn *badger.Txn, own bool, pattern types.Quad) (*quadIterator, error) {
	graphs := []types.Term{pattern.Graph}
	if pattern.Graph.IsAny() {
		counts, err := graphCounts(txn)
		if err != nil {
			if own {
				txn.Discard()
			}
			return nil, err
		}
		graphs = make([]types.Term, len(counts))
		for i, c := range counts {
			graphs[i] = c.graph
		}
	}

	var index uint8
	scans := make([][]byte, len(graphs))
	for i, graph := range graphs {
		p := pattern
		p.Graph = graph
		index, scans[i] = scan(p)
	}

	iter := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: false,
		Prefix:         []byte{QuadPrefixes[index]},
	})

	return &quadIterator{txn: txn, own: own, iter: iter, pattern: pattern, scans: scans}, nil
}

func (qi *quadIterator) Next() (quad types.Quad, valid bool) {
	for qi.err == nil && qi.iter != nil {
		if qi.current == nil || !qi.iter.ValidForPrefix(qi.current) {
			if len(qi.scans) == 0 {
				return
			}
			qi.current, qi.scans = qi.scans[0], qi.scans[1:]
			qi.iter.Seek(qi.current)
			continue
		}

		quad, qi.err = parseQuadKey(qi.iter.Item().Key())
		qi.iter.Next()
		if qi.err == nil && quad.Matches(qi.pattern) {
			return quad, true
		}
	}
	return
}

func (qi *quadIterator) Err() error { return qi.err }

func (qi *quadIterator) Close() {
	if qi.iter != nil {
		qi.iter.Close()
		qi.iter = nil
	}
	if qi.own {
		qi.txn.Discard()
		qi.own = false
	}
}
