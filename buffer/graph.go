package buffer

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/underlay/delta/logger"
	"github.com/underlay/delta/types"
)

var _ types.Graph = (*Graph)(nil)

// Graph buffers triple additions and deletions over a base graph.
// Reads see the base with the pending edits applied.
type Graph struct {
	base     types.Graph
	triples  *delta[types.Triple]
	prefixes *Prefixes
	unique   bool
	logger   logger.Logger
}

// NewGraph returns an empty overlay over base
func NewGraph(base types.Graph, opts ...Option) (*Graph, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	l := o.prefixed("graph")
	return &Graph{
		base:     base,
		triples:  newDelta(o.unique, nil, base.Contains),
		prefixes: NewPrefixes(base.Prefixes(), l),
		unique:   o.unique,
		logger:   l,
	}, nil
}

func checkTriple(triple types.Triple) error {
	if !triple.IsConcrete() || triple.Subject.Kind == types.DefaultGraphType ||
		triple.Predicate.Kind == types.DefaultGraphType || triple.Object.Kind == types.DefaultGraphType {
		return errors.Wrap(types.ErrInvalidQuad, triple.String())
	}
	return nil
}

// Add buffers the addition of a triple
func (g *Graph) Add(triple types.Triple) error {
	if err := checkTriple(triple); err != nil {
		return err
	}
	return g.triples.add(triple)
}

// Delete buffers the deletion of a triple
func (g *Graph) Delete(triple types.Triple) error {
	if err := checkTriple(triple); err != nil {
		return err
	}
	return g.triples.delete(triple)
}

// Contains reports whether the triple is visible
func (g *Graph) Contains(triple types.Triple) (bool, error) {
	return g.triples.contains(triple)
}

// Find returns the visible triples that match the pattern
func (g *Graph) Find(pattern types.Triple) (types.Iterator[types.Triple], error) {
	iter, err := g.base.Find(pattern)
	if err != nil {
		return nil, err
	}
	added := g.triples.matching(func(t types.Triple) bool { return t.Matches(pattern) })
	return newMerged(iter, g.triples.deleted.has, added, g.unique), nil
}

// IsEmpty reports whether no triple is visible
func (g *Graph) IsEmpty() (bool, error) {
	if len(g.triples.added) > 0 {
		return false, nil
	}
	iter, err := g.Find(types.Triple{})
	if err != nil {
		return false, err
	}
	has, err := types.HasNext(iter)
	return !has, err
}

// Size counts the visible triples. In unique mode this is arithmetic on
// the base size, otherwise it traverses the merged view.
func (g *Graph) Size() (int, error) {
	if g.unique {
		n, err := g.base.Size()
		if err != nil {
			return 0, err
		}
		return n - len(g.triples.deleted) + len(g.triples.added), nil
	}
	iter, err := g.Find(types.Triple{})
	if err != nil {
		return 0, err
	}
	return types.Count(iter)
}

// Clear buffers the deletion of every visible triple
func (g *Graph) Clear() error {
	iter, err := g.base.Find(types.Triple{})
	if err != nil {
		return err
	}
	triples, err := types.Collect(iter)
	if err != nil {
		return err
	}
	for t := range g.triples.added {
		g.triples.unmarkAdded(t)
	}
	for _, t := range triples {
		g.triples.markDeleted(t)
	}
	return nil
}

// Prefixes returns the graph's prefix overlay
func (g *Graph) Prefixes() types.PrefixMap { return g.prefixes }

// PrefixOverlay returns the prefix overlay with its buffer controls
func (g *Graph) PrefixOverlay() *Prefixes { return g.prefixes }

// Added returns the pending additions
func (g *Graph) Added() []types.Triple { return maps.Keys(g.triples.added) }

// Deleted returns the pending deletions
func (g *Graph) Deleted() []types.Triple { return maps.Keys(g.triples.deleted) }

// Discard drops every pending edit, including prefix edits
func (g *Graph) Discard() {
	g.triples.reset()
	g.prefixes.Discard()
}

// Flush applies the pending edits to the base inside one write transaction,
// if the base is transactional and not already in a transaction, and clears them.
func (g *Graph) Flush() (err error) {
	txn, ok := g.base.(types.Transactional)
	if !ok || !txn.SupportsTransactions() || txn.InTransaction() {
		return g.FlushDirect()
	}

	if err = txn.Begin(types.TxnWrite); err != nil {
		return errors.Wrap(err, "beginning flush")
	}
	defer txn.End()

	if err = g.FlushDirect(); err != nil {
		if abortErr := txn.Abort(); abortErr != nil {
			g.logger.Errorf("aborting failed flush: %v", abortErr)
		}
		return err
	}

	if err = txn.Commit(); err != nil {
		return errors.Wrap(err, "committing flush")
	}
	return nil
}

// FlushDirect applies the pending edits to the base without opening a
// transaction, and clears them. A failure leaves the buffers as they were.
func (g *Graph) FlushDirect() error {
	deleted, added := len(g.triples.deleted), len(g.triples.added)
	for t := range g.triples.deleted {
		if err := g.base.Delete(t); err != nil {
			return errors.Wrapf(err, "deleting %s", t)
		}
	}
	for t := range g.triples.added {
		if err := g.base.Add(t); err != nil {
			return errors.Wrapf(err, "adding %s", t)
		}
	}
	if err := g.prefixes.Flush(); err != nil {
		return err
	}
	g.triples.reset()
	g.logger.Debugf("flushed %d deletions and %d additions", deleted, added)
	return nil
}
