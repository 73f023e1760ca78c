// Package mem holds in-memory, non-transactional base stores
package mem

import (
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/underlay/delta/types"
)

// PrefixMap is a prefix map that enumerates in prefix order
type PrefixMap struct {
	uris     map[string]string
	prefixes []string
}

var _ types.PrefixMap = (*PrefixMap)(nil)

// NewPrefixMap returns an empty prefix map
func NewPrefixMap() *PrefixMap {
	return &PrefixMap{uris: map[string]string{}, prefixes: []string{}}
}

func (m *PrefixMap) Get(prefix string) (string, bool, error) {
	uri, has := m.uris[prefix]
	return uri, has, nil
}

func (m *PrefixMap) Set(prefix, uri string) error {
	if _, has := m.uris[prefix]; !has {
		i := sort.SearchStrings(m.prefixes, prefix)
		m.prefixes = append(m.prefixes, "")
		copy(m.prefixes[i+1:], m.prefixes[i:])
		m.prefixes[i] = prefix
	}
	m.uris[prefix] = uri
	return nil
}

func (m *PrefixMap) Delete(prefix string) error {
	if _, has := m.uris[prefix]; !has {
		return nil
	}
	delete(m.uris, prefix)
	i := sort.SearchStrings(m.prefixes, prefix)
	m.prefixes = append(m.prefixes[:i], m.prefixes[i+1:]...)
	return nil
}

func (m *PrefixMap) ForEach(fn func(prefix, uri string) error) error {
	for _, prefix := range append([]string(nil), m.prefixes...) {
		if err := fn(prefix, m.uris[prefix]); err != nil {
			return err
		}
	}
	return nil
}

// Graph is a set of triples
type Graph struct {
	triples  map[types.Triple]struct{}
	prefixes *PrefixMap
}

var _ types.Graph = (*Graph)(nil)

// NewGraph returns a graph holding the given triples
func NewGraph(triples ...types.Triple) *Graph {
	g := &Graph{triples: map[types.Triple]struct{}{}, prefixes: NewPrefixMap()}
	for _, t := range triples {
		g.triples[t] = struct{}{}
	}
	return g
}

func (g *Graph) Contains(triple types.Triple) (bool, error) {
	_, has := g.triples[triple]
	return has, nil
}

// Find returns a snapshot of the matching triples
func (g *Graph) Find(pattern types.Triple) (types.Iterator[types.Triple], error) {
	result := []types.Triple{}
	for t := range g.triples {
		if t.Matches(pattern) {
			result = append(result, t)
		}
	}
	slices.SortFunc(result, func(a, b types.Triple) bool { return a.String() < b.String() })
	return types.NewSliceIterator(result), nil
}

func (g *Graph) Add(triple types.Triple) error {
	g.triples[triple] = struct{}{}
	return nil
}

func (g *Graph) Delete(triple types.Triple) error {
	delete(g.triples, triple)
	return nil
}

func (g *Graph) Clear() error {
	g.triples = map[types.Triple]struct{}{}
	return nil
}

func (g *Graph) Size() (int, error) { return len(g.triples), nil }

func (g *Graph) Prefixes() types.PrefixMap { return g.prefixes }

// Dataset is a set of quads. It does not support transactions.
type Dataset struct {
	quads    map[types.Quad]struct{}
	prefixes *PrefixMap
}

var _ types.Dataset = (*Dataset)(nil)

// NewDataset returns a dataset holding the given quads
func NewDataset(quads ...types.Quad) *Dataset {
	d := &Dataset{quads: map[types.Quad]struct{}{}, prefixes: NewPrefixMap()}
	for _, q := range quads {
		d.quads[q] = struct{}{}
	}
	return d
}

func (d *Dataset) Contains(quad types.Quad) (bool, error) {
	_, has := d.quads[quad]
	return has, nil
}

// Find returns a snapshot of the matching quads, sorted
func (d *Dataset) Find(pattern types.Quad) (types.Iterator[types.Quad], error) {
	result := []types.Quad{}
	for q := range d.quads {
		if q.Matches(pattern) {
			result = append(result, q)
		}
	}
	slices.SortFunc(result, types.QuadLess)
	return types.NewSliceIterator(result), nil
}

func (d *Dataset) Add(quad types.Quad) error {
	if err := quad.Validate(); err != nil {
		return err
	}
	d.quads[quad] = struct{}{}
	return nil
}

func (d *Dataset) Delete(quad types.Quad) error {
	delete(d.quads, quad)
	return nil
}

func (d *Dataset) Clear() error {
	d.quads = map[types.Quad]struct{}{}
	return nil
}

func (d *Dataset) Size() (int, error) { return len(d.quads), nil }

func (d *Dataset) GraphNames() ([]types.Term, error) {
	names := map[types.Term]struct{}{}
	for q := range d.quads {
		if !q.IsDefaultGraph() {
			names[q.Graph] = struct{}{}
		}
	}
	result := maps.Keys(names)
	slices.SortFunc(result, types.TermLess)
	return result, nil
}

func (d *Dataset) Prefixes() types.PrefixMap { return d.prefixes }

// Quads returns every quad, sorted
func (d *Dataset) Quads() []types.Quad {
	iter, _ := d.Find(types.Quad{})
	quads, _ := types.Collect(iter)
	return quads
}

func (d *Dataset) Begin(txnType types.TxnType) error { return nil }
func (d *Dataset) Commit() error                     { return nil }
func (d *Dataset) Abort() error                      { return nil }
func (d *Dataset) End()                              {}
func (d *Dataset) Promote(types.Promote) (bool, error) {
	return true, nil
}
func (d *Dataset) InTransaction() bool            { return false }
func (d *Dataset) TransactionMode() types.TxnMode { return types.ModeNone }
func (d *Dataset) SupportsTransactions() bool     { return false }
