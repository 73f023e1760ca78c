package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underlay/delta/types"
)

var (
	ex = func(s string) types.Term { return types.NewIRI("http://example.com/" + s) }
	g1 = ex("g1")
)

func TestPrefixMapOrder(t *testing.T) {
	m := NewPrefixMap()
	require.NoError(t, m.Set("xsd", "http://www.w3.org/2001/XMLSchema#"))
	require.NoError(t, m.Set("ex", "http://example.com/"))
	require.NoError(t, m.Set("rdf", "http://www.w3.org/1999/02/22-rdf-syntax-ns#"))
	require.NoError(t, m.Delete("rdf"))
	require.NoError(t, m.Delete("missing"))

	var prefixes []string
	require.NoError(t, m.ForEach(func(prefix, _ string) error {
		prefixes = append(prefixes, prefix)
		return nil
	}))
	assert.Equal(t, []string{"ex", "xsd"}, prefixes)

	uri, ok, err := m.Get("ex")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://example.com/", uri)
}

func TestDataset(t *testing.T) {
	a := types.NewQuad(types.DefaultGraph, ex("x"), ex("R"), ex("y"))
	b := types.NewQuad(g1, ex("p"), ex("S"), ex("q"))
	d := NewDataset(a, b)

	n, err := d.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	iter, err := d.Find(types.Quad{Graph: g1})
	require.NoError(t, err)
	quads, err := types.Collect(iter)
	require.NoError(t, err)
	assert.Equal(t, []types.Quad{b}, quads)

	names, err := d.GraphNames()
	require.NoError(t, err)
	assert.Equal(t, []types.Term{g1}, names)

	assert.ErrorIs(t, d.Add(types.Quad{Graph: g1}), types.ErrInvalidQuad)
	assert.False(t, d.SupportsTransactions())

	require.NoError(t, d.Delete(b))
	names, err = d.GraphNames()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestGraph(t *testing.T) {
	x := types.NewTriple(ex("x"), ex("R"), ex("y"))
	g := NewGraph(x)
	has, err := g.Contains(x)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, g.Clear())
	n, err := g.Size()
	require.NoError(t, err)
	assert.Zero(t, n)
}
