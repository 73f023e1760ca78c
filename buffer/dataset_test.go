package buffer

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underlay/delta/logger"
	"github.com/underlay/delta/mem"
	"github.com/underlay/delta/types"
)

func findQuads(t *testing.T, d types.Dataset, pattern types.Quad) []types.Quad {
	t.Helper()
	iter, err := d.Find(pattern)
	require.NoError(t, err)
	quads, err := types.Collect(iter)
	require.NoError(t, err)
	return quads
}

func TestDatasetGraphs(t *testing.T) {
	a, b, c := quad("", "x", "R", "y"), quad("g1", "p", "S", "q"), quad("g2", "p", "S", "q")
	base := mem.NewDataset(a, b)
	d, err := NewDataset(base)
	require.NoError(t, err)

	require.NoError(t, d.Add(c))
	require.NoError(t, d.Delete(a))
	require.NoError(t, d.Add(quad("", "x", "R", "z")))

	assert.ElementsMatch(t, []types.Quad{b, c, quad("", "x", "R", "z")}, findQuads(t, d, types.Quad{}))
	assert.Equal(t, []types.Quad{quad("", "x", "R", "z")}, findQuads(t, d, types.Quad{Graph: types.DefaultGraph}))
	assert.Equal(t, []types.Quad{c}, findQuads(t, d, types.Quad{Graph: ex("g2")}))

	iter, err := d.FindNamed(types.Quad{Predicate: ex("S")})
	require.NoError(t, err)
	named, err := types.Collect(iter)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.Quad{b, c}, named)

	names, err := d.GraphNames()
	require.NoError(t, err)
	assert.Equal(t, []types.Term{ex("g1"), ex("g2")}, names)

	n, err := d.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	has, err := d.Contains(a)
	require.NoError(t, err)
	assert.False(t, has)

	has, err = d.Contains(types.Quad{Graph: ex("g2")})
	require.NoError(t, err)
	assert.True(t, has)

	assert.Equal(t, []types.Quad{a}, d.Deleted())
	assert.Equal(t, []types.Quad{quad("", "x", "R", "z"), c}, d.Added())

	require.NoError(t, d.Flush())
	assert.Equal(t, AccessNone, d.AccessState())
	assert.ElementsMatch(t, []types.Quad{b, c, quad("", "x", "R", "z")}, base.Quads())
	assert.Empty(t, d.Added())
}

func TestDatasetRejectsPatterns(t *testing.T) {
	d, err := NewDataset(mem.NewDataset())
	require.NoError(t, err)
	assert.ErrorIs(t, d.Add(types.Quad{Graph: ex("g")}), types.ErrInvalidQuad)
	assert.ErrorIs(t, d.Delete(types.Quad{Subject: types.DefaultGraph}), types.ErrInvalidQuad)
}

func TestDatasetDeleteAnyAndClear(t *testing.T) {
	base := mem.NewDataset(quad("g1", "a", "p", "b"), quad("g1", "a", "q", "c"), quad("", "a", "p", "b"))
	d, err := NewDataset(base)
	require.NoError(t, err)

	n, err := d.DeleteAny(types.Quad{Graph: ex("g1")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	names, err := d.GraphNames()
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, d.Add(quad("g3", "a", "p", "b")))
	require.NoError(t, d.Clear())
	empty, err := d.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Len(t, d.Deleted(), 3)
}

func TestDatasetNonTransactionalBase(t *testing.T) {
	base := mem.NewDataset()
	d, err := NewDataset(base)
	require.NoError(t, err)

	_, err = d.Size()
	require.NoError(t, err)
	assert.Equal(t, AccessRead, d.AccessState())

	require.NoError(t, d.Add(quad("", "x", "R", "y")))
	assert.Equal(t, AccessWrite, d.AccessState())

	require.NoError(t, d.Flush())
	assert.Equal(t, AccessNone, d.AccessState())
	assert.Len(t, base.Quads(), 1)
}

func TestDatasetAutoFlush(t *testing.T) {
	a, b := quad("", "x", "R", "y"), quad("g", "x", "R", "z")
	base := newTxnBase()
	d, err := NewDataset(base, WithWriteTxnLimit(2))
	require.NoError(t, err)

	require.NoError(t, d.Begin(types.TxnWrite))
	require.NoError(t, d.Add(a))
	require.NoError(t, d.Commit())
	assert.Empty(t, base.Quads())
	assert.Equal(t, 1, d.WriteTxnCount())
	assert.Equal(t, []string{"begin WRITE"}, base.calls)

	require.NoError(t, d.Begin(types.TxnWrite))
	require.NoError(t, d.Add(b))
	require.NoError(t, d.Commit())
	assert.Equal(t, []types.Quad{a, b}, base.Quads())
	assert.Equal(t, []string{"begin WRITE", "commit", "end"}, base.calls)
	assert.Equal(t, 0, d.WriteTxnCount())
	assert.Equal(t, AccessNone, d.AccessState())
	assert.False(t, base.InTransaction())
}

func TestDatasetReadThenWrite(t *testing.T) {
	base := newTxnBase(quad("", "x", "R", "y"))
	d, err := NewDataset(base)
	require.NoError(t, err)

	require.NoError(t, d.Begin(types.TxnReadPromote))
	_, err = d.Contains(quad("", "x", "R", "y"))
	require.NoError(t, err)
	assert.Equal(t, AccessRead, d.AccessState())

	require.NoError(t, d.Add(quad("", "x", "R", "z")))
	assert.Equal(t, AccessWrite, d.AccessState())
	assert.Equal(t, types.ModeWrite, d.TransactionMode())
	assert.Equal(t, []string{"begin READ_PROMOTE", "promote"}, base.calls)

	require.NoError(t, d.Commit())
	assert.Len(t, base.Quads(), 2)
	assert.False(t, d.InTransaction())
}

func TestDatasetPromoteConflict(t *testing.T) {
	base := newTxnBase(quad("", "x", "R", "y"))
	log := logger.NewBufferLogger()
	d, err := NewDataset(base, WithLogger(log))
	require.NoError(t, err)

	require.NoError(t, d.Begin(types.TxnReadPromote))
	empty, err := d.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)

	base.refusePromote = true
	err = d.Add(quad("", "x", "R", "z"))
	assert.ErrorIs(t, err, types.ErrTransactionConflict)
	assert.Equal(t, AccessRead, d.AccessState())
	assert.Equal(t, types.ModeRead, d.TransactionMode())
	assert.Empty(t, d.Added())
	assert.Contains(t, log.String(), "promotion refused")

	ok, err := d.Promote(types.PromoteIsolated)
	require.NoError(t, err)
	assert.False(t, ok)

	base.refusePromote = false
	ok, err = d.Promote(types.PromoteIsolated)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, d.Add(quad("", "x", "R", "z")))
	require.NoError(t, d.Commit())
	assert.Len(t, base.Quads(), 2)
}

func TestDatasetUsageErrors(t *testing.T) {
	d, err := NewDataset(newTxnBase())
	require.NoError(t, err)

	assert.ErrorIs(t, d.Commit(), types.ErrNoTransaction)
	assert.ErrorIs(t, d.Abort(), types.ErrNoTransaction)
	_, err = d.Promote(types.PromoteIsolated)
	assert.ErrorIs(t, err, types.ErrNoTransaction)

	require.NoError(t, d.Begin(types.TxnRead))
	assert.ErrorIs(t, d.Begin(types.TxnWrite), types.ErrInTransaction)
	_, err = d.Promote(types.PromoteIsolated)
	assert.ErrorIs(t, err, types.ErrNotPromotable)
	assert.ErrorIs(t, d.Add(quad("", "a", "b", "c")), types.ErrReadOnly)
	d.End()
	assert.False(t, d.InTransaction())
}

func TestDatasetAbort(t *testing.T) {
	a, b, c := quad("", "x", "R", "y"), quad("g", "x", "R", "z"), quad("g", "x", "R", "w")
	base := newTxnBase(a)
	d, err := NewDataset(base, WithWriteTxnLimit(2))
	require.NoError(t, err)

	require.NoError(t, d.Begin(types.TxnWrite))
	require.NoError(t, d.Add(b))
	require.NoError(t, d.Delete(a))
	require.NoError(t, d.SetPrefix("ex", "http://example.com/"))
	require.NoError(t, d.Abort())

	assert.Empty(t, d.Added())
	assert.Empty(t, d.Deleted())
	assert.Equal(t, AccessNone, d.AccessState())
	assert.Equal(t, []string{"begin WRITE", "abort", "end"}, base.calls)
	_, ok, err := d.Prefix("ex")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, d.Flush())

	// a committed but unflushed transaction survives a later abort
	require.NoError(t, d.Begin(types.TxnWrite))
	require.NoError(t, d.Add(b))
	require.NoError(t, d.Commit())
	require.NoError(t, d.Begin(types.TxnWrite))
	require.NoError(t, d.Add(c))
	require.NoError(t, d.Delete(b))
	d.End()

	assert.Equal(t, []types.Quad{b}, d.Added())
	assert.Equal(t, AccessWrite, d.AccessState())
	assert.Equal(t, 1, d.WriteTxnCount())
}

func TestDatasetFlushFailure(t *testing.T) {
	b := quad("g", "x", "R", "z")
	base := newTxnBase()
	d, err := NewDataset(base)
	require.NoError(t, err)

	failure := errors.New("disk full")
	base.failAdd = failure
	require.NoError(t, d.Begin(types.TxnWrite))
	require.NoError(t, d.Add(b))
	err = d.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "adding")

	assert.Equal(t, AccessNone, d.AccessState())
	assert.Equal(t, []types.Quad{b}, d.Added())
	assert.Equal(t, []string{"begin WRITE", "abort", "end"}, base.calls)

	base.failAdd = nil
	require.NoError(t, d.Flush())
	assert.Equal(t, []types.Quad{b}, base.Quads())
	assert.Empty(t, d.Added())
}

func TestDatasetAdoptsAmbientTransaction(t *testing.T) {
	base := newTxnBase()
	require.NoError(t, base.Begin(types.TxnWrite))
	base.reset()

	d, err := NewDataset(base)
	require.NoError(t, err)
	require.NoError(t, d.Add(quad("", "a", "b", "c")))
	require.NoError(t, d.Flush())

	assert.Empty(t, base.calls)
	assert.True(t, base.InTransaction())
	assert.Len(t, base.Quads(), 1)

	base.End()
	require.NoError(t, base.Begin(types.TxnRead))
	err = d.Add(quad("", "a", "b", "d"))
	assert.ErrorIs(t, err, types.ErrNotPromotable)
}

func TestDatasetStacked(t *testing.T) {
	base := mem.NewDataset()
	inner, err := NewDataset(base)
	require.NoError(t, err)
	outer, err := NewDataset(inner)
	require.NoError(t, err)

	require.NoError(t, outer.SetPrefix("ex", "http://example.com/"))
	require.NoError(t, outer.Add(quad("g", "a", "b", "c")))
	assert.True(t, inner.InTransaction())
	assert.Empty(t, inner.Added())

	require.NoError(t, outer.Flush())
	assert.False(t, inner.InTransaction())
	assert.Len(t, base.Quads(), 1)
	uri, ok, err := base.Prefixes().Get("ex")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "http://example.com/", uri)
}

func findNamed(t *testing.T, d *Dataset, pattern types.Quad) []types.Quad {
	t.Helper()
	iter, err := d.FindNamed(pattern)
	require.NoError(t, err)
	quads, err := types.Collect(iter)
	require.NoError(t, err)
	return quads
}

func TestDatasetNotUnique(t *testing.T) {
	a := quad("", "x", "R", "y")
	b := quad("g", "x", "R", "z")
	c := quad("h", "y", "R", "z")
	d, err := NewDataset(mem.NewDataset(a, b), WithUnique(false))
	require.NoError(t, err)

	// re-adding stored quads buffers them again
	require.NoError(t, d.Add(a))
	require.NoError(t, d.Add(b))
	require.NoError(t, d.Add(c))
	assert.Equal(t, []types.Quad{a, b, c}, d.Added())

	assert.ElementsMatch(t, []types.Quad{a, b, c}, findQuads(t, d, types.Quad{}))
	assert.ElementsMatch(t, []types.Quad{b, c}, findNamed(t, d, types.Quad{}))
	assert.ElementsMatch(t, []types.Quad{b}, findQuads(t, d, types.Quad{Graph: ex("g")}))
	assert.ElementsMatch(t, []types.Quad{a}, findQuads(t, d, types.Quad{Graph: types.DefaultGraph}))

	n, err := d.Size()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, d.Delete(b))
	assert.ElementsMatch(t, []types.Quad{c}, findNamed(t, d, types.Quad{}))
	n, err = d.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDatasetRandom(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	var universe []types.Quad
	for _, g := range []string{"", "g", "h"} {
		for _, s := range []string{"a", "b"} {
			for _, o := range []string{"x", "y"} {
				universe = append(universe, quad(g, s, "p", o))
			}
		}
	}

	for _, unique := range []bool{true, false} {
		expected := map[types.Quad]bool{}
		base := mem.NewDataset()
		for _, x := range universe {
			if r.Intn(2) == 0 {
				expected[x] = true
				require.NoError(t, base.Add(x))
			}
		}

		d, err := NewDataset(base, WithUnique(unique))
		require.NoError(t, err)

		for i := 0; i < 200; i++ {
			x := universe[r.Intn(len(universe))]
			if r.Intn(2) == 0 {
				require.NoError(t, d.Add(x))
				expected[x] = true
			} else {
				require.NoError(t, d.Delete(x))
				delete(expected, x)
			}

			for _, a := range d.Added() {
				assert.NotContains(t, d.Deleted(), a)
			}

			var visible, named, inGraph []types.Quad
			for y := range expected {
				visible = append(visible, y)
				if !y.IsDefaultGraph() {
					named = append(named, y)
				}
				if y.Graph == x.Graph {
					inGraph = append(inGraph, y)
				}
			}
			assert.ElementsMatch(t, visible, findQuads(t, d, types.Quad{}))
			assert.ElementsMatch(t, named, findNamed(t, d, types.Quad{}))
			assert.ElementsMatch(t, inGraph, findQuads(t, d, types.Quad{Graph: x.Graph}))

			n, err := d.Size()
			require.NoError(t, err)
			assert.Equal(t, len(expected), n)

			if i%50 == 49 {
				require.NoError(t, d.Flush())
				assert.Empty(t, d.Added())
				assert.Empty(t, d.Deleted())
				assert.ElementsMatch(t, visible, base.Quads())
			}
		}
	}
}
