package db

import (
	"bytes"
	"encoding/binary"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/underlay/delta/types"
)

/*
Every key starts with a single byte prefix that encodes its type.
Terms are written in their N-Quads form and separated by tabs;
the default graph is the empty string.

name    format             value   prefixes
-------------------------------------------
quad    p | g | a | b | c  empty   {a b c}
graph   p | g              uint64  {g}
prefix  p | prefix         uri     {n}
-------------------------------------------

Each quad is written three times, once for each rotation of its
triple: [a|g|s|p|o], [b|g|p|o|s] and [c|g|o|s|p]. Any pattern with
a concrete graph is then a prefix scan of one of the three.
*/

// QuadPrefixes address the three rotations {spo, pos, osp}
var QuadPrefixes = [3]byte{'a', 'b', 'c'}

// GraphPrefix keys count the quads in each graph
const GraphPrefix = byte('g')

// NamespacePrefix keys hold prefix mappings
const NamespacePrefix = byte('n')

const tab = byte('\t')

// rotation indexes the major permutations of a triple
var rotation = [3][3]uint8{
	{0, 1, 2},
	{1, 2, 0},
	{2, 0, 1},
}

// inverse undoes each rotation
var inverse = [3][3]uint8{
	{0, 1, 2},
	{2, 0, 1},
	{1, 2, 0},
}

func graphString(graph types.Term) string {
	if graph.Kind == types.DefaultGraphType {
		return ""
	}
	return graph.String()
}

func parseGraph(val []byte) (types.Term, error) {
	if len(val) == 0 {
		return types.DefaultGraph, nil
	}
	return types.ParseTerm(string(val))
}

// assembleKey joins the prefix and the terms with tabs. With tail set the
// key ends in a tab, so that it only prefixes keys with exactly these terms.
func assembleKey(prefix byte, tail bool, terms ...string) []byte {
	l := 1
	for _, term := range terms {
		l += len(term) + 1
	}
	if !tail && len(terms) > 0 {
		l--
	}

	key := make([]byte, 1, l)
	key[0] = prefix
	for i, term := range terms {
		key = append(key, term...)
		if tail || i < len(terms)-1 {
			key = append(key, tab)
		}
	}
	return key
}

func quadKey(index uint8, quad types.Quad) []byte {
	terms := [3]string{quad.Subject.String(), quad.Predicate.String(), quad.Object.String()}
	row := rotation[index]
	return assembleKey(QuadPrefixes[index], false, graphString(quad.Graph), terms[row[0]], terms[row[1]], terms[row[2]])
}

// scan picks the rotation whose leading terms are exactly the bound terms of
// the pattern, and returns the key prefix for a pattern with a concrete graph
func scan(pattern types.Quad) (uint8, []byte) {
	s, p, o := pattern.Subject.IsConcrete(), pattern.Predicate.IsConcrete(), pattern.Object.IsConcrete()
	var index uint8
	switch {
	case s && !p && o:
		index = 2
	case !s && (p || o):
		if p {
			index = 1
		} else {
			index = 2
		}
	}

	terms := [3]types.Term{pattern.Subject, pattern.Predicate, pattern.Object}
	row := rotation[index]
	bound := []string{graphString(pattern.Graph)}
	for _, i := range row {
		if terms[i].IsAny() {
			break
		}
		bound = append(bound, terms[i].String())
	}

	if len(bound) == 4 {
		return index, assembleKey(QuadPrefixes[index], false, bound...)
	}
	return index, assembleKey(QuadPrefixes[index], true, bound...)
}

// parseQuadKey reads a quad back from one of its rotation keys
func parseQuadKey(key []byte) (quad types.Quad, err error) {
	if len(key) == 0 || key[0] < 'a' || key[0] > 'c' {
		return quad, errors.Errorf("unexpected quad key %q", key)
	}

	parts := bytes.SplitN(key[1:], []byte{tab}, 4)
	if len(parts) != 4 {
		return quad, errors.Errorf("unexpected quad key %q", key)
	}

	if quad.Graph, err = parseGraph(parts[0]); err != nil {
		return
	}

	var rotated [3]types.Term
	for i, part := range parts[1:] {
		if rotated[i], err = types.ParseTerm(string(part)); err != nil {
			return
		}
	}

	row := inverse[key[0]-'a']
	quad.Subject, quad.Predicate, quad.Object = rotated[row[0]], rotated[row[1]], rotated[row[2]]
	return
}

func graphKey(graph types.Term) []byte {
	return assembleKey(GraphPrefix, false, graphString(graph))
}

func namespaceKey(prefix string) []byte {
	return assembleKey(NamespacePrefix, false, prefix)
}

func getCount(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	} else if len(val) != 8 {
		return 0, errors.Errorf("unexpected counter value %v", val)
	}
	return binary.BigEndian.Uint64(val), nil
}

// addCount adjusts a counter and deletes it when it reaches zero
func addCount(txn *badger.Txn, key []byte, delta int64) error {
	count, err := getCount(txn, key)
	if err != nil {
		return err
	}
	next := int64(count) + delta
	if next <= 0 {
		return txn.Delete(key)
	}
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(next))
	return txn.SetEntry(badger.NewEntry(key, val).WithMeta(key[0]))
}
