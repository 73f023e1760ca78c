package patch

import (
	"bufio"
	"io"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/underlay/delta/buffer"
)

// Write serializes the patch, one row per line
func Write(w io.Writer, p *Patch) error {
	writer := bufio.NewWriter(w)
	for _, row := range p.Rows {
		if _, err := writer.WriteString(row.String() + "\n"); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// Diff renders the pending edits of an overlay as a patch with a fresh id.
// The edits are wrapped in a single transaction; an overlay with nothing
// pending yields only the header.
func Diff(d *buffer.Dataset) *Patch {
	p := New()
	addedPrefixes, deletedPrefixes := d.PrefixEdits()
	deleted, added := d.Deleted(), d.Added()
	if len(addedPrefixes) == 0 && len(deletedPrefixes) == 0 && len(deleted) == 0 && len(added) == 0 {
		return p
	}

	p.Rows = append(p.Rows, Row{Op: TxnBegin})
	for _, prefix := range deletedPrefixes {
		p.Rows = append(p.Rows, Row{Op: PrefixDelete, Prefix: prefix})
	}

	prefixes := maps.Keys(addedPrefixes)
	slices.Sort(prefixes)
	for _, prefix := range prefixes {
		p.Rows = append(p.Rows, Row{Op: PrefixAdd, Prefix: prefix, URI: addedPrefixes[prefix]})
	}

	for _, quad := range deleted {
		p.Rows = append(p.Rows, Row{Op: Delete, Quad: quad})
	}
	for _, quad := range added {
		p.Rows = append(p.Rows, Row{Op: Add, Quad: quad})
	}
	p.Rows = append(p.Rows, Row{Op: TxnCommit})
	return p
}
