// Package patch reads, writes and applies RDF Patch documents: a header
// followed by rows that add and delete quads and prefixes, optionally
// grouped into transactions.
package patch

import (
	"strings"

	"github.com/google/uuid"

	"github.com/underlay/delta/types"
)

// Op is the code at the start of a patch row
type Op string

const (
	Header       Op = "H"
	TxnBegin     Op = "TX"
	TxnCommit    Op = "TC"
	TxnAbort     Op = "TA"
	Add          Op = "A"
	Delete       Op = "D"
	PrefixAdd    Op = "PA"
	PrefixDelete Op = "PD"
)

// A Row is one line of a patch
type Row struct {
	Op Op

	// Quad is set for A and D rows
	Quad types.Quad

	// Prefix is set for PA and PD rows, URI for PA rows
	Prefix string
	URI    string

	// Key and Value are set for H rows
	Key   string
	Value types.Term
}

// A Patch is a sequence of rows
type Patch struct {
	Rows []Row
}

// New returns a patch with a fresh id header
func New() *Patch {
	return &Patch{Rows: []Row{{Op: Header, Key: "id", Value: types.NewIRI("uuid:" + uuid.NewString())}}}
}

// ID returns the value of the id header, if it is a UUID
func (p *Patch) ID() (uuid.UUID, bool) {
	for _, row := range p.Rows {
		if row.Op != Header || row.Key != "id" || row.Value.Kind != types.IRIType {
			continue
		}
		id, err := uuid.Parse(strings.TrimPrefix(row.Value.Value, "uuid:"))
		return id, err == nil
	}
	return uuid.Nil, false
}

// Changes counts the A and D rows
func (p *Patch) Changes() (added, deleted int) {
	for _, row := range p.Rows {
		switch row.Op {
		case Add:
			added++
		case Delete:
			deleted++
		}
	}
	return
}

func (r Row) String() string {
	switch r.Op {
	case Header:
		return "H " + r.Key + " " + r.Value.String() + " ."
	case Add, Delete:
		return string(r.Op) + " " + r.Quad.String()
	case PrefixAdd:
		return "PA " + types.NewLiteral(r.Prefix, "", "").String() + " " + types.NewIRI(r.URI).String() + " ."
	case PrefixDelete:
		return "PD " + types.NewLiteral(r.Prefix, "", "").String() + " ."
	}
	return string(r.Op) + " ."
}
