package buffer

import (
	"github.com/underlay/delta/mem"
	"github.com/underlay/delta/types"
)

func ex(s string) types.Term { return types.NewIRI("http://example.com/" + s) }

func triple(s, p, o string) types.Triple { return types.NewTriple(ex(s), ex(p), ex(o)) }

func quad(g, s, p, o string) types.Quad {
	graph := types.DefaultGraph
	if g != "" {
		graph = ex(g)
	}
	return types.NewQuad(graph, ex(s), ex(p), ex(o))
}

// txnBase is a transactional base that records the calls it receives.
// Writes go straight to the embedded dataset.
type txnBase struct {
	*mem.Dataset
	calls []string

	inTxn   bool
	txnType types.TxnType
	mode    types.TxnMode

	refusePromote bool
	failAdd       error
}

func newTxnBase(quads ...types.Quad) *txnBase {
	return &txnBase{Dataset: mem.NewDataset(quads...)}
}

func (b *txnBase) Begin(txnType types.TxnType) error {
	if b.inTxn {
		return types.ErrInTransaction
	}
	b.calls = append(b.calls, "begin "+txnType.String())
	b.inTxn, b.txnType, b.mode = true, txnType, txnType.Mode()
	return nil
}

func (b *txnBase) Commit() error {
	if !b.inTxn {
		return types.ErrNoTransaction
	}
	b.calls = append(b.calls, "commit")
	return nil
}

func (b *txnBase) Abort() error {
	if !b.inTxn {
		return types.ErrNoTransaction
	}
	b.calls = append(b.calls, "abort")
	return nil
}

func (b *txnBase) End() {
	if b.inTxn {
		b.calls = append(b.calls, "end")
	}
	b.inTxn, b.mode = false, types.ModeNone
}

func (b *txnBase) Promote(mode types.Promote) (bool, error) {
	if !b.inTxn {
		return false, types.ErrNoTransaction
	}
	b.calls = append(b.calls, "promote")
	if b.txnType == types.TxnRead {
		return false, types.ErrNotPromotable
	} else if b.refusePromote {
		return false, nil
	}
	b.mode = types.ModeWrite
	return true, nil
}

func (b *txnBase) Add(q types.Quad) error {
	if b.failAdd != nil {
		return b.failAdd
	}
	return b.Dataset.Add(q)
}

func (b *txnBase) InTransaction() bool            { return b.inTxn }
func (b *txnBase) TransactionMode() types.TxnMode { return b.mode }
func (b *txnBase) SupportsTransactions() bool     { return true }

func (b *txnBase) reset() { b.calls = nil }
