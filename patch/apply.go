package patch

import (
	"github.com/pkg/errors"

	"github.com/underlay/delta/logger"
	"github.com/underlay/delta/types"
)

// Target is what a patch is applied to. A *buffer.Dataset is one; applied
// to an overlay, TC rows count towards its write transaction limit.
type Target interface {
	Add(quad types.Quad) error
	Delete(quad types.Quad) error
	SetPrefix(prefix, uri string) error
	DeletePrefix(prefix string) error
	Begin(txnType types.TxnType) error
	Commit() error
	Abort() error
	End()
}

// Apply replays the rows against the target. TX, TC and TA map to write
// transactions on the target. A failing row aborts the open transaction,
// and a patch that ends inside a transaction is aborted with an error.
func Apply(p *Patch, target Target, l logger.Logger) error {
	if l == nil {
		l = logger.NopLogger
	}
	if id, ok := p.ID(); ok {
		l.Debugf("applying patch %s", id)
	}

	inTxn := false
	abort := func() {
		if !inTxn {
			return
		}
		if err := target.Abort(); err != nil {
			l.Errorf("aborting patch transaction: %v", err)
		}
		target.End()
		inTxn = false
	}

	for i, row := range p.Rows {
		var err error
		switch row.Op {
		case Header:
		case TxnBegin:
			if inTxn {
				err = errors.Wrap(types.ErrInTransaction, "nested TX")
			} else if err = target.Begin(types.TxnWrite); err == nil {
				inTxn = true
			}
		case TxnCommit:
			if !inTxn {
				err = errors.Wrap(types.ErrNoTransaction, "TC")
			} else if err = target.Commit(); err == nil {
				target.End()
				inTxn = false
			}
		case TxnAbort:
			if !inTxn {
				err = errors.Wrap(types.ErrNoTransaction, "TA")
			}
			abort()
		case Add:
			err = target.Add(row.Quad)
		case Delete:
			err = target.Delete(row.Quad)
		case PrefixAdd:
			err = target.SetPrefix(row.Prefix, row.URI)
		case PrefixDelete:
			err = target.DeletePrefix(row.Prefix)
		default:
			err = errors.Wrapf(ErrSyntax, "unknown code %q", row.Op)
		}

		if err != nil {
			abort()
			return errors.Wrapf(err, "row %d (%s)", i+1, row)
		}
	}

	if inTxn {
		abort()
		return errors.New("patch ends inside a transaction")
	}
	return nil
}
