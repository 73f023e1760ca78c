package types

// TxnType is requested when a transaction begins
type TxnType uint8

const (
	// TxnRead is a read transaction that can never be promoted
	TxnRead TxnType = iota + 1
	// TxnWrite is an exclusive write transaction
	TxnWrite
	// TxnReadPromote is a read transaction that may be promoted if no other
	// writer has committed since it began
	TxnReadPromote
	// TxnReadCommittedPromote is a read transaction that may always be
	// promoted, observing whatever was committed in the meantime
	TxnReadCommittedPromote
)

func (t TxnType) String() string {
	switch t {
	case TxnRead:
		return "READ"
	case TxnWrite:
		return "WRITE"
	case TxnReadPromote:
		return "READ_PROMOTE"
	case TxnReadCommittedPromote:
		return "READ_COMMITTED_PROMOTE"
	}
	return "NONE"
}

// Mode is the mode a transaction type starts in
func (t TxnType) Mode() TxnMode {
	if t == TxnWrite {
		return ModeWrite
	}
	return ModeRead
}

// TxnMode is the current mode of an open transaction
type TxnMode uint8

const (
	ModeNone TxnMode = iota
	ModeRead
	ModeWrite
)

func (m TxnMode) String() string {
	switch m {
	case ModeRead:
		return "READ"
	case ModeWrite:
		return "WRITE"
	}
	return "NONE"
}

// Promote selects the promotion discipline
type Promote uint8

const (
	// PromoteIsolated fails if any writer committed since the transaction began
	PromoteIsolated Promote = iota
	// PromoteReadCommitted always succeeds once the writer lock is held
	PromoteReadCommitted
)

// Transactional is the transaction protocol of a base store.
// Begin and Promote may block on the store's writer lock.
type Transactional interface {
	Begin(txnType TxnType) error
	Commit() error
	Abort() error
	End()
	// Promote upgrades an open read transaction. It returns false, without
	// error, if the transaction cannot be promoted right now.
	Promote(mode Promote) (bool, error)
	InTransaction() bool
	TransactionMode() TxnMode
	SupportsTransactions() bool
}
