package buffer

import "github.com/underlay/delta/types"

// AccessState tracks what a Dataset overlay holds on its base
type AccessState uint8

const (
	// AccessNone means no base transaction is held
	AccessNone AccessState = iota
	// AccessRead means a promotable read transaction is held
	AccessRead
	// AccessWrite means a write transaction is held
	AccessWrite
)

func (s AccessState) String() string {
	switch s {
	case AccessRead:
		return "READ"
	case AccessWrite:
		return "WRITE"
	}
	return "NONE"
}

type access uint8

const (
	accessRead access = iota
	accessWrite
)

// action is what has to happen on the base to make a transition
type action uint8

const (
	actNone action = iota
	// actBeginRead begins a promotable read transaction
	actBeginRead
	// actBeginWrite begins a write transaction
	actBeginWrite
	// actPromote promotes the read transaction we hold
	actPromote
	// actAdopt uses a transaction somebody else began on the base
	actAdopt
	// actAdoptPromote adopts a read transaction and promotes it
	actAdoptPromote
)

func (a action) String() string {
	return [...]string{"none", "begin-read", "begin-write", "promote", "adopt", "adopt-promote"}[a]
}

// transition returns the next access state and the base action it needs.
// ambient is the mode of a transaction already open on the base that the
// overlay did not begin, and only matters when leaving AccessNone.
func transition(from AccessState, op access, ambient types.TxnMode) (AccessState, action) {
	switch from {
	case AccessNone:
		switch ambient {
		case types.ModeRead:
			if op == accessWrite {
				return AccessWrite, actAdoptPromote
			}
			return AccessRead, actAdopt
		case types.ModeWrite:
			return AccessWrite, actAdopt
		}
		if op == accessWrite {
			return AccessWrite, actBeginWrite
		}
		return AccessRead, actBeginRead
	case AccessRead:
		if op == accessWrite {
			return AccessWrite, actPromote
		}
		return AccessRead, actNone
	}
	return AccessWrite, actNone
}
