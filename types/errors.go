package types

import (
	"github.com/pkg/errors"
)

// ErrNoTransaction indicates a commit, abort or promote without a matching begin
var ErrNoTransaction = errors.New("no transaction in progress")

// ErrInTransaction indicates a begin while a transaction is already open
var ErrInTransaction = errors.New("already in a transaction")

// ErrTransactionConflict indicates that a read transaction could not be
// promoted because another writer committed since it began
var ErrTransactionConflict = errors.New("transaction promotion refused: conflicting write")

// ErrNotPromotable indicates a write inside a transaction that was begun
// as a plain read and cannot be promoted
var ErrNotPromotable = errors.New("read transaction is not promotable")

// ErrReadOnly indicates a write inside a read transaction
var ErrReadOnly = errors.New("write in a read transaction")

// ErrInvalidQuad indicates an attempt to store a pattern or a malformed quad
var ErrInvalidQuad = errors.New("invalid quad")

// ErrNotFound indicates that a key was syntactically valid but absent
var ErrNotFound = errors.New("not found")

// ErrParseTerm indicates that a serialized term could not be parsed
var ErrParseTerm = errors.New("error parsing term")

// ParseError wraps err with the text that failed to parse
func ParseError(err error, text string) error {
	return errors.Wrapf(err, "failed to parse: %s", text)
}
