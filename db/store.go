package db

import (
	"encoding/binary"
	"strings"
	"sync"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/pkg/errors"

	"github.com/underlay/delta/logger"
)

// A Store is a Badger database shared by any number of Dataset handles.
// Writers are serialized by a single lock: a handle holds it from the
// beginning (or promotion) of a write transaction until it ends.
type Store struct {
	Badger *badger.DB

	// writer is held by the one write transaction in progress
	writer sync.Mutex
	// version counts committed writes
	version uint64

	logger logger.Logger
}

// Option adjusts the Badger options a store is opened with
type Option func(badger.Options) badger.Options

// WithMaxTableSize sets the Badger table size in bytes. A single Badger
// transaction holds at most 15% of it, which bounds how many edits one
// overlay flush or import can carry. Zero keeps Badger's default.
func WithMaxTableSize(size int64) Option {
	return func(opts badger.Options) badger.Options {
		if size <= 0 {
			return opts
		}
		return opts.WithMaxTableSize(size)
	}
}

// Open opens a store at path, or in memory if path is empty
func Open(path string, l logger.Logger, options ...Option) (*Store, error) {
	if l == nil {
		l = logger.NopLogger
	}

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		l.Infof("opening badger database at %s", path)
		opts = badger.DefaultOptions(path)
	}

	for _, option := range options {
		opts = option(opts)
	}

	db, err := badger.Open(opts.WithLogger(badgerLogger{l}))
	if err != nil {
		return nil, errors.Wrap(err, "opening badger")
	}
	return NewStore(db, l), nil
}

// NewStore wraps an open Badger database
func NewStore(db *badger.DB, l logger.Logger) *Store {
	if l == nil {
		l = logger.NopLogger
	}
	return &Store{Badger: db, logger: l}
}

// Close the database
func (s *Store) Close() error {
	if s == nil || s.Badger == nil {
		return nil
	}
	return s.Badger.Close()
}

// Dataset returns a new handle on the store. Handles are cheap and each
// keeps its own transaction state; a single handle is not safe for
// concurrent use.
func (s *Store) Dataset() *Dataset {
	return &Dataset{store: s}
}

func (s *Store) currentVersion() uint64 { return atomic.LoadUint64(&s.version) }

func (s *Store) bump() { atomic.AddUint64(&s.version, 1) }

// Log will print the *entire database contents* to the logger
func (s *Store) Log() {
	err := s.Badger.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := item.KeyCopy(nil)
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			prefix := key[0]
			tail := strings.Replace(string(key[1:]), "\t", " ", -1)
			switch {
			case 'a' <= prefix && prefix <= 'c':
				s.logger.Printf("Quad entry: %s %s", string(prefix), tail)
			case prefix == GraphPrefix:
				if len(val) == 8 {
					s.logger.Printf("Graph: %q -> %d", tail, binary.BigEndian.Uint64(val))
				}
			case prefix == NamespacePrefix:
				s.logger.Printf("Prefix: %s -> %s", tail, string(val))
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Errorf("logging database: %v", err)
	}
}

// badgerLogger routes Badger's own logging through ours
type badgerLogger struct{ logger.Logger }

func (b badgerLogger) Warningf(format string, v ...interface{}) { b.Warnf(format, v...) }

// Badger is chatty at info level
func (b badgerLogger) Infof(format string, v ...interface{}) { b.Debugf(format, v...) }
