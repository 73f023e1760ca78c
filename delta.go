// Package delta opens a Badger-backed RDF dataset and hands out buffering
// overlays over it.
package delta

import (
	"io"

	"github.com/pkg/errors"

	"github.com/underlay/delta/buffer"
	"github.com/underlay/delta/db"
	"github.com/underlay/delta/loader"
	"github.com/underlay/delta/logger"
	"github.com/underlay/delta/types"
)

// Config contains the options of a Store
type Config struct {
	// DataDir is the Badger directory; empty keeps the dataset in memory
	DataDir string `toml:"data-dir"`

	// WriteTxnLimit is the number of committed write transactions an
	// overlay buffers before it flushes
	WriteTxnLimit int `toml:"write-txn-limit"`

	// Unique makes overlays check the base before buffering an edit
	Unique bool `toml:"unique"`

	// MaxTableSize is the Badger table size in bytes. One write
	// transaction, and so one flush or import, holds at most 15% of it.
	MaxTableSize int64 `toml:"max-table-size"`

	Verbose bool `toml:"verbose"`
}

// NewConfig returns the default configuration
func NewConfig() *Config {
	return &Config{
		WriteTxnLimit: 1,
		Unique:        true,
		MaxTableSize:  64 << 20,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.WriteTxnLimit < 1 {
		return errors.Errorf("write-txn-limit must be at least 1, got %d", c.WriteTxnLimit)
	} else if c.MaxTableSize < 1<<20 {
		return errors.Errorf("max-table-size must be at least 1MB, got %d", c.MaxTableSize)
	}
	return nil
}

// A Store is a database instance
type Store struct {
	*db.Store
	Config *Config

	logger logger.Logger
}

// Open opens the database described by config
func Open(config *Config, l logger.Logger) (*Store, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NopLogger
	}

	store, err := db.Open(config.DataDir, l, db.WithMaxTableSize(config.MaxTableSize))
	if err != nil {
		return nil, err
	}
	return &Store{Store: store, Config: config, logger: l}, nil
}

// NewOverlay returns an overlay over a new handle on the store, configured
// from the store's Config. Further options override it.
func (s *Store) NewOverlay(opts ...buffer.Option) (*buffer.Dataset, error) {
	defaults := []buffer.Option{
		buffer.WithWriteTxnLimit(s.Config.WriteTxnLimit),
		buffer.WithUnique(s.Config.Unique),
		buffer.WithLogger(s.logger),
	}
	return buffer.NewDataset(s.Dataset(), append(defaults, opts...)...)
}

// Import adds the quads in a single write transaction and returns the
// number of quads that were not already stored
func (s *Store) Import(quads []types.Quad) (int, error) {
	d := s.Dataset()
	if err := d.Begin(types.TxnWrite); err != nil {
		return 0, err
	}
	defer d.End()

	before, err := d.Size()
	if err != nil {
		return 0, err
	}
	for _, quad := range quads {
		if err := d.Add(quad); err != nil {
			return 0, errors.Wrapf(err, "adding %s", quad)
		}
	}
	after, err := d.Size()
	if err != nil {
		return 0, err
	}

	if err := d.Commit(); err != nil {
		return 0, err
	}
	s.logger.Infof("imported %d quads", after-before)
	return after - before, nil
}

// Export writes every quad matching the pattern as N-Quads
func (s *Store) Export(w io.Writer, pattern types.Quad) error {
	iter, err := s.Dataset().Find(pattern)
	if err != nil {
		return err
	}
	quads, err := types.Collect(iter)
	if err != nil {
		return err
	}
	return loader.WriteNQuads(w, quads)
}
