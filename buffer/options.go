package buffer

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/underlay/delta/logger"
)

// Option configures a Graph or Dataset overlay
type Option func(o *options) error

type options struct {
	writeTxnLimit int
	unique        bool
	logger        logger.Logger
}

func defaultOptions() *options {
	return &options{writeTxnLimit: 1, unique: true, logger: logger.NopLogger}
}

func applyOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	return o, nil
}

// prefixed tags the logger with a fresh id so interleaved overlays can be told apart
func (o *options) prefixed(kind string) logger.Logger {
	return o.logger.WithPrefix("[" + kind + " " + uuid.NewString()[:8] + "] ")
}

// WithWriteTxnLimit sets how many committed write transactions a Dataset
// batches before flushing to its base. The default is 1.
func WithWriteTxnLimit(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return errors.Errorf("write transaction limit must be at least 1, got %d", n)
		}
		o.writeTxnLimit = n
		return nil
	}
}

// WithUnique enables or disables the base containment check on every add
// and delete. With it disabled the buffers may shadow the base and sizes are
// counted by traversal. The default is true.
func WithUnique(unique bool) Option {
	return func(o *options) error {
		o.unique = unique
		return nil
	}
}

// WithLogger sets the logger. The default is logger.NopLogger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) error {
		if l == nil {
			l = logger.NopLogger
		}
		o.logger = l
		return nil
	}
}
