package buffer

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/underlay/delta/logger"
	"github.com/underlay/delta/types"
)

var _ types.PrefixMap = (*Prefixes)(nil)

// Prefixes buffers edits to a prefix map
type Prefixes struct {
	base    types.PrefixMap
	added   map[string]string
	order   []string
	deleted set[string]
	journal *journal
	logger  logger.Logger
}

// NewPrefixes returns an empty overlay over base
func NewPrefixes(base types.PrefixMap, l logger.Logger) *Prefixes {
	if l == nil {
		l = logger.NopLogger
	}
	return &Prefixes{
		base:    base,
		added:   map[string]string{},
		deleted: set[string]{},
		logger:  l,
	}
}

func canonical(prefix string) string {
	return strings.TrimSuffix(prefix, ":")
}

func (p *Prefixes) setAdded(prefix, uri string) {
	previous, had := p.added[prefix]
	if had && previous == uri {
		return
	}
	p.added[prefix] = uri
	if !had {
		p.order = append(p.order, prefix)
	}
	p.journal.record(func() {
		if had {
			p.added[prefix] = previous
		} else {
			p.unsetAdded(prefix)
		}
	})
}

func (p *Prefixes) unsetAdded(prefix string) {
	previous, had := p.added[prefix]
	if !had {
		return
	}
	delete(p.added, prefix)
	for i, x := range p.order {
		if x == prefix {
			p.order = append(p.order[:i:i], p.order[i+1:]...)
			break
		}
	}
	p.journal.record(func() { p.setAdded(prefix, previous) })
}

func (p *Prefixes) setDeleted(prefix string) {
	if p.deleted.add(prefix) {
		p.journal.record(func() { delete(p.deleted, prefix) })
	}
}

func (p *Prefixes) unsetDeleted(prefix string) {
	if p.deleted.remove(prefix) {
		p.journal.record(func() { p.deleted[prefix] = struct{}{} })
	}
}

// Get resolves a prefix: pending additions, then pending deletions, then the base
func (p *Prefixes) Get(prefix string) (string, bool, error) {
	prefix = canonical(prefix)
	if uri, has := p.added[prefix]; has {
		return uri, true, nil
	} else if p.deleted.has(prefix) {
		return "", false, nil
	}
	return p.base.Get(prefix)
}

// Set maps prefix to uri. Remapping a visible prefix to a different URI
// logs a warning and the new mapping wins.
func (p *Prefixes) Set(prefix, uri string) error {
	prefix = canonical(prefix)
	current, has, err := p.Get(prefix)
	if err != nil {
		return err
	} else if has && current != uri {
		p.logger.Warnf("prefix %q remapped from <%s> to <%s>", prefix, current, uri)
	}

	baseURI, inBase, err := p.base.Get(prefix)
	if err != nil {
		return err
	}

	if inBase && baseURI == uri {
		p.unsetAdded(prefix)
		p.unsetDeleted(prefix)
		return nil
	}

	p.setAdded(prefix, uri)
	p.unsetDeleted(prefix)
	return nil
}

// Delete removes a prefix
func (p *Prefixes) Delete(prefix string) error {
	prefix = canonical(prefix)
	_, inBase, err := p.base.Get(prefix)
	if err != nil {
		return err
	}

	p.unsetAdded(prefix)
	if inBase {
		p.setDeleted(prefix)
	} else {
		p.unsetDeleted(prefix)
	}
	return nil
}

// Clear marks every base prefix deleted and drops every pending addition
func (p *Prefixes) Clear() error {
	for _, prefix := range append([]string(nil), p.order...) {
		p.unsetAdded(prefix)
	}
	return p.base.ForEach(func(prefix, _ string) error {
		p.setDeleted(prefix)
		return nil
	})
}

// ForEach yields the visible base entries and then the pending additions
// in the order they were first added
func (p *Prefixes) ForEach(fn func(prefix, uri string) error) error {
	err := p.base.ForEach(func(prefix, uri string) error {
		if p.deleted.has(prefix) {
			return nil
		} else if _, has := p.added[prefix]; has {
			return nil
		}
		return fn(prefix, uri)
	})
	if err != nil {
		return err
	}

	for _, prefix := range append([]string(nil), p.order...) {
		if uri, has := p.added[prefix]; has {
			if err := fn(prefix, uri); err != nil {
				return err
			}
		}
	}
	return nil
}

// Size counts the distinct visible prefixes. It enumerates the base.
func (p *Prefixes) Size() (n int, err error) {
	err = p.ForEach(func(string, string) error {
		n++
		return nil
	})
	return
}

// Added returns a copy of the pending additions
func (p *Prefixes) Added() map[string]string { return maps.Clone(p.added) }

// Deleted returns the pending deletions
func (p *Prefixes) Deleted() []string { return maps.Keys(p.deleted) }

// IsDirty reports whether any edits are pending
func (p *Prefixes) IsDirty() bool { return len(p.added) > 0 || len(p.deleted) > 0 }

// Discard drops every pending edit
func (p *Prefixes) Discard() {
	p.added = map[string]string{}
	p.order = nil
	p.deleted = set[string]{}
}

// Flush writes the pending edits to the base and clears them.
// It does not open a transaction of its own.
func (p *Prefixes) Flush() error {
	for _, prefix := range p.order {
		if err := p.base.Set(prefix, p.added[prefix]); err != nil {
			return errors.Wrapf(err, "setting prefix %s", prefix)
		}
	}
	for prefix := range p.deleted {
		if err := p.base.Delete(prefix); err != nil {
			return errors.Wrapf(err, "deleting prefix %s", prefix)
		}
	}
	p.Discard()
	return nil
}
