package types

// PrefixMap maps namespace prefixes to URIs
type PrefixMap interface {
	Get(prefix string) (uri string, ok bool, err error)
	Set(prefix, uri string) error
	Delete(prefix string) error
	ForEach(fn func(prefix, uri string) error) error
}

// Graph is anything that stores a single set of triples
type Graph interface {
	Contains(triple Triple) (bool, error)
	// Find returns the triples matching the pattern, where any component
	// of the pattern may be Any.
	Find(pattern Triple) (Iterator[Triple], error)
	Add(triple Triple) error
	Delete(triple Triple) error
	Clear() error
	Size() (int, error)
	Prefixes() PrefixMap
}

// Dataset is anything that stores quads in a default graph and any number
// of named graphs. Find patterns may use Any for the graph to match every
// graph including the default graph.
type Dataset interface {
	Transactional
	Contains(quad Quad) (bool, error)
	Find(pattern Quad) (Iterator[Quad], error)
	Add(quad Quad) error
	Delete(quad Quad) error
	Clear() error
	// Size is the number of quads in all graphs
	Size() (int, error)
	// GraphNames lists the named graphs that contain at least one quad
	GraphNames() ([]Term, error)
	Prefixes() PrefixMap
}
