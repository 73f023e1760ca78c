package types

import (
	"strings"
)

// TermType distinguishes the kinds of RDF terms.
// The zero value is the wildcard used in patterns.
type TermType uint8

const (
	AnyType TermType = iota
	IRIType
	BlankNodeType
	LiteralType
	DefaultGraphType
)

// A Term is an RDF term. Terms are plain comparable values, so two terms
// are equal exactly when they are the same term (not when they denote the
// same value: "1"^^xsd:integer and "01"^^xsd:integer are different terms).
type Term struct {
	Kind     TermType
	Value    string
	Language string
	Datatype string
}

// Any matches every term in a pattern
var Any = Term{}

// DefaultGraph names the unnamed graph of a dataset
var DefaultGraph = Term{Kind: DefaultGraphType}

// NewIRI returns a named node
func NewIRI(value string) Term { return Term{Kind: IRIType, Value: value} }

// NewBlankNode returns a blank node with the given label. A leading "_:" is dropped.
func NewBlankNode(label string) Term {
	return Term{Kind: BlankNodeType, Value: strings.TrimPrefix(label, "_:")}
}

// NewLiteral returns a literal term. A language tag takes precedence over the
// datatype, and xsd:string / rdf:langString datatypes are left implicit.
func NewLiteral(value, language, datatype string) Term {
	if language != "" {
		return Term{Kind: LiteralType, Value: value, Language: strings.ToLower(language)}
	} else if datatype == XSDString || datatype == RDFLangString {
		datatype = ""
	}
	return Term{Kind: LiteralType, Value: value, Datatype: datatype}
}

// IsAny reports whether the term is the wildcard
func (t Term) IsAny() bool { return t.Kind == AnyType }

// IsConcrete reports whether the term can be stored
func (t Term) IsConcrete() bool { return t.Kind != AnyType }

// Matches reports whether t matches the pattern term p
func (t Term) Matches(p Term) bool { return p.Kind == AnyType || p == t }

// String serializes the term in its N-Quads form. The default graph
// serializes to the empty string and the wildcard to "ANY".
func (t Term) String() string {
	switch t.Kind {
	case IRIType:
		return "<" + t.Value + ">"
	case BlankNodeType:
		return "_:" + t.Value
	case LiteralType:
		s := "\"" + escape(t.Value) + "\""
		if t.Language != "" {
			return s + "@" + t.Language
		} else if t.Datatype != "" {
			return s + "^^<" + t.Datatype + ">"
		}
		return s
	case DefaultGraphType:
		return ""
	default:
		return "ANY"
	}
}

// A Triple is a (subject, predicate, object) statement
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewTriple is a convenience constructor
func NewTriple(s, p, o Term) Triple { return Triple{s, p, o} }

// IsConcrete reports whether no component is a wildcard
func (t Triple) IsConcrete() bool {
	return t.Subject.IsConcrete() && t.Predicate.IsConcrete() && t.Object.IsConcrete()
}

// Matches reports whether the triple matches the pattern
func (t Triple) Matches(pattern Triple) bool {
	return t.Subject.Matches(pattern.Subject) &&
		t.Predicate.Matches(pattern.Predicate) &&
		t.Object.Matches(pattern.Object)
}

// InGraph lifts the triple into a quad in the given graph
func (t Triple) InGraph(graph Term) Quad {
	return Quad{Graph: graph, Subject: t.Subject, Predicate: t.Predicate, Object: t.Object}
}

func (t Triple) String() string {
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + " ."
}

// A Quad is a triple in a graph. Graph is DefaultGraph for the unnamed graph.
type Quad struct {
	Graph     Term
	Subject   Term
	Predicate Term
	Object    Term
}

// NewQuad is a convenience constructor. Note that the graph comes first.
func NewQuad(g, s, p, o Term) Quad { return Quad{g, s, p, o} }

// Triple drops the graph component
func (q Quad) Triple() Triple { return Triple{q.Subject, q.Predicate, q.Object} }

// IsDefaultGraph reports whether the quad is in the default graph
func (q Quad) IsDefaultGraph() bool { return q.Graph.Kind == DefaultGraphType }

// IsConcrete reports whether no component is a wildcard
func (q Quad) IsConcrete() bool { return q.Graph.IsConcrete() && q.Triple().IsConcrete() }

// Matches reports whether the quad matches the pattern
func (q Quad) Matches(pattern Quad) bool {
	return q.Graph.Matches(pattern.Graph) && q.Triple().Matches(pattern.Triple())
}

// String serializes the quad as an N-Quads line (without the newline)
func (q Quad) String() string {
	s := q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String()
	if !q.IsDefaultGraph() {
		s += " " + q.Graph.String()
	}
	return s + " ."
}

// Validate checks that the quad can be written to a store
func (q Quad) Validate() error {
	if !q.IsConcrete() {
		return ErrInvalidQuad
	} else if q.Subject.Kind == DefaultGraphType || q.Predicate.Kind == DefaultGraphType || q.Object.Kind == DefaultGraphType {
		return ErrInvalidQuad
	} else if q.Graph.Kind == LiteralType {
		return ErrInvalidQuad
	}
	return nil
}

func escape(str string) string {
	str = strings.Replace(str, "\\", "\\\\", -1)
	str = strings.Replace(str, "\"", "\\\"", -1)
	str = strings.Replace(str, "\n", "\\n", -1)
	str = strings.Replace(str, "\r", "\\r", -1)
	str = strings.Replace(str, "\t", "\\t", -1)
	return str
}

// TermLess orders terms by their N-Quads form
func TermLess(a, b Term) bool { return a.String() < b.String() }

// QuadLess orders quads by graph and then by their N-Quads form,
// so the default graph comes first
func QuadLess(a, b Quad) bool {
	if a.Graph != b.Graph {
		return TermLess(a.Graph, b.Graph)
	}
	return a.String() < b.String()
}
