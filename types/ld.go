package types

import (
	"strings"

	ld "github.com/piprate/json-gold/ld"
)

// FromNode converts a json-gold node into a Term. A nil node is the default graph.
func FromNode(node ld.Node) Term {
	switch node := node.(type) {
	case *ld.IRI:
		return NewIRI(node.Value)
	case *ld.BlankNode:
		return NewBlankNode(node.Attribute)
	case *ld.Literal:
		if node.Datatype == RDFLangString {
			return NewLiteral(node.Value, node.Language, "")
		}
		return NewLiteral(node.Value, "", node.Datatype)
	}
	return DefaultGraph
}

// ToNode converts a Term into a json-gold node. The default graph and the
// wildcard have no node representation and convert to nil.
func ToNode(term Term) ld.Node {
	switch term.Kind {
	case IRIType:
		return ld.NewIRI(term.Value)
	case BlankNodeType:
		return ld.NewBlankNode("_:" + term.Value)
	case LiteralType:
		if term.Language != "" {
			return ld.NewLiteral(term.Value, RDFLangString, term.Language)
		} else if term.Datatype == "" {
			return ld.NewLiteral(term.Value, XSDString, "")
		}
		return ld.NewLiteral(term.Value, term.Datatype, "")
	}
	return nil
}

// FromLdQuad converts a json-gold quad
func FromLdQuad(quad *ld.Quad) Quad {
	return Quad{
		Graph:     FromNode(quad.Graph),
		Subject:   FromNode(quad.Subject),
		Predicate: FromNode(quad.Predicate),
		Object:    FromNode(quad.Object),
	}
}

// GraphName returns the key of the quad's graph in an ld.RDFDataset
func GraphName(graph Term) string {
	switch graph.Kind {
	case IRIType:
		return graph.Value
	case BlankNodeType:
		return "_:" + graph.Value
	}
	return DefaultGraphName
}

// ToLdQuad converts a quad into a json-gold quad
func ToLdQuad(quad Quad) *ld.Quad {
	return ld.NewQuad(ToNode(quad.Subject), ToNode(quad.Predicate), ToNode(quad.Object), GraphName(quad.Graph))
}

// FromDataset flattens every graph of an ld.RDFDataset
func FromDataset(dataset *ld.RDFDataset) []Quad {
	quads := []Quad{}
	for name, graph := range dataset.Graphs {
		var g Term
		if name == DefaultGraphName {
			g = DefaultGraph
		} else if strings.HasPrefix(name, "_:") {
			g = NewBlankNode(name)
		} else {
			g = NewIRI(name)
		}
		for _, quad := range graph {
			q := FromLdQuad(quad)
			q.Graph = g
			quads = append(quads, q)
		}
	}
	return quads
}

// ToDataset groups quads by graph into an ld.RDFDataset
func ToDataset(quads []Quad) *ld.RDFDataset {
	dataset := ld.NewRDFDataset()
	for _, quad := range quads {
		name := GraphName(quad.Graph)
		dataset.Graphs[name] = append(dataset.Graphs[name], ToLdQuad(quad))
	}
	return dataset
}
