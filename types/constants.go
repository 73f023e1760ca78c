package types

// XSDString is the implicit datatype of simple literals
const XSDString = "http://www.w3.org/2001/XMLSchema#string"

// RDFLangString is the implicit datatype of language-tagged literals
const RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"

// XSDInteger is used by the test fixtures and the CLI
const XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"

// DefaultGraphName is the key json-gold uses for the default graph of a dataset
const DefaultGraphName = "@default"
