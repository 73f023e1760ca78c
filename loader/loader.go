// Package loader reads and writes RDF documents as slices of quads.
package loader

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	ld "github.com/piprate/json-gold/ld"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/underlay/delta/types"
)

// Format names a document syntax
type Format string

const (
	// NQuads is application/n-quads; N-Triples documents parse as N-Quads
	NQuads Format = "application/n-quads"
	// JSONLD is application/ld+json
	JSONLD Format = "application/ld+json"
)

// FormatOf guesses the format of a file from its extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nq", ".nt":
		return NQuads, nil
	case ".jsonld", ".json":
		return JSONLD, nil
	}
	return "", errors.Errorf("unknown document format for %s", path)
}

// ReadNQuads parses an N-Quads document
func ReadNQuads(r io.Reader) ([]types.Quad, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading n-quads")
	}

	serializer := &ld.NQuadRDFSerializer{}
	dataset, err := serializer.Parse(data)
	if err != nil {
		return nil, types.ParseError(err, "n-quads document")
	}
	return types.FromDataset(dataset), nil
}

// ReadJSONLD converts a JSON-LD document to quads. Relative IRIs resolve
// against base, and remote contexts are fetched with loader; a nil loader
// only reads local files.
func ReadJSONLD(r io.Reader, base string, loader ld.DocumentLoader) ([]types.Quad, error) {
	document, err := ld.DocumentFromReader(r)
	if err != nil {
		return nil, types.ParseError(err, "json-ld document")
	}

	if loader == nil {
		loader = NewFileDocumentLoader("")
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions(base)
	opts.DocumentLoader = loader

	rdf, err := proc.ToRDF(document, opts)
	if err != nil {
		return nil, errors.Wrap(err, "converting json-ld to rdf")
	}

	dataset, is := rdf.(*ld.RDFDataset)
	if !is {
		return nil, errors.Errorf("unexpected json-ld result %T", rdf)
	}
	return types.FromDataset(dataset), nil
}

// ReadFile reads a document, choosing the parser from the file extension.
// JSON-LD contexts are resolved relative to the file's directory.
func ReadFile(path string) ([]types.Quad, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if format == JSONLD {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		base := "file://" + filepath.ToSlash(abs)
		return ReadJSONLD(file, base, NewFileDocumentLoader(filepath.Dir(abs)))
	}
	return ReadNQuads(file)
}

// WriteNQuads serializes quads as N-Quads, one statement per line, in a
// stable order
func WriteNQuads(w io.Writer, quads []types.Quad) error {
	serializer := &ld.NQuadRDFSerializer{}
	result, err := serializer.Serialize(types.ToDataset(quads))
	if err != nil {
		return errors.Wrap(err, "serializing n-quads")
	}

	text, _ := result.(string)
	lines := strings.SplitAfter(text, "\n")
	slices.Sort(lines)

	writer := bufio.NewWriter(w)
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, err := writer.WriteString(line); err != nil {
			return err
		}
	}
	return writer.Flush()
}
