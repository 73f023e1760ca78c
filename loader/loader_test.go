package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underlay/delta/types"
)

func ex(s string) types.Term { return types.NewIRI("http://example.com/" + s) }

const document = `<http://example.com/a> <http://example.com/p> <http://example.com/b> .
<http://example.com/a> <http://example.com/q> "hi"@en <http://example.com/g> .
_:x <http://example.com/p> "tab\there" .
`

func TestReadNQuads(t *testing.T) {
	quads, err := ReadNQuads(strings.NewReader(document))
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.Quad{
		types.NewQuad(types.DefaultGraph, ex("a"), ex("p"), ex("b")),
		types.NewQuad(ex("g"), ex("a"), ex("q"), types.NewLiteral("hi", "en", "")),
		types.NewQuad(types.DefaultGraph, types.NewBlankNode("x"), ex("p"), types.NewLiteral("tab\there", "", "")),
	}, quads)

	_, err = ReadNQuads(strings.NewReader("<a> <b> ."))
	assert.Error(t, err)
}

func TestWriteNQuads(t *testing.T) {
	quads := []types.Quad{
		types.NewQuad(ex("g"), ex("b"), ex("p"), ex("c")),
		types.NewQuad(types.DefaultGraph, ex("a"), ex("p"), ex("b")),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteNQuads(&buf, quads))
	assert.Equal(t, quads[1].String()+"\n"+quads[0].String()+"\n", buf.String())

	parsed, err := ReadNQuads(strings.NewReader(document))
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, WriteNQuads(&buf, parsed))
	again, err := ReadNQuads(&buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, parsed, again)
}

func TestReadJSONLD(t *testing.T) {
	doc := `{
		"@context": {"ex": "http://example.com/"},
		"@id": "ex:a",
		"ex:p": {"@id": "ex:b"}
	}`
	quads, err := ReadJSONLD(strings.NewReader(doc), "", nil)
	require.NoError(t, err)
	assert.Equal(t, []types.Quad{types.NewQuad(types.DefaultGraph, ex("a"), ex("p"), ex("b"))}, quads)

	_, err = ReadJSONLD(strings.NewReader("{"), "", nil)
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	context := `{"@context": {"name": "http://schema.org/name"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "context.jsonld"), []byte(context), 0o644))
	doc := `{"@context": "context.jsonld", "@id": "http://example.com/a", "name": "Alice"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.jsonld"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.nq"), []byte(document), 0o644))

	quads, err := ReadFile(filepath.Join(dir, "doc.jsonld"))
	require.NoError(t, err)
	assert.Equal(t, []types.Quad{
		types.NewQuad(types.DefaultGraph, ex("a"), types.NewIRI("http://schema.org/name"), types.NewLiteral("Alice", "", "")),
	}, quads)

	quads, err = ReadFile(filepath.Join(dir, "doc.nq"))
	require.NoError(t, err)
	assert.Len(t, quads, 3)

	_, err = ReadFile(filepath.Join(dir, "doc.ttl"))
	assert.Error(t, err)
}

func TestFileDocumentLoader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ctx.json"), []byte(`{"@context": {}}`), 0o644))

	dl := NewFileDocumentLoader(dir)
	dl.Map("https://example.com/context", filepath.Join(dir, "ctx.json"))

	doc, err := dl.LoadDocument("https://example.com/context")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/context", doc.DocumentURL)

	_, err = dl.LoadDocument("ctx.json")
	assert.NoError(t, err)

	_, err = dl.LoadDocument("https://example.com/other")
	assert.Error(t, err)
}
