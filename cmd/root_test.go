package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underlay/delta/cmd"
)

// execRootCommand runs the delta command with the given arguments and
// returns what it wrote to stdout
func execRootCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rc := cmd.NewRootCommand(strings.NewReader(stdin), &stdout, &stderr)
	rc.SetArgs(args)
	err := rc.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	out, err := execRootCommand(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "generate-config")
}

func TestGenerateConfig(t *testing.T) {
	out, err := execRootCommand(t, "", "generate-config")
	require.NoError(t, err)
	assert.Contains(t, out, "write-txn-limit = 1")
	assert.Contains(t, out, "unique = true")
	assert.Contains(t, out, "data-dir")
	assert.Contains(t, out, "max-table-size = 67108864")
}

const document = `<http://example.com/a> <http://example.com/p> <http://example.com/b> .
<http://example.com/b> <http://example.com/p> <http://example.com/c> <http://example.com/g> .
`

func TestLoadDumpApplyDiff(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	doc := writeFile(t, dir, "doc.nq", document)

	out, err := execRootCommand(t, "", "load", "--data-dir", data, doc)
	require.NoError(t, err)
	assert.Contains(t, out, "doc.nq: 2 quads")

	out, err = execRootCommand(t, "", "dump", "-d", data)
	require.NoError(t, err)
	assert.Equal(t, document, out)

	out, err = execRootCommand(t, "", "dump", "-d", data, "--default-graph")
	require.NoError(t, err)
	assert.Equal(t, strings.SplitAfter(document, "\n")[0], out)

	rows := `TX .
D <http://example.com/a> <http://example.com/p> <http://example.com/b> .
A <http://example.com/c> <http://example.com/p> <http://example.com/d> .
TC .
`
	out, err = execRootCommand(t, rows, "apply", "-d", data)
	require.NoError(t, err)
	assert.Equal(t, "stdin: +1 -1\n", out)

	out, err = execRootCommand(t, "", "dump", "-d", data, "-g", "<http://example.com/g>")
	require.NoError(t, err)
	assert.Equal(t, strings.SplitAfter(document, "\n")[1], out)

	out, err = execRootCommand(t, "", "diff", "-d", data, doc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "H id <uuid:"), out)
	assert.Contains(t, out, "\nA <http://example.com/a> <http://example.com/p> <http://example.com/b> .\n")
	assert.Contains(t, out, "\nD <http://example.com/c> <http://example.com/p> <http://example.com/d> .\n")

	// diff leaves the dataset alone, and its output turns it back into the document
	patchFile := writeFile(t, dir, "back.rdfp", out)
	out, err = execRootCommand(t, "", "apply", "-d", data, patchFile)
	require.NoError(t, err)
	assert.Contains(t, out, "+1 -1")

	out, err = execRootCommand(t, "", "dump", "-d", data)
	require.NoError(t, err)
	assert.Equal(t, document, out)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	config := writeFile(t, dir, "delta.toml", "data-dir = \""+filepath.ToSlash(data)+"\"\nwrite-txn-limit = 3\n")
	doc := writeFile(t, dir, "doc.nq", document)

	_, err := execRootCommand(t, "", "load", "-c", config, doc)
	require.NoError(t, err)

	out, err := execRootCommand(t, "", "dump", "-c", config)
	require.NoError(t, err)
	assert.Equal(t, document, out)

	bad := writeFile(t, dir, "bad.toml", "colour = \"blue\"\n")
	_, err = execRootCommand(t, "", "dump", "-c", bad)
	assert.Error(t, err)

	_, err = execRootCommand(t, "", "load", "-d", data, "--write-txn-limit", "0", doc)
	assert.Error(t, err)
}

func TestLoadFailureKeepsEarlierFiles(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	doc := writeFile(t, dir, "doc.nq", document)

	_, err := execRootCommand(t, "", "load", "-d", data, "--write-txn-limit", "5", doc, filepath.Join(dir, "missing.nq"))
	assert.Error(t, err)

	out, err := execRootCommand(t, "", "dump", "-d", data)
	require.NoError(t, err)
	assert.Equal(t, document, out)
}

func TestApplyFailure(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")

	_, err := execRootCommand(t, "TX .\nA <http://example.com/a> .\nTC .\n", "apply", "-d", data)
	assert.Error(t, err)

	_, err = execRootCommand(t, "", "load", "-d", data, filepath.Join(dir, "missing.nq"))
	assert.Error(t, err)
}
