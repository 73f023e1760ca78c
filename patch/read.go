package patch

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/underlay/delta/types"
)

// ErrSyntax indicates a malformed patch row
var ErrSyntax = errors.New("invalid patch row")

// Read parses a patch. Blank lines and lines starting with # are skipped.
func Read(r io.Reader) (*Patch, error) {
	patch := &Patch{Rows: []Row{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		row, err := ParseRow(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		patch.Rows = append(patch.Rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading patch")
	}
	return patch, nil
}

// ParseRow parses a single row
func ParseRow(line string) (Row, error) {
	code, rest := line, ""
	if i := strings.IndexAny(line, " \t"); i != -1 {
		code, rest = line[:i], line[i:]
	}

	row := Row{Op: Op(code)}
	var err error
	switch row.Op {
	case TxnBegin, TxnCommit, TxnAbort:
		err = end(rest, line)
	case Add, Delete:
		row.Quad, err = readQuad(rest, line)
	case PrefixAdd, PrefixDelete:
		row.Prefix, rest, err = readPrefix(rest, line)
		if err != nil {
			break
		}
		if row.Op == PrefixAdd || !strings.HasPrefix(strings.TrimSpace(rest), ".") {
			var uri types.Term
			if uri, rest, err = readTerm(rest, line); err != nil {
				break
			} else if uri.Kind != types.IRIType && uri.Kind != types.LiteralType {
				err = types.ParseError(ErrSyntax, line)
				break
			}
			row.URI = uri.Value
		}
		err = end(rest, line)
	case Header:
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return row, types.ParseError(ErrSyntax, line)
		}
		row.Key = fields[0]
		rest = rest[strings.Index(rest, row.Key)+len(row.Key):]
		if row.Value, rest, err = readTerm(rest, line); err == nil {
			err = end(rest, line)
		}
	default:
		err = types.ParseError(errors.Wrapf(ErrSyntax, "unknown code %q", code), line)
	}
	return row, err
}

func readTerm(s, line string) (types.Term, string, error) {
	term, n, err := types.ReadTerm(s)
	if err != nil {
		return types.Any, s, types.ParseError(ErrSyntax, line)
	}
	return term, s[n:], nil
}

// end checks that only the closing dot and a comment remain
func end(rest, line string) error {
	rest = strings.TrimSpace(rest)
	rest = strings.TrimPrefix(rest, ".")
	rest = strings.TrimSpace(rest)
	if rest != "" && rest[0] != '#' {
		return types.ParseError(ErrSyntax, line)
	}
	return nil
}

func readQuad(rest, line string) (types.Quad, error) {
	terms := make([]types.Term, 0, 4)
	for len(terms) < 4 {
		if strings.HasPrefix(strings.TrimSpace(rest), ".") {
			break
		}
		term, tail, err := readTerm(rest, line)
		if err != nil {
			return types.Quad{}, err
		}
		terms, rest = append(terms, term), tail
	}

	if len(terms) < 3 {
		return types.Quad{}, types.ParseError(ErrSyntax, line)
	} else if err := end(rest, line); err != nil {
		return types.Quad{}, err
	}

	quad := types.NewQuad(types.DefaultGraph, terms[0], terms[1], terms[2])
	if len(terms) == 4 {
		quad.Graph = terms[3]
	}
	if err := quad.Validate(); err != nil {
		return quad, types.ParseError(err, line)
	}
	return quad, nil
}

// readPrefix accepts a quoted prefix or a bare name with an optional colon
func readPrefix(rest, line string) (string, string, error) {
	trimmed := strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(trimmed, "\"") {
		term, tail, err := readTerm(trimmed, line)
		if err != nil {
			return "", rest, err
		}
		return term.Value, tail, nil
	}

	i := strings.IndexAny(trimmed, " \t")
	if i == -1 {
		i = len(trimmed)
	}
	if i == 0 {
		return "", rest, types.ParseError(ErrSyntax, line)
	}
	return strings.TrimSuffix(trimmed[:i], ":"), trimmed[i:], nil
}
