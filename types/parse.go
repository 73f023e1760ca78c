package types

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var patternLiteral = regexp.MustCompile(`^"([^"\\]*(?:\\.[^"\\]*)*)"`)
var patternLanguage = regexp.MustCompile(`^@([a-zA-Z]+(?:-[a-zA-Z0-9]+)*)`)
var patternBlank = regexp.MustCompile(`^_:([A-Za-z0-9_][A-Za-z0-9_.\-]*)`)

// ParseTerm parses a single term in N-Quads syntax
func ParseTerm(s string) (Term, error) {
	term, n, err := ReadTerm(s)
	if err != nil {
		return Any, err
	} else if strings.TrimSpace(s[n:]) != "" {
		return Any, ParseError(ErrParseTerm, s)
	}
	return term, nil
}

// ReadTerm reads one term from the start of s, skipping leading whitespace,
// and returns the number of bytes consumed.
func ReadTerm(s string) (Term, int, error) {
	start := len(s) - len(strings.TrimLeft(s, " \t"))
	val := s[start:]
	if val == "" {
		return Any, 0, ParseError(ErrParseTerm, s)
	}

	switch val[0] {
	case '<':
		end := strings.IndexByte(val, '>')
		if end == -1 {
			return Any, 0, ParseError(ErrParseTerm, s)
		}
		return NewIRI(val[1:end]), start + end + 1, nil
	case '_':
		match := patternBlank.FindStringSubmatch(val)
		if match == nil {
			return Any, 0, ParseError(ErrParseTerm, s)
		}
		// A trailing dot belongs to the statement, not to the label
		label := strings.TrimRight(match[1], ".")
		return NewBlankNode(label), start + 2 + len(label), nil
	case '"':
		li := patternLiteral.FindStringSubmatchIndex(val)
		if li == nil {
			return Any, 0, ParseError(ErrParseTerm, s)
		}
		value, err := unescape(val[li[2]:li[3]])
		if err != nil {
			return Any, 0, ParseError(err, s)
		}
		n := li[1]
		rest := val[n:]
		if strings.HasPrefix(rest, "@") {
			lang := patternLanguage.FindStringSubmatch(rest)
			if lang == nil {
				return Any, 0, ParseError(ErrParseTerm, s)
			}
			return NewLiteral(value, lang[1], ""), start + n + len(lang[0]), nil
		} else if strings.HasPrefix(rest, "^^<") {
			end := strings.IndexByte(rest, '>')
			if end == -1 {
				return Any, 0, ParseError(ErrParseTerm, s)
			}
			return NewLiteral(value, "", rest[3:end]), start + n + end + 1, nil
		}
		return NewLiteral(value, "", ""), start + n, nil
	}
	return Any, 0, ParseError(ErrParseTerm, s)
}

func unescape(str string) (string, error) {
	if strings.IndexByte(str, '\\') == -1 {
		return str, nil
	}

	var b strings.Builder
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		} else if i+1 == len(str) {
			return "", errors.Wrap(ErrParseTerm, "dangling escape")
		}

		i++
		switch str[i] {
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(str[i])
		case 'u', 'U':
			size := 4
			if str[i] == 'U' {
				size = 8
			}
			if i+size >= len(str) {
				return "", errors.Wrap(ErrParseTerm, "short unicode escape")
			}
			r, err := strconv.ParseUint(str[i+1:i+1+size], 16, 32)
			if err != nil {
				return "", errors.Wrap(ErrParseTerm, err.Error())
			}
			b.WriteRune(rune(r))
			i += size
		default:
			return "", errors.Wrapf(ErrParseTerm, "unknown escape \\%c", str[i])
		}
	}
	return b.String(), nil
}
