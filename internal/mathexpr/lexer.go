package mathexpr

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokIdent
	tokOperator
	tokLParen
	tokRParen
	tokComma
	tokAssign
	tokEOF
)

type token struct {
	kind  tokenKind
	text  string
	value float64
	pos   int
}

// symbolOperators are matched longest first.
var symbolOperators = []string{"<<", ">>", "+", "-", "*", "/", "^", "%", "&", "|"}

// lex splits an expression into tokens. Whitespace and nothing else is
// skipped; every other byte must belong to a token.
func lex(input string) ([]token, error) {
	var toks []token
	for i := 0; i < len(input); {
		c := input[i]
		switch {
		case isSpace(c):
			i++
		case isDigit(c):
			start := i
			dots := 0
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				if input[i] == '.' {
					dots++
				}
				i++
			}
			if dots > 1 {
				return nil, fmt.Errorf("%w: bad number %q", ErrMalformed, input[start:i])
			}
			v, err := strconv.ParseFloat(input[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrMalformed, input[start:i])
			}
			toks = append(toks, token{kind: tokNumber, text: input[start:i], value: v, pos: start})
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: input[start:i], pos: start})
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '=':
			toks = append(toks, token{kind: tokAssign, text: "=", pos: i})
			i++
		default:
			op := matchSymbol(input[i:])
			if op == "" {
				return nil, fmt.Errorf("%w: unexpected %q at %d", ErrMalformed, c, i)
			}
			toks = append(toks, token{kind: tokOperator, text: op, pos: i})
			i += len(op)
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(input)}), nil
}

func matchSymbol(s string) string {
	for _, op := range symbolOperators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
