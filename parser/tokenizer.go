package parser

import (
	"fmt"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize split a filter expression into tokens; keywords (and, or,
// not, in, true, false) come back as plain identifiers and get their
// meaning in the parser
func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case r == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++
		case r == '"' || r == '\'':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("filter: unterminated string at offset %d", i)
			}
			tokens = append(tokens, token{tokString, string(runes[i+1 : j]), i})
			i = j + 1
		case r == '=' || r == '!' || r == '<' || r == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokOp, string(runes[i : i+2]), i})
				i += 2
				break
			}
			if r == '=' || r == '!' {
				return nil, fmt.Errorf("filter: unexpected %q at offset %d", string(r), i)
			}
			tokens = append(tokens, token{tokOp, string(r), i})
			i++
		case r == '%':
			tokens = append(tokens, token{tokOp, "%", i})
			i++
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			tokens = append(tokens, token{tokIdent, string(runes[i:j]), i})
			i = j
		default:
			return nil, fmt.Errorf("filter: unexpected %q at offset %d", string(r), i)
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(runes)})
	return tokens, nil
}
