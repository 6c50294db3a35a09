package condition

import (
	"fmt"
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword // and, or, not
	tokBool
	tokNumber
	tokString
	tokCmp
	tokLParen
	tokRParen

	// tokUnsupported marks punctuation we recognize but refuse:
	// arithmetic operators, attribute access, indexing, commas.
	tokUnsupported
)

type token struct {
	kind tokenKind
	text string
	num  float64
	op   CmpOp
}

// lex splits condition text into tokens. Characters that belong to
// excluded grammar (arithmetic, indexing, attribute access) lex into
// tokUnsupported so the parser can report them as such rather than as
// plain syntax errors.
func lex(text string) ([]token, error) {
	var toks []token
	i := 0
	n := len(text)

	for i < n {
		c := text[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")"})
			i++

		case c == '<':
			if i+1 < n && text[i+1] == '=' {
				toks = append(toks, token{kind: tokCmp, text: "<=", op: OpLE})
				i += 2
			} else {
				toks = append(toks, token{kind: tokCmp, text: "<", op: OpLT})
				i++
			}
		case c == '>':
			if i+1 < n && text[i+1] == '=' {
				toks = append(toks, token{kind: tokCmp, text: ">=", op: OpGE})
				i += 2
			} else {
				toks = append(toks, token{kind: tokCmp, text: ">", op: OpGT})
				i++
			}
		case c == '=':
			if i+1 < n && text[i+1] == '=' {
				toks = append(toks, token{kind: tokCmp, text: "==", op: OpEQ})
				i += 2
			} else {
				// Assignment is not part of the language.
				return nil, fmt.Errorf("%w: single '=' (use '==')", ErrInvalidSyntax)
			}
		case c == '!':
			if i+1 < n && text[i+1] == '=' {
				toks = append(toks, token{kind: tokCmp, text: "!=", op: OpNE})
				i += 2
			} else {
				return nil, fmt.Errorf("%w: stray '!'", ErrInvalidSyntax)
			}

		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
			toks = append(toks, token{kind: tokUnsupported, text: fmt.Sprintf("arithmetic operator %q", string(c))})
			i++
		case c == '[' || c == ']':
			toks = append(toks, token{kind: tokUnsupported, text: "indexing"})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokUnsupported, text: "comma"})
			i++

		case c == '"' || c == '\'':
			quote := c
			j := i + 1
			for j < n && text[j] != quote {
				j++
			}
			if j >= n {
				return nil, fmt.Errorf("%w: unterminated string literal", ErrInvalidSyntax)
			}
			toks = append(toks, token{kind: tokString, text: text[i+1 : j]})
			i = j + 1

		case c >= '0' && c <= '9' || c == '.':
			if c == '.' && (i+1 >= n || text[i+1] < '0' || text[i+1] > '9') {
				// A lone dot is attribute access, not a number.
				toks = append(toks, token{kind: tokUnsupported, text: "attribute access"})
				i++
				continue
			}
			j := i
			for j < n && (text[j] >= '0' && text[j] <= '9' || text[j] == '.') {
				j++
			}
			// Optional exponent, as in 1.2e3.
			if j < n && (text[j] == 'e' || text[j] == 'E') {
				k := j + 1
				if k < n && (text[k] == '+' || text[k] == '-') {
					k++
				}
				if k < n && text[k] >= '0' && text[k] <= '9' {
					for k < n && text[k] >= '0' && text[k] <= '9' {
						k++
					}
					j = k
				}
			}
			lit := text[i:j]
			f, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrInvalidSyntax, lit)
			}
			toks = append(toks, token{kind: tokNumber, text: lit, num: f})
			i = j

		case isIdentStart(rune(c)):
			j := i
			for j < n && isIdentPart(rune(text[j])) {
				j++
			}
			word := text[i:j]
			i = j
			// A name followed by a dot is attribute access.
			if i < n && text[i] == '.' {
				toks = append(toks, token{kind: tokUnsupported, text: fmt.Sprintf("attribute access on %q", word)})
				i++
				continue
			}
			switch word {
			case "and", "or", "not":
				toks = append(toks, token{kind: tokKeyword, text: word})
			case "true", "True":
				toks = append(toks, token{kind: tokBool, text: "true"})
			case "false", "False":
				toks = append(toks, token{kind: tokBool, text: "false"})
			case "in", "is", "lambda", "if", "else":
				toks = append(toks, token{kind: tokUnsupported, text: fmt.Sprintf("keyword %q", word)})
			default:
				toks = append(toks, token{kind: tokIdent, text: word})
			}

		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrInvalidSyntax, string(c))
		}
	}

	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Fields returns the distinct field names a parsed condition references,
// in first-appearance order. Used by table linting at load time.
func Fields(n Node) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case FieldRef:
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case Compare:
			for _, o := range v.Operands {
				walk(o)
			}
		case And:
			for _, t := range v.Terms {
				walk(t)
			}
		case Or:
			for _, t := range v.Terms {
				walk(t)
			}
		case Not:
			walk(v.Term)
		}
	}
	walk(n)
	return out
}
