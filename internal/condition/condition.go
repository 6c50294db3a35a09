// Package condition implements the restricted boolean-expression
// language used by the externally editable rule tables.
//
// The grammar is a closed whitelist: comparisons over bare field names
// and number/string/bool literals, combined with and/or/not and
// parentheses. Rule text is authored by non-engineers and loaded at run
// time, so anything outside the whitelist (function calls, arithmetic,
// attribute access, indexing) is rejected rather than interpreted.
package condition

import (
	"errors"
	"fmt"
)

// Error taxonomy for condition handling. Callers distinguish kinds with
// errors.Is; scoring loops convert all of them to "rule did not match".
var (
	// ErrInvalidSyntax reports malformed condition text (parse time).
	ErrInvalidSyntax = errors.New("invalid condition syntax")

	// ErrUnknownField reports a name absent from the evaluation
	// context (evaluation time).
	ErrUnknownField = errors.New("unknown field in condition")

	// ErrUnsupportedConstruct reports a grammar element outside the
	// whitelist, such as a function call or arithmetic operator.
	ErrUnsupportedConstruct = errors.New("unsupported construct in condition")
)

// CmpOp is one of the six comparison operators.
type CmpOp int

const (
	OpLT CmpOp = iota
	OpLE
	OpGT
	OpGE
	OpEQ
	OpNE
)

func (op CmpOp) String() string {
	switch op {
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	case OpEQ:
		return "=="
	case OpNE:
		return "!="
	}
	return "?"
}

// Node is a parsed expression-tree node. The variants below are the
// only legal node kinds; the parser can produce nothing else.
type Node interface {
	node()
}

// FieldRef resolves a bare name against the evaluation context.
type FieldRef struct {
	Name string
}

// Literal is a number, string, or boolean constant.
type Literal struct {
	Value any // float64, string, or bool
}

// Compare is a chained comparison: Operands has len(Ops)+1 entries and
// every pairwise comparison must hold, left to right.
type Compare struct {
	Operands []Node
	Ops      []CmpOp
}

// And is a short-circuit conjunction of two or more terms.
type And struct {
	Terms []Node
}

// Or is a short-circuit disjunction of two or more terms.
type Or struct {
	Terms []Node
}

// Not negates a single term.
type Not struct {
	Term Node
}

func (FieldRef) node() {}
func (Literal) node()  {}
func (Compare) node()  {}
func (And) node()      {}
func (Or) node()       {}
func (Not) node()      {}

// Parse parses one condition string into its expression tree.
func Parse(text string) (Node, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	switch p.peek().kind {
	case tokEOF:
	case tokUnsupported:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConstruct, p.peek().text)
	default:
		return nil, fmt.Errorf("%w: unexpected %q after expression", ErrInvalidSyntax, p.peek().text)
	}
	return node, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

// parseExpr := orExpr
func (p *parser) parseExpr() (Node, error) {
	return p.parseOr()
}

// orExpr := andExpr ( "or" andExpr )*
func (p *parser) parseOr() (Node, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []Node{first}
	for p.peek().kind == tokKeyword && p.peek().text == "or" {
		p.next()
		t, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return Or{Terms: terms}, nil
}

// andExpr := unary ( "and" unary )*
func (p *parser) parseAnd() (Node, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	terms := []Node{first}
	for p.peek().kind == tokKeyword && p.peek().text == "and" {
		p.next()
		t, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return And{Terms: terms}, nil
}

// unary := "not" unary | compare
func (p *parser) parseUnary() (Node, error) {
	if p.peek().kind == tokKeyword && p.peek().text == "not" {
		p.next()
		term, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Term: term}, nil
	}
	return p.parseCompare()
}

// compare := operand (cmpop operand)*
func (p *parser) parseCompare() (Node, error) {
	first, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	var ops []CmpOp
	operands := []Node{first}
	for p.peek().kind == tokCmp {
		t := p.next()
		rhs, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		ops = append(ops, t.op)
		operands = append(operands, rhs)
	}
	if len(ops) == 0 {
		return first, nil
	}
	return Compare{Operands: operands, Ops: ops}, nil
}

// operand := NAME | NUMBER | STRING | BOOL | "(" expr ")"
func (p *parser) parseOperand() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		// A name directly followed by "(" is a call, which the
		// whitelist excludes.
		if p.peek().kind == tokLParen {
			return nil, fmt.Errorf("%w: function call %q", ErrUnsupportedConstruct, t.text)
		}
		return FieldRef{Name: t.text}, nil
	case tokNumber:
		return Literal{Value: t.num}, nil
	case tokString:
		return Literal{Value: t.text}, nil
	case tokBool:
		return Literal{Value: t.text == "true"}, nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrInvalidSyntax)
		}
		p.next()
		return inner, nil
	case tokUnsupported:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedConstruct, t.text)
	case tokEOF:
		return nil, fmt.Errorf("%w: unexpected end of condition", ErrInvalidSyntax)
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidSyntax, t.text)
	}
}
