package condition

import (
	"fmt"
	"sync"

	"github.com/openhealth-tools/cardea/internal/domain"
)

// Evaluator parses and evaluates conditions against a context, caching
// parsed trees per distinct condition text. Conditions are immutable
// once loaded, so entries never need invalidation; evaluation itself is
// pure and safe for concurrent use.
type Evaluator struct {
	programs sync.Map // condition text -> program
}

type program struct {
	node Node
	err  error
}

// NewEvaluator creates an evaluator with an empty parse cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate parses conditionText (or reuses a cached parse) and
// evaluates it against ctx. Errors follow the package taxonomy:
// ErrInvalidSyntax, ErrUnknownField, ErrUnsupportedConstruct.
func (e *Evaluator) Evaluate(conditionText string, ctx domain.Context) (bool, error) {
	prog := e.compile(conditionText)
	if prog.err != nil {
		return false, prog.err
	}
	v, err := evalNode(prog.node, ctx)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// Matches is the fail-closed form of Evaluate: any parse or evaluation
// error counts as "condition did not match". Scoring and advice loops
// call this so one malformed row can never abort a whole category.
func (e *Evaluator) Matches(conditionText string, ctx domain.Context) bool {
	ok, err := e.Evaluate(conditionText, ctx)
	return err == nil && ok
}

// CachedPrograms returns the number of distinct conditions parsed so
// far, including ones that failed to parse.
func (e *Evaluator) CachedPrograms() int {
	n := 0
	e.programs.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (e *Evaluator) compile(text string) program {
	if cached, ok := e.programs.Load(text); ok {
		return cached.(program)
	}
	node, err := Parse(text)
	prog := program{node: node, err: err}
	// Concurrent first parses of the same text race benignly; the
	// result is identical either way.
	e.programs.Store(text, prog)
	return prog
}

// evalNode walks the tree, producing a scalar for operand nodes and a
// bool for boolean nodes. It never mutates ctx.
func evalNode(n Node, ctx domain.Context) (any, error) {
	switch v := n.(type) {
	case Literal:
		return v.Value, nil

	case FieldRef:
		val, ok := ctx[v.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, v.Name)
		}
		return val, nil

	case Compare:
		// Chained comparison: every pairwise check must hold, left
		// to right, the right operand carrying over.
		left, err := evalNode(v.Operands[0], ctx)
		if err != nil {
			return nil, err
		}
		for i, op := range v.Ops {
			right, err := evalNode(v.Operands[i+1], ctx)
			if err != nil {
				return nil, err
			}
			ok, err := compare(op, left, right)
			if err != nil {
				return nil, err
			}
			if !ok {
				return false, nil
			}
			left = right
		}
		return true, nil

	case And:
		for _, t := range v.Terms {
			val, err := evalNode(t, ctx)
			if err != nil {
				return nil, err
			}
			if !truthy(val) {
				return false, nil
			}
		}
		return true, nil

	case Or:
		for _, t := range v.Terms {
			val, err := evalNode(t, ctx)
			if err != nil {
				return nil, err
			}
			if truthy(val) {
				return true, nil
			}
		}
		return false, nil

	case Not:
		val, err := evalNode(v.Term, ctx)
		if err != nil {
			return nil, err
		}
		return !truthy(val), nil

	default:
		return nil, fmt.Errorf("%w: unknown node %T", ErrUnsupportedConstruct, n)
	}
}

// compare applies one comparison operator. Numerics (including bools,
// which compare as 0/1) compare numerically; strings compare by value
// for equality only. Ordering across non-numeric or mixed types is
// outside the whitelist.
func compare(op CmpOp, left, right any) (bool, error) {
	lf, lok := domain.AsFloat(left)
	rf, rok := domain.AsFloat(right)
	if lok && rok {
		switch op {
		case OpLT:
			return lf < rf, nil
		case OpLE:
			return lf <= rf, nil
		case OpGT:
			return lf > rf, nil
		case OpGE:
			return lf >= rf, nil
		case OpEQ:
			return lf == rf, nil
		case OpNE:
			return lf != rf, nil
		}
	}

	if op == OpEQ || op == OpNE {
		ls, lIsStr := left.(string)
		rs, rIsStr := right.(string)
		if lIsStr && rIsStr {
			if op == OpEQ {
				return ls == rs, nil
			}
			return ls != rs, nil
		}
		// Mixed types are simply unequal.
		return op == OpNE, nil
	}

	return false, fmt.Errorf("%w: ordering comparison %q on non-numeric value", ErrUnsupportedConstruct, op.String())
}

// truthy coerces a scalar to bool: non-zero numbers, non-empty strings,
// and true are truthy.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	default:
		f, ok := domain.AsFloat(v)
		return ok && f != 0
	}
}
