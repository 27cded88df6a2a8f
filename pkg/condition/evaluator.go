package condition

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Scope resolves variable paths during evaluation. domain.GameState satisfies it.
type Scope interface {
	Resolve(path []string) (any, bool)
}

// Eval evaluates a parsed expression.
// A variable missing from the scope is an error inside a comparison and false under a truthiness test.
func Eval(e Expr, scope Scope) (bool, error) {
	switch n := e.(type) {
	case *Logical:
		left, err := Eval(n.Left, scope)
		if err != nil {
			return false, err
		}
		switch n.Op {
		case "AND":
			if !left {
				return false, nil
			}
		case "OR":
			if left {
				return true, nil
			}
		default:
			return false, fmt.Errorf("unknown logical operator %q", n.Op)
		}
		return Eval(n.Right, scope)
	case *Not:
		v, err := Eval(n.Inner, scope)
		return !v && err == nil, err
	case *Truthy:
		if v, ok := n.Operand.(*Var); ok {
			val, found := scope.Resolve(v.Path)
			return found && truthy(val), nil
		}
		val, err := operandValue(n.Operand, scope)
		return truthy(val), err
	case *Compare:
		left, err := operandValue(n.Left, scope)
		if err != nil {
			return false, err
		}
		right, err := operandValue(n.Right, scope)
		if err != nil {
			return false, err
		}
		return compare(n.Op, left, right)
	default:
		return false, fmt.Errorf("unknown expression %T", e)
	}
}

func operandValue(op Operand, scope Scope) (any, error) {
	switch o := op.(type) {
	case *Literal:
		return o.Value, nil
	case *Var:
		val, ok := scope.Resolve(o.Path)
		if !ok {
			return nil, fmt.Errorf("variable %q not found", strings.Join(o.Path, "."))
		}
		return val, nil
	default:
		return nil, fmt.Errorf("unknown operand %T", op)
	}
}

// Evaluator implements ports.ConditionEvaluator. Parsed expressions are cached by source text.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]Expr
}

// NewEvaluator creates an Evaluator with an empty cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]Expr)}
}

// Evaluate reports whether cond holds for state. An empty condition always holds.
func (ev *Evaluator) Evaluate(ctx context.Context, cond domain.Condition, state domain.GameState) (bool, error) {
	if cond.Always() {
		return true, nil
	}
	e, err := ev.compile(cond.Expression)
	if err != nil {
		return false, err
	}
	if state == nil {
		state = domain.GameState{}
	}
	return Eval(e, state)
}

func (ev *Evaluator) compile(src string) (Expr, error) {
	ev.mu.RLock()
	e, ok := ev.cache[src]
	ev.mu.RUnlock()
	if ok {
		return e, nil
	}

	e, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", src, err)
	}
	ev.mu.Lock()
	ev.cache[src] = e
	ev.mu.Unlock()
	return e, nil
}

// Check reports whether src parses. The empty string is accepted.
func Check(src string) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	_, err := Parse(src)
	return err
}
