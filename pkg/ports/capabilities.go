package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// ConditionEvaluator decides whether a node's condition holds against the game state.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, cond domain.Condition, state domain.GameState) (bool, error)
}

// ActionInvoker fires the side effect of a visited node. Invocation is fire-and-forget:
// an implementation may schedule asynchronous work and return immediately.
// The returned error only reports dispatch failures (e.g. unknown action).
type ActionInvoker interface {
	Invoke(ctx context.Context, action domain.Action) error
}

// ConditionFunc adapts a function to ConditionEvaluator.
type ConditionFunc func(ctx context.Context, cond domain.Condition, state domain.GameState) (bool, error)

func (f ConditionFunc) Evaluate(ctx context.Context, cond domain.Condition, state domain.GameState) (bool, error) {
	return f(ctx, cond, state)
}

// ActionFunc adapts a function to ActionInvoker.
type ActionFunc func(ctx context.Context, action domain.Action) error

func (f ActionFunc) Invoke(ctx context.Context, action domain.Action) error {
	return f(ctx, action)
}
