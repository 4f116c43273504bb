package flow

import (
	"context"
	"fmt"

	"github.com/foro-dev/foro/internal/rules"
)

// LeafRunner dispatches a single Command leaf against ctx, returning the
// updated context. It is implemented twice: once for rules.PureCommand and
// once for rules.WriteCommand (pure.go and write.go respectively).
type LeafRunner[T any] func(ctx context.Context, env *Env, cur Context, leaf T) (Context, error)

// Eval walks flow, threading cur forward, and returns the final context.
// This is the generic evaluator instantiated over both leaf command types
// (spec.md §4.3).
func Eval[T any](ctx context.Context, env *Env, flow *rules.CommandFlow[T], cur Context, runLeaf LeafRunner[T]) (Context, error) {
	switch {
	case flow.Sequential != nil:
		result := cur
		for i := range flow.Sequential {
			var err error
			result, err = Eval(ctx, env, &flow.Sequential[i], result, runLeaf)
			if err != nil {
				return nil, err
			}
		}
		return result, nil

	case flow.Set != nil:
		result := cur.Clone()
		for key, exprStr := range flow.Set {
			value, err := EvalExpr(exprStr, result)
			if err != nil {
				return nil, fmt.Errorf("flow: Set %q: %w", key, err)
			}
			result[key] = value
		}
		return result, nil

	case flow.If != nil:
		runResult, err := Eval(ctx, env, flow.If.Run, cur, runLeaf)
		if err != nil {
			return nil, err
		}
		branch, err := EvalCond(flow.If.Cond, runResult)
		if err != nil {
			return nil, fmt.Errorf("flow: If cond: %w", err)
		}
		if branch {
			return Eval(ctx, env, flow.If.OnTrue, runResult, runLeaf)
		}
		return Eval(ctx, env, flow.If.OnFalse, runResult, runLeaf)

	case flow.Command != nil:
		return runLeaf(ctx, env, cur, *flow.Command)

	default:
		return nil, fmt.Errorf("flow: empty command-flow node")
	}
}
