package engine

import (
	"fmt"

	"github.com/comalice/hsm/internal/callback"
	"github.com/comalice/hsm/internal/guard"
)

// compiledGuard evaluates a transition's guard against a microstep context.
// A nil Guard spec always holds.
type compiledGuard func(ctx *callback.Context) (bool, error)

// compileGuard turns a tree.GuardSpec into a compiledGuard once, at machine
// construction time, so guard evaluation during selection never re-parses
// an expression or re-inspects a callable's signature. Three shapes are
// accepted: nil (always true), a boolean-expression string resolved via
// internal/guard against reg's guard lookups, or an arbitrary callable
// (adapted via internal/callback.Wrap and coerced to bool).
func compileGuard(spec any, reg *callback.Registry) (compiledGuard, error) {
	if spec == nil {
		return func(*callback.Context) (bool, error) { return true, nil }, nil
	}
	if expr, ok := spec.(string); ok {
		lookup := func(name string) (guard.Predicate, bool) {
			p, ok := reg.ResolveGuardPredicate(name)
			return p, ok
		}
		pred, err := guard.Parse(expr, lookup)
		if err != nil {
			return nil, fmt.Errorf("guard: %w", err)
		}
		return func(ctx *callback.Context) (bool, error) { return pred(ctx.KwargsOrEmpty()), nil }, nil
	}
	if pred, ok := spec.(guard.Predicate); ok {
		return func(ctx *callback.Context) (bool, error) { return pred(ctx.KwargsOrEmpty()), nil }, nil
	}
	adapter, err := callback.Wrap(spec)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}
	return adapter.CallBool, nil
}
