// Package advisor is the policy engine: it runs the rule table over the
// constructs of a query and decides, per construct, to allow, reject or
// rewrite it.
package advisor

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/emitter"
	"github.com/nsxbet/cypher-guard/pkg/lexer"
	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// Engine evaluates constructs against an ordered rule table for one
// configuration. It holds no per-query state and is safe for concurrent use.
type Engine struct {
	rules   []rules.Rule
	config  types.Config
	adapter dialect.Adapter
}

// NewEngine builds an engine over the rules of registry. An empty registry
// is a configuration fault: without rules every construct would be allowed.
func NewEngine(registry *rules.Registry, cfg types.Config) (*Engine, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, errors.New("advisor: no rules registered")
	}
	adapter, err := dialect.For(cfg.Version)
	if err != nil {
		return nil, errors.Wrap(err, "advisor: invalid configuration")
	}
	return &Engine{
		rules:   registry.Ordered(),
		config:  cfg.Clone(),
		adapter: adapter,
	}, nil
}

// Adapter returns the version adapter the engine consults.
func (e *Engine) Adapter() dialect.Adapter {
	return e.adapter
}

// Decide returns one decision per construct, index-aligned with constructs,
// and the first rejection if any.
//
// Constructs nested inside another are decided before it, otherwise
// constructs are decided in span order. Evaluation stops at the first
// rejection; the decisions of constructs not reached are left nil. Rewrite
// replacements of enclosing constructs embed the rewritten text of the
// constructs nested inside them.
//
// constructs must be ordered as matcher.Scan returns them. An error is only
// returned when a rule fails.
func (e *Engine) Decide(ctx context.Context, tokens []lexer.Token, constructs []types.Construct) ([]types.Decision, *types.Reject, error) {
	decisions := make([]types.Decision, len(constructs))
	var edits []emitter.Edit

	render := func(span types.Span) string {
		return emitter.Splice(tokens, span, edits)
	}

	for _, idx := range postOrder(constructs) {
		c := constructs[idx]
		decision, err := e.decideOne(ctx, rules.Context{
			Construct: c,
			Tokens:    tokens,
			Config:    e.config,
			Adapter:   e.adapter,
			Render:    render,
		})
		if err != nil {
			return decisions, nil, err
		}
		decisions[idx] = decision

		switch d := decision.(type) {
		case *types.Reject:
			return decisions, d, nil
		case *types.Rewrite:
			edits = append(edits, emitter.Edit{Span: c.Span(), Replacement: d.Replacement, Description: d.Description})
		}
	}
	return decisions, nil, nil
}

// decideOne applies the first rule with an opinion; Allow otherwise.
func (e *Engine) decideOne(ctx context.Context, checkCtx rules.Context) (types.Decision, error) {
	for _, rule := range e.rules {
		decision, err := check(ctx, rule, checkCtx)
		if err != nil {
			return nil, err
		}
		if decision != nil {
			return decision, nil
		}
	}
	return &types.Allow{}, nil
}

// check runs one rule, turning a panic into an error.
func check(ctx context.Context, rule rules.Rule, checkCtx rules.Context) (decision types.Decision, err error) {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panicErr, ok := panicErr.(error)
			if !ok {
				panicErr = errors.Errorf("%v", panicErr)
			}
			err = errors.Errorf("rule check PANIC RECOVER, type: %v, err: %v", rule.GetType(), panicErr)
			slog.Error("rule check PANIC RECOVER", "type", rule.GetType(), "error", panicErr)
		}
	}()

	decision, err = rule.Check(ctx, checkCtx)
	if err != nil {
		return nil, errors.Wrapf(err, "rule %v failed", rule.GetType())
	}
	return decision, nil
}

// postOrder returns construct indices so that every construct comes after
// the constructs nested inside it, siblings in span order.
func postOrder(constructs []types.Construct) []int {
	order := make([]int, 0, len(constructs))
	var stack []int
	for i, c := range constructs {
		for len(stack) > 0 && !constructs[stack[len(stack)-1]].Span().Contains(c.Span()) {
			order = append(order, stack[len(stack)-1])
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, i)
	}
	for len(stack) > 0 {
		order = append(order, stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
	return order
}
