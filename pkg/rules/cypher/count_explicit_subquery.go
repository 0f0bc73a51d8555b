package cypher

import (
	"context"

	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// CountExplicitSubqueryRule rejects COUNT subqueries in caller input. The
// only COUNT subquery accepted is the canonical form produced by rewriting
// size((pattern)), so rewritten output passes a second check unchanged.
type CountExplicitSubqueryRule struct{}

// GetType returns the rule type
func (*CountExplicitSubqueryRule) GetType() rules.Type { return rules.TypeCountExplicitSubquery }

// Priority returns the rule priority
func (*CountExplicitSubqueryRule) Priority() int { return 40 }

// Check rejects explicit COUNT subqueries
func (*CountExplicitSubqueryRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	c, ok := checkCtx.Construct.(*types.CountSubquery)
	if !ok {
		return nil, nil
	}
	if !checkCtx.Adapter.IsSupported(c) {
		return &types.Reject{
			Kind:   types.ExplicitCountSubqueryNotAllowed,
			Detail: "COUNT { } is not valid for " + checkCtx.Adapter.Version().String() + "; use size((pattern))",
		}, nil
	}
	if isCanonicalCount(checkCtx.Text(c.Range)) {
		return &types.Allow{}, nil
	}
	return &types.Reject{
		Kind:   types.ExplicitCountSubqueryNotAllowed,
		Detail: "explicit COUNT { } subqueries are not allowed; use size((pattern))",
	}, nil
}
