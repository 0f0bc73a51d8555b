package cypher

import (
	"context"

	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// CollectSubqueryRule rejects COLLECT subqueries where the version lacks
// them, and bodies that return without matching anything.
type CollectSubqueryRule struct{}

// GetType returns the rule type
func (*CollectSubqueryRule) GetType() rules.Type { return rules.TypeCollectSubquery }

// Priority returns the rule priority
func (*CollectSubqueryRule) Priority() int { return 45 }

// Check validates COLLECT subqueries
func (*CollectSubqueryRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	c, ok := checkCtx.Construct.(*types.CollectSubquery)
	if !ok {
		return nil, nil
	}
	if !checkCtx.Adapter.IsSupported(c) {
		return &types.Reject{
			Kind:   types.UnsupportedVersionConstruct,
			Detail: "COLLECT { } is not valid for " + checkCtx.Adapter.Version().String(),
		}, nil
	}
	first, ok := firstSignificant(checkCtx.Tokens, c.Body)
	if !ok {
		return &types.Reject{Kind: types.MalformedQuery, Detail: "empty COLLECT { } subquery"}, nil
	}
	if first.IsKeyword("RETURN") {
		return &types.Reject{Kind: types.MalformedQuery, Detail: "COLLECT { } subquery must start with MATCH, not RETURN"}, nil
	}
	return nil, nil
}
