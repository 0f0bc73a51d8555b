package cypher

import (
	"context"

	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// SizePatternDescription is the change log entry for a size((pattern)) rewrite.
const SizePatternDescription = "Rewrote size((pattern)) → COUNT { }"

// SizePatternRule rewrites size((pattern)) to a COUNT subquery where the
// version deprecates it, and allows it where it is the native form.
type SizePatternRule struct{}

// GetType returns the rule type
func (*SizePatternRule) GetType() rules.Type { return rules.TypeSizePattern }

// Priority returns the rule priority
func (*SizePatternRule) Priority() int { return 50 }

// Check rewrites deprecated pattern counts
func (*SizePatternRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	sp, ok := checkCtx.Construct.(*types.SizePatternCall)
	if !ok {
		return nil, nil
	}
	if !checkCtx.Adapter.IsDeprecated(sp) {
		return &types.Allow{}, nil
	}
	replacement, ok := checkCtx.Adapter.RewriteHint(sp, checkCtx.Render(sp.Pattern))
	if !ok {
		return &types.Allow{}, nil
	}
	lead, trail := commentsAround(checkCtx.Tokens, sp.Range, sp.Pattern)
	return &types.Rewrite{Replacement: lead + replacement + trail, Description: SizePatternDescription}, nil
}
