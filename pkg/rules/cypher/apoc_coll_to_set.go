package cypher

import (
	"context"

	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// ApocToNativeDescription is the change log entry for an APOC function
// replaced by built-in Cypher.
const ApocToNativeDescription = "Rewrote APOC to native Cypher"

// ApocCollToSetRule replaces apoc.coll.toSet(list) with built-in list
// deduplication. It only sees calls the APOC rules let through.
type ApocCollToSetRule struct{}

// GetType returns the rule type
func (*ApocCollToSetRule) GetType() rules.Type { return rules.TypeApocCollToSet }

// Priority returns the rule priority
func (*ApocCollToSetRule) Priority() int { return 60 }

// Check rewrites apoc.coll.toSet
func (*ApocCollToSetRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	p, ok := checkCtx.Construct.(*types.ProcedureCall)
	if !ok {
		return nil, nil
	}
	replacement, ok := checkCtx.Adapter.RewriteHint(p, checkCtx.Render(trimSpan(checkCtx.Tokens, p.Args)))
	if !ok {
		return nil, nil
	}
	return &types.Rewrite{Replacement: replacement, Description: ApocToNativeDescription}, nil
}
