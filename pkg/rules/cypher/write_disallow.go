package cypher

import (
	"context"
	"fmt"

	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// WriteDisallowRule rejects every write clause. It is not configurable.
type WriteDisallowRule struct{}

// GetType returns the rule type
func (*WriteDisallowRule) GetType() rules.Type { return rules.TypeWriteDisallow }

// Priority returns the rule priority
func (*WriteDisallowRule) Priority() int { return 10 }

// Check rejects write clauses
func (*WriteDisallowRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	w, ok := checkCtx.Construct.(*types.WriteClause)
	if !ok {
		return nil, nil
	}
	return &types.Reject{
		Kind:   types.WriteNotAllowed,
		Detail: fmt.Sprintf("%s is a write operation and is not allowed", w.Keyword),
	}, nil
}
