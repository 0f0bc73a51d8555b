package cypher

import (
	"context"
	"fmt"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// ApocDisallowRule rejects any APOC call while APOC is disabled.
type ApocDisallowRule struct{}

// GetType returns the rule type
func (*ApocDisallowRule) GetType() rules.Type { return rules.TypeApocDisallow }

// Priority returns the rule priority
func (*ApocDisallowRule) Priority() int { return 20 }

// Check rejects APOC procedure calls when APOC is disabled
func (*ApocDisallowRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	p, ok := checkCtx.Construct.(*types.ProcedureCall)
	if !ok || checkCtx.Config.AllowApoc || !dialect.IsApoc(p.QualifiedName()) {
		return nil, nil
	}
	return &types.Reject{
		Kind:   types.ApocNotAllowed,
		Detail: fmt.Sprintf("APOC procedure %s is not allowed", p.QualifiedName()),
	}, nil
}
