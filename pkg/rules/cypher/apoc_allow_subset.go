package cypher

import (
	"context"
	"fmt"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// ApocAllowSubsetRule restricts enabled APOC to its read-only subset.
// Write-capable procedures stay rejected even when a custom allow list
// names them.
type ApocAllowSubsetRule struct{}

// GetType returns the rule type
func (*ApocAllowSubsetRule) GetType() rules.Type { return rules.TypeApocAllowSubset }

// Priority returns the rule priority
func (*ApocAllowSubsetRule) Priority() int { return 30 }

// Check rejects APOC procedures outside the allow list
func (*ApocAllowSubsetRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	p, ok := checkCtx.Construct.(*types.ProcedureCall)
	if !ok {
		return nil, nil
	}
	name := p.QualifiedName()
	if !checkCtx.Config.AllowApoc || !dialect.IsApoc(name) {
		return nil, nil
	}

	allowList := checkCtx.Config.ApocAllowList
	if len(allowList) == 0 {
		allowList = dialect.DefaultApocAllowList
	}
	switch {
	case dialect.IsApocWrite(name):
		return &types.Reject{
			Kind:   types.UnsafeApocProcedure,
			Detail: fmt.Sprintf("APOC procedure %s can modify data", name),
		}, nil
	case !dialect.InAllowList(name, allowList):
		return &types.Reject{
			Kind:   types.UnsafeApocProcedure,
			Detail: fmt.Sprintf("APOC procedure %s is not on the read-only allow list", name),
		}, nil
	}
	return nil, nil
}
