package cypher

import (
	"context"
	"fmt"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// ProcedureDisallowAdminRule rejects built-in procedures that administer the
// server or persist data, such as dbms.* or gds.*.write.
type ProcedureDisallowAdminRule struct{}

// GetType returns the rule type
func (*ProcedureDisallowAdminRule) GetType() rules.Type { return rules.TypeProcedureDisallowAdmin }

// Priority returns the rule priority
func (*ProcedureDisallowAdminRule) Priority() int { return 35 }

// Check rejects administrative procedures
func (*ProcedureDisallowAdminRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	p, ok := checkCtx.Construct.(*types.ProcedureCall)
	if !ok {
		return nil, nil
	}
	name := p.QualifiedName()
	if dialect.IsApoc(name) || !dialect.IsAdminProcedure(name) {
		return nil, nil
	}
	return &types.Reject{
		Kind:   types.ProcedureNotAllowed,
		Detail: fmt.Sprintf("procedure %s administers the server or writes data", name),
	}, nil
}
