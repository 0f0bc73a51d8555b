package cypher

import (
	"context"
	"fmt"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/rules"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// ProcedureStrictRule closes the procedure surface in strict mode: only the
// read-only built-in procedures may be CALLed. APOC calls are governed by
// the APOC rules.
type ProcedureStrictRule struct{}

// GetType returns the rule type
func (*ProcedureStrictRule) GetType() rules.Type { return rules.TypeProcedureStrict }

// Priority returns the rule priority
func (*ProcedureStrictRule) Priority() int { return 36 }

// Check rejects unknown CALLed procedures in strict mode
func (*ProcedureStrictRule) Check(_ context.Context, checkCtx rules.Context) (types.Decision, error) {
	p, ok := checkCtx.Construct.(*types.ProcedureCall)
	if !ok || !checkCtx.Config.Strict || !p.ViaCall {
		return nil, nil
	}
	name := p.QualifiedName()
	if dialect.IsApoc(name) || dialect.IsReadOnlyProcedure(name) {
		return nil, nil
	}
	return &types.Reject{
		Kind:   types.ProcedureNotAllowed,
		Detail: fmt.Sprintf("procedure %s is not on the read-only procedure list", name),
	}, nil
}
