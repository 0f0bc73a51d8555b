// Package cypher holds the Cypher policy table. Importing it registers every
// rule with rules.DefaultRegistry.
package cypher

import (
	"github.com/nsxbet/cypher-guard/pkg/rules"
)

// init registers Cypher rules with the default registry
func init() {
	Register(rules.DefaultRegistry)
}

// Register adds every Cypher rule to r.
func Register(r *rules.Registry) {
	// Hard security boundary
	r.Register(&WriteDisallowRule{})

	// Procedure gating
	r.Register(&ApocDisallowRule{})
	r.Register(&ApocAllowSubsetRule{})
	r.Register(&ProcedureDisallowAdminRule{})
	r.Register(&ProcedureStrictRule{})

	// Version gating
	r.Register(&CountExplicitSubqueryRule{})
	r.Register(&CollectSubqueryRule{})

	// Rewrites
	r.Register(&SizePatternRule{})
	r.Register(&ApocCollToSetRule{})
}
