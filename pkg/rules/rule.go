package rules

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/lexer"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// Type is the identifier of a policy rule.
type Type string

const (
	// TypeWriteDisallow rejects every write clause.
	TypeWriteDisallow Type = "write.disallow"
	// TypeApocDisallow rejects APOC calls when APOC is disabled.
	TypeApocDisallow Type = "apoc.disallow"
	// TypeApocAllowSubset rejects APOC calls outside the read-only subset.
	TypeApocAllowSubset Type = "apoc.allow-subset"
	// TypeProcedureDisallowAdmin rejects administrative and writing procedures.
	TypeProcedureDisallowAdmin Type = "procedure.disallow-admin"
	// TypeProcedureStrict rejects CALLed procedures outside the read-only list in strict mode.
	TypeProcedureStrict Type = "procedure.strict"
	// TypeCountExplicitSubquery rejects COUNT subqueries supplied by the caller.
	TypeCountExplicitSubquery Type = "count.explicit-subquery"
	// TypeCollectSubquery gates COLLECT subqueries by version.
	TypeCollectSubquery Type = "collect.subquery"
	// TypeSizePattern rewrites size((pattern)) where the version deprecates it.
	TypeSizePattern Type = "size.pattern"
	// TypeApocCollToSet rewrites apoc.coll.toSet to built-in list deduplication.
	TypeApocCollToSet Type = "apoc.coll.to-set"
)

// Context is what a rule sees of one construct.
type Context struct {
	Construct types.Construct
	Tokens    []lexer.Token
	Config    types.Config
	Adapter   dialect.Adapter
	// Render returns the text of a token span with the rewrites already
	// decided for constructs nested inside it applied.
	Render func(span types.Span) string
}

// Text returns the verbatim source text of span.
func (c Context) Text(span types.Span) string {
	return lexer.Join(c.Tokens[span.Start:span.End])
}

// Rule defines the interface for policy rules
type Rule interface {
	// Check returns the rule's decision for the construct, or nil when the
	// rule does not apply to it.
	Check(ctx context.Context, checkCtx Context) (types.Decision, error)

	// GetType returns the rule type this implementation handles
	GetType() Type

	// Priority orders rules; lower values are consulted first.
	Priority() int
}

// Registry holds all registered rules
type Registry struct {
	mu    sync.RWMutex
	rules map[Type]Rule
}

// NewRegistry creates a new rule registry
func NewRegistry() *Registry {
	return &Registry{
		rules: make(map[Type]Rule),
	}
}

// Register registers a rule implementation.
// If Register is called twice with the same type or if rule is nil,
// it panics.
func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule == nil {
		panic("rules: Register rule is nil")
	}
	if _, dup := r.rules[rule.GetType()]; dup {
		panic(fmt.Sprintf("rules: Register called twice for rule %v", rule.GetType()))
	}
	r.rules[rule.GetType()] = rule
}

// Get retrieves a rule by type
func (r *Registry) Get(ruleType Type) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, exists := r.rules[ruleType]
	return rule, exists
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Ordered returns all registered rules sorted by priority, then type.
func (r *Registry) Ordered() []Rule {
	r.mu.RLock()
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() < out[j].Priority()
		}
		return out[i].GetType() < out[j].GetType()
	})
	return out
}

// Default global registry
var DefaultRegistry = NewRegistry()
