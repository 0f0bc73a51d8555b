package types

// Span is a half-open range [Start, End) of token indices into the token
// stream a construct was recognized in.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end"   yaml:"end"`
}

// Len returns the number of tokens in the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && o.End <= s.End
}

// StrictlyContains reports whether o lies within s and is not s itself.
func (s Span) StrictlyContains(o Span) bool {
	return s.Contains(o) && (s.Start != o.Start || s.End != o.End)
}

// ConstructKind names the shape of a recognized construct.
type ConstructKind int

const (
	ConstructKind_UNSPECIFIED ConstructKind = iota
	ConstructKind_FUNCTION_CALL
	ConstructKind_WRITE_CLAUSE
	ConstructKind_PROCEDURE_CALL
	ConstructKind_COUNT_SUBQUERY
	ConstructKind_COLLECT_SUBQUERY
	ConstructKind_SIZE_PATTERN_CALL
)

func (k ConstructKind) String() string {
	switch k {
	case ConstructKind_FUNCTION_CALL:
		return "FunctionCall"
	case ConstructKind_WRITE_CLAUSE:
		return "WriteClause"
	case ConstructKind_PROCEDURE_CALL:
		return "ProcedureCall"
	case ConstructKind_COUNT_SUBQUERY:
		return "CountSubquery"
	case ConstructKind_COLLECT_SUBQUERY:
		return "CollectSubquery"
	case ConstructKind_SIZE_PATTERN_CALL:
		return "SizePatternCall"
	default:
		return "Unspecified"
	}
}

// Construct is a syntactic shape recognized in a token stream. The set of
// implementations is closed: FunctionCall, WriteClause, ProcedureCall,
// CountSubquery, CollectSubquery and SizePatternCall.
//
// A construct only refers back into the token stream; the stream stays the
// single source of truth for the query text.
type Construct interface {
	// Span covers every token of the construct.
	Span() Span
	Kind() ConstructKind
	isConstruct()
}

// FunctionCall is a plain call such as size($list).
type FunctionCall struct {
	Name string
	// Args covers the tokens between the parentheses.
	Args  Span
	Range Span
}

// WriteClause is a mutating clause such as CREATE or DETACH DELETE.
type WriteClause struct {
	Keyword string
	Range   Span
}

// ProcedureCall is a namespaced call such as apoc.coll.toSet(x) or
// CALL db.labels().
type ProcedureCall struct {
	// Namespace is every segment but the last, e.g. "apoc.coll".
	Namespace string
	// Procedure is the last segment, e.g. "toSet".
	Procedure string
	// Args covers the tokens between the parentheses; empty when the call
	// has no parentheses.
	Args Span
	// ViaCall is set when the call follows a CALL keyword.
	ViaCall bool
	// ArgCount is the number of top-level comma separated arguments.
	ArgCount int
	Range    Span
}

// QualifiedName returns namespace.procedure.
func (p *ProcedureCall) QualifiedName() string {
	if p.Namespace == "" {
		return p.Procedure
	}
	return p.Namespace + "." + p.Procedure
}

// CountSubquery is COUNT { ... }.
type CountSubquery struct {
	// Body covers the tokens between the braces.
	Body  Span
	Range Span
}

// CollectSubquery is COLLECT { ... }.
type CollectSubquery struct {
	Body  Span
	Range Span
}

// SizePatternCall is size((pattern)), a pattern count.
type SizePatternCall struct {
	// Pattern covers the tokens of the pattern argument.
	Pattern Span
	Range   Span
}

func (c *FunctionCall) Span() Span    { return c.Range }
func (c *WriteClause) Span() Span     { return c.Range }
func (c *ProcedureCall) Span() Span   { return c.Range }
func (c *CountSubquery) Span() Span   { return c.Range }
func (c *CollectSubquery) Span() Span { return c.Range }
func (c *SizePatternCall) Span() Span { return c.Range }

func (*FunctionCall) Kind() ConstructKind    { return ConstructKind_FUNCTION_CALL }
func (*WriteClause) Kind() ConstructKind     { return ConstructKind_WRITE_CLAUSE }
func (*ProcedureCall) Kind() ConstructKind   { return ConstructKind_PROCEDURE_CALL }
func (*CountSubquery) Kind() ConstructKind   { return ConstructKind_COUNT_SUBQUERY }
func (*CollectSubquery) Kind() ConstructKind { return ConstructKind_COLLECT_SUBQUERY }
func (*SizePatternCall) Kind() ConstructKind { return ConstructKind_SIZE_PATTERN_CALL }

func (*FunctionCall) isConstruct()    {}
func (*WriteClause) isConstruct()     {}
func (*ProcedureCall) isConstruct()   {}
func (*CountSubquery) isConstruct()   {}
func (*CollectSubquery) isConstruct() {}
func (*SizePatternCall) isConstruct() {}
