package types

import (
	"fmt"
	"strings"
)

// Decision is the policy outcome for one construct: Allow, Reject or
// Rewrite.
type Decision interface {
	isDecision()
}

// Allow leaves the construct untouched.
type Allow struct{}

// Reject aborts the whole rewrite.
type Reject struct {
	Kind   ErrorKind
	Detail string
}

// Rewrite replaces the construct's span with Replacement.
type Rewrite struct {
	Replacement string
	Description string
}

func (*Allow) isDecision()   {}
func (*Reject) isDecision()  {}
func (*Rewrite) isDecision() {}

// Result is the outcome of a rewrite call: *Accepted or *Rejected.
type Result interface {
	isResult()
}

// Accepted carries the policy-compliant query and its change log.
type Accepted struct {
	Query   string   `json:"query"   yaml:"query"`
	Changes []string `json:"changes" yaml:"changes"`
}

// Rejected carries the reason a query was refused. It doubles as an error
// for callers that prefer error returns.
type Rejected struct {
	Kind   ErrorKind `json:"kind"   yaml:"kind"`
	Detail string    `json:"detail" yaml:"detail"`
}

func (*Accepted) isResult() {}
func (*Rejected) isResult() {}

// Error implements error.
func (r *Rejected) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("query rejected: %s", r.Kind)
	}
	return fmt.Sprintf("query rejected: %s: %s", r.Kind, r.Detail)
}

// Unchanged reports whether the accepted query is identical to its input.
func (a *Accepted) Unchanged() bool {
	return len(a.Changes) == 1 && a.Changes[0] == ChangeQueryUnchanged
}

// String returns the change log as a single line.
func (a *Accepted) String() string {
	return strings.Join(a.Changes, "; ")
}

// Change log entries shared by the emitter and callers.
const (
	ChangeQueryUnchanged = "Query unchanged"
	ChangeQueryRewritten = "Query rewritten"
)
