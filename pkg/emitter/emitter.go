// Package emitter builds the output query from the original tokens and the
// policy decisions taken on the constructs recognized in them.
package emitter

import (
	"sort"
	"strings"

	"github.com/nsxbet/cypher-guard/pkg/lexer"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// Edit is a decided replacement of a token span.
type Edit struct {
	Span        types.Span
	Replacement string
	Description string
}

// Edits collects the Rewrite decisions, index-aligned with constructs, ordered
// by span start with enclosing edits first.
func Edits(constructs []types.Construct, decisions []types.Decision) []Edit {
	var edits []Edit
	for i, d := range decisions {
		rw, ok := d.(*types.Rewrite)
		if !ok || i >= len(constructs) {
			continue
		}
		edits = append(edits, Edit{
			Span:        constructs[i].Span(),
			Replacement: rw.Replacement,
			Description: rw.Description,
		})
	}
	sortEdits(edits)
	return edits
}

func sortEdits(edits []Edit) {
	sort.SliceStable(edits, func(a, b int) bool {
		if edits[a].Span.Start != edits[b].Span.Start {
			return edits[a].Span.Start < edits[b].Span.Start
		}
		return edits[a].Span.End > edits[b].Span.End
	})
}

// Splice returns the text of tokens[span], substituting the outermost edits
// that lie within span. Edits must be properly nested or disjoint.
func Splice(tokens []lexer.Token, span types.Span, edits []Edit) string {
	inside := make([]Edit, 0, len(edits))
	for _, e := range edits {
		if span.Contains(e.Span) && e.Span.Len() > 0 {
			inside = append(inside, e)
		}
	}
	sortEdits(inside)

	var sb strings.Builder
	next := 0
	for i := span.Start; i < span.End; {
		for next < len(inside) && inside[next].Span.Start < i {
			next++
		}
		if next < len(inside) && inside[next].Span.Start == i {
			e := inside[next]
			sb.WriteString(e.Replacement)
			i = e.Span.End
			continue
		}
		sb.WriteString(tokens[i].Text)
		i++
	}
	return sb.String()
}

// Emit produces the output query and its change log. Regions not covered by
// a rewrite are copied verbatim. Every rewrite is logged in span order,
// including rewrites nested inside another, followed by a final
// "Query rewritten"; without rewrites the log is just "Query unchanged".
func Emit(src string, tokens []lexer.Token, constructs []types.Construct, decisions []types.Decision) (string, []string) {
	edits := Edits(constructs, decisions)
	if len(edits) == 0 {
		return src, []string{types.ChangeQueryUnchanged}
	}

	out := Splice(tokens, types.Span{Start: 0, End: len(tokens)}, edits)
	changes := make([]string, 0, len(edits)+1)
	for _, e := range edits {
		changes = append(changes, e.Description)
	}
	changes = append(changes, types.ChangeQueryRewritten)
	return out, changes
}
