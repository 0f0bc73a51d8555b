package cypher

import (
	"strings"

	"github.com/nsxbet/cypher-guard/pkg/lexer"
	"github.com/nsxbet/cypher-guard/pkg/matcher"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// trimSpan narrows span to its first and last significant tokens.
func trimSpan(tokens []lexer.Token, span types.Span) types.Span {
	start, end := span.Start, span.End
	for start < end && tokens[start].IsTrivia() {
		start++
	}
	for end > start && tokens[end-1].IsTrivia() {
		end--
	}
	return types.Span{Start: start, End: end}
}

// firstSignificant returns the first non-trivia token inside span.
func firstSignificant(tokens []lexer.Token, span types.Span) (lexer.Token, bool) {
	trimmed := trimSpan(tokens, span)
	if trimmed.Len() == 0 {
		return lexer.Token{}, false
	}
	return tokens[trimmed.Start], true
}

// isCanonicalCount reports whether text is exactly what a size((pattern))
// rewrite produces: "COUNT { " + pattern + " }" with a single relationship
// pattern.
func isCanonicalCount(text string) bool {
	inner, ok := strings.CutPrefix(text, "COUNT { ")
	if !ok {
		return false
	}
	inner, ok = strings.CutSuffix(inner, " }")
	if !ok || inner == "" || strings.TrimSpace(inner) != inner {
		return false
	}

	tokens, err := lexer.Tokenize("size(" + inner + ")")
	if err != nil {
		return false
	}
	constructs, err := matcher.Scan(tokens, types.Config{Version: types.Version_V5})
	if err != nil || len(constructs) == 0 {
		return false
	}
	sp, ok := constructs[0].(*types.SizePatternCall)
	return ok && sp.Range.Start == 0 && sp.Range.End == len(tokens)
}

// commentsAround renders the comments of outer that fall outside inner, so
// a rewrite of outer can carry them: lead goes before the replacement and
// trail after it. Line comments keep their terminating newline.
func commentsAround(tokens []lexer.Token, outer, inner types.Span) (lead, trail string) {
	var lb, tb strings.Builder
	for i := outer.Start; i < outer.End; i++ {
		t := tokens[i]
		if t.Kind != lexer.Comment {
			continue
		}
		line := strings.HasPrefix(t.Text, "//")
		switch {
		case i < inner.Start:
			lb.WriteString(t.Text)
			if line {
				lb.WriteString("\n")
			} else {
				lb.WriteString(" ")
			}
		case i >= inner.End:
			tb.WriteString(" ")
			tb.WriteString(t.Text)
			if line {
				tb.WriteString("\n")
			}
		}
	}
	return lb.String(), tb.String()
}
