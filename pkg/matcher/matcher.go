// Package matcher recognizes the syntactic shapes the safety policy acts on
// (write clauses, procedure calls, pattern counts and subqueries) in a token
// stream, without building a full syntax tree.
//
// Only keyword, identifier, operator and bracket tokens are considered, so
// text inside strings and comments can never be mistaken for a clause.
package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nsxbet/cypher-guard/pkg/dialect"
	"github.com/nsxbet/cypher-guard/pkg/lexer"
	"github.com/nsxbet/cypher-guard/pkg/types"
)

// ScanError reports input that cannot be split into a coherent structure,
// such as unbalanced brackets.
type ScanError struct {
	Offset int
	Detail string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("malformed query at offset %d: %s", e.Offset, e.Detail)
}

// writeKeywords are the clause keywords that mutate data or administer the
// server.
var writeKeywords = map[string]bool{
	"CREATE":  true,
	"MERGE":   true,
	"DELETE":  true,
	"DETACH":  true,
	"SET":     true,
	"REMOVE":  true,
	"DROP":    true,
	"FOREACH": true,
	"LOAD":    true,
	"INSERT":  true,
	"ALTER":   true,
	"GRANT":   true,
	"REVOKE":  true,
	"DENY":    true,
	"RENAME":  true,

	"START":      true,
	"STOP":       true,
	"TERMINATE":  true,
	"ENABLE":     true,
	"DEALLOCATE": true,
	"REALLOCATE": true,
}

// adminTargets lists, for admin keywords that are also common variable
// names, the words that must follow for the keyword to start a command.
var adminTargets = map[string][]string{
	"START":      {"DATABASE"},
	"STOP":       {"DATABASE"},
	"TERMINATE":  {"TRANSACTION", "TRANSACTIONS"},
	"ENABLE":     {"SERVER"},
	"DEALLOCATE": {"DATABASE", "DATABASES"},
	"REALLOCATE": {"DATABASE", "DATABASES"},
}

// IsWriteKeyword reports whether word starts a write clause.
func IsWriteKeyword(word string) bool {
	return writeKeywords[strings.ToUpper(word)]
}

// scanner holds the state of one Scan call.
type scanner struct {
	tokens []lexer.Token
	cfg    types.Config
	// sig lists the indices of non-trivia tokens.
	sig []int
	// sigPos maps a token index to its position in sig, -1 for trivia.
	sigPos []int
	// pair maps each bracket token to its partner.
	pair []int
	// claimed marks tokens already consumed by a recognized construct.
	claimed []bool

	constructs []types.Construct
}

// Scan recognizes constructs in tokens. The result is ordered by span start,
// outer constructs before the constructs nested inside them.
//
// cfg is consulted only to classify CALLs of write-capable APOC procedures:
// with APOC disabled they are reported as write clauses.
func Scan(tokens []lexer.Token, cfg types.Config) ([]types.Construct, error) {
	s := &scanner{
		tokens:  tokens,
		cfg:     cfg,
		sigPos:  make([]int, len(tokens)),
		claimed: make([]bool, len(tokens)),
	}
	for i, t := range tokens {
		if t.Unterminated {
			return nil, &ScanError{Offset: t.Start, Detail: fmt.Sprintf("unterminated %s", strings.ToLower(t.Kind.String()))}
		}
		if t.IsTrivia() {
			s.sigPos[i] = -1
			continue
		}
		s.sigPos[i] = len(s.sig)
		s.sig = append(s.sig, i)
	}

	pair, err := matchBrackets(tokens)
	if err != nil {
		return nil, err
	}
	s.pair = pair

	for p := 0; p < len(s.sig); p++ {
		i := s.sig[p]
		if s.claimed[i] {
			continue
		}
		t := tokens[i]
		switch t.Kind {
		case lexer.Keyword:
			s.keyword(p)
		case lexer.Identifier:
			s.identifier(p)
		}
	}

	sort.SliceStable(s.constructs, func(a, b int) bool {
		sa, sb := s.constructs[a].Span(), s.constructs[b].Span()
		if sa.Start != sb.Start {
			return sa.Start < sb.Start
		}
		return sa.End > sb.End
	})
	return s.constructs, nil
}

// at returns the significant token at sig position p, or a zero token.
func (s *scanner) at(p int) (lexer.Token, int, bool) {
	if p < 0 || p >= len(s.sig) {
		return lexer.Token{}, -1, false
	}
	i := s.sig[p]
	return s.tokens[i], i, true
}

func (s *scanner) keyword(p int) {
	t, i, _ := s.at(p)
	word := strings.ToUpper(t.Text)

	switch {
	case writeKeywords[word]:
		s.writeClause(p)
	case word == "CALL":
		s.call(p)
	case word == "COUNT" || word == "COLLECT":
		next, ni, ok := s.at(p + 1)
		if !ok || next.Kind != lexer.OpenBrace {
			return
		}
		closing := s.pair[ni]
		body := types.Span{Start: ni + 1, End: closing}
		rng := types.Span{Start: i, End: closing + 1}
		if word == "COUNT" {
			s.add(&types.CountSubquery{Body: body, Range: rng})
		} else {
			s.add(&types.CollectSubquery{Body: body, Range: rng})
		}
	}
}

// writeClause records a write keyword found at a clause position. A keyword
// used as a property key, label or relationship type is not a clause.
func (s *scanner) writeClause(p int) {
	t, i, _ := s.at(p)
	if prev, _, ok := s.at(p - 1); ok && (prev.IsOperator(".") || prev.IsOperator(":") || prev.IsOperator("::")) {
		return
	}
	next, ni, hasNext := s.at(p + 1)
	if hasNext && next.IsOperator(":") {
		return
	}

	word := strings.ToUpper(t.Text)
	end := i + 1
	if targets, ok := adminTargets[word]; ok {
		if !hasNext || !isOneOf(next.Name(), targets) {
			return
		}
		word += " " + strings.ToUpper(next.Name())
		end = ni + 1
		s.claimed[ni] = true
	}
	switch {
	case word == "DETACH" && hasNext && next.IsKeyword("DELETE"):
		word = "DETACH DELETE"
		end = ni + 1
		s.claimed[ni] = true
	case word == "LOAD" && hasNext && next.IsKeyword("CSV"):
		word = "LOAD CSV"
		end = ni + 1
		s.claimed[ni] = true
	}
	s.add(&types.WriteClause{Keyword: word, Range: types.Span{Start: i, End: end}})
}

// call handles CALL name.space.proc(...) and CALL name.space.proc.
func (s *scanner) call(p int) {
	_, callIdx, _ := s.at(p)
	segments, last, ok := s.chain(p + 1)
	if !ok {
		return
	}
	_, first, _ := s.at(p + 1)
	proc := s.procedure(segments, first, last, true)
	if proc == nil {
		return
	}

	qualified := proc.QualifiedName()
	if !s.cfg.AllowApoc && dialect.IsApoc(qualified) && dialect.IsApocWrite(qualified) {
		s.add(&types.WriteClause{
			Keyword: "CALL " + qualified,
			Range:   types.Span{Start: callIdx, End: proc.Range.End},
		})
		return
	}
	s.add(proc)
}

func (s *scanner) identifier(p int) {
	t, i, _ := s.at(p)
	if prev, _, ok := s.at(p - 1); ok && prev.IsOperator(".") {
		return
	}

	segments, last, ok := s.chain(p)
	if !ok {
		return
	}
	next, ni, hasNext := s.at(s.sigPos[last] + 1)
	if !hasNext || next.Kind != lexer.OpenParen {
		return
	}

	if len(segments) > 1 {
		if proc := s.procedure(segments, i, last, false); proc != nil {
			s.add(proc)
		}
		return
	}

	if strings.EqualFold(t.Name(), "size") {
		s.size(i, ni)
	}
}

// chain reads an identifier chain a.b.c starting at sig position p. It
// returns the segment names and the token index of the last segment.
// Segments after the first may be keywords (apoc.create.node).
func (s *scanner) chain(p int) ([]string, int, bool) {
	t, i, ok := s.at(p)
	if !ok || t.Kind != lexer.Identifier {
		return nil, -1, false
	}
	segments := []string{t.Name()}
	last := i
	for {
		dot, _, ok := s.at(p + 1)
		if !ok || !dot.IsOperator(".") {
			break
		}
		seg, si, ok := s.at(p + 2)
		if !ok || (seg.Kind != lexer.Identifier && seg.Kind != lexer.Keyword) {
			break
		}
		segments = append(segments, seg.Name())
		last = si
		p += 2
	}
	return segments, last, true
}

// procedure builds a ProcedureCall over the chain first..last and its
// optional parenthesized argument list, claiming the chain tokens.
func (s *scanner) procedure(segments []string, first, last int, viaCall bool) *types.ProcedureCall {
	proc := &types.ProcedureCall{
		Namespace: strings.Join(segments[:len(segments)-1], "."),
		Procedure: segments[len(segments)-1],
		ViaCall:   viaCall,
		Range:     types.Span{Start: first, End: last + 1},
	}
	if next, ni, ok := s.at(s.sigPos[last] + 1); ok && next.Kind == lexer.OpenParen {
		closing := s.pair[ni]
		proc.Args = types.Span{Start: ni + 1, End: closing}
		proc.ArgCount = s.countArgs(proc.Args)
		proc.Range.End = closing + 1
	} else {
		proc.Args = types.Span{Start: last + 1, End: last + 1}
	}
	for i := first; i <= last; i++ {
		s.claimed[i] = true
	}
	return proc
}

// size classifies size(...) as a pattern count or a plain function call.
func (s *scanner) size(nameIdx, openIdx int) {
	closing := s.pair[openIdx]
	args := types.Span{Start: openIdx + 1, End: closing}
	rng := types.Span{Start: nameIdx, End: closing + 1}

	if pattern, ok := s.patternArgument(args); ok {
		s.add(&types.SizePatternCall{Pattern: pattern, Range: rng})
		return
	}
	s.add(&types.FunctionCall{Name: s.tokens[nameIdx].Name(), Args: args, Range: rng})
}

// patternArgument reports whether args holds exactly one relationship
// pattern, (a)-[...]-(b)..., and returns its span trimmed of surrounding
// trivia. Any token outside the node and relationship chain disqualifies it.
func (s *scanner) patternArgument(args types.Span) (types.Span, bool) {
	first, last := s.trim(args)
	if first < 0 {
		return types.Span{}, false
	}
	if !s.patternChain(s.sigPos[first], s.sigPos[last]) {
		return types.Span{}, false
	}
	return types.Span{Start: first, End: last + 1}, true
}

// patternChain reports whether sig positions from..to are a node followed by
// one or more relationship and node pairs.
func (s *scanner) patternChain(from, to int) bool {
	p := from
	nodes := 0
	for {
		t, i, ok := s.at(p)
		if !ok || p > to || t.Kind != lexer.OpenParen {
			return false
		}
		p = s.sigPos[s.pair[i]] + 1
		nodes++
		if p > to {
			return nodes >= 2
		}
		if p, ok = s.relationship(p); !ok {
			return false
		}
	}
}

// relationship consumes a relationship starting at sig position p:
// <- or -, an optional [detail], then - or ->. It returns the position
// after the relationship.
func (s *scanner) relationship(p int) (int, bool) {
	t, _, ok := s.at(p)
	if !ok || !(t.IsOperator("<-") || t.IsOperator("-")) {
		return p, false
	}
	p++
	if t, i, ok := s.at(p); ok && t.Kind == lexer.OpenBracket {
		p = s.sigPos[s.pair[i]] + 1
	}
	t, _, ok = s.at(p)
	if !ok || !(t.IsOperator("-") || t.IsOperator("->")) {
		return p, false
	}
	return p + 1, true
}

// trim returns the first and last significant token indices inside span,
// or -1, -1 when there are none.
func (s *scanner) trim(span types.Span) (int, int) {
	first, last := -1, -1
	for i := span.Start; i < span.End; i++ {
		if s.tokens[i].IsTrivia() {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	return first, last
}

// countArgs counts the top-level comma separated arguments inside span.
func (s *scanner) countArgs(span types.Span) int {
	first, _ := s.trim(span)
	if first < 0 {
		return 0
	}
	count := 1
	for i := span.Start; i < span.End; i++ {
		t := s.tokens[i]
		switch {
		case isOpenBracket(t.Kind):
			i = s.pair[i]
		case t.IsOperator(","):
			count++
		}
	}
	return count
}

func (s *scanner) add(c types.Construct) {
	s.constructs = append(s.constructs, c)
}

func isOneOf(word string, options []string) bool {
	for _, o := range options {
		if strings.EqualFold(word, o) {
			return true
		}
	}
	return false
}

func isOpenBracket(k lexer.Kind) bool {
	return k == lexer.OpenParen || k == lexer.OpenBrace || k == lexer.OpenBracket
}

func isCloseBracket(k lexer.Kind) bool {
	return k == lexer.CloseParen || k == lexer.CloseBrace || k == lexer.CloseBracket
}

func closerOf(k lexer.Kind) lexer.Kind {
	switch k {
	case lexer.OpenParen:
		return lexer.CloseParen
	case lexer.OpenBrace:
		return lexer.CloseBrace
	default:
		return lexer.CloseBracket
	}
}

// matchBrackets pairs every bracket token with its partner. Any mismatch is
// a ScanError, so spans derived from the table always nest properly.
func matchBrackets(tokens []lexer.Token) ([]int, error) {
	pair := make([]int, len(tokens))
	var stack []int
	for i, t := range tokens {
		pair[i] = -1
		switch {
		case isOpenBracket(t.Kind):
			stack = append(stack, i)
		case isCloseBracket(t.Kind):
			if len(stack) == 0 {
				return nil, &ScanError{Offset: t.Start, Detail: fmt.Sprintf("unexpected %q", t.Text)}
			}
			open := stack[len(stack)-1]
			if closerOf(tokens[open].Kind) != t.Kind {
				return nil, &ScanError{Offset: t.Start, Detail: fmt.Sprintf("%q does not close %q at offset %d", t.Text, tokens[open].Text, tokens[open].Start)}
			}
			stack = stack[:len(stack)-1]
			pair[open] = i
			pair[i] = open
		}
	}
	if len(stack) > 0 {
		open := tokens[stack[len(stack)-1]]
		return nil, &ScanError{Offset: open.Start, Detail: fmt.Sprintf("%q is never closed", open.Text)}
	}
	return pair, nil
}
