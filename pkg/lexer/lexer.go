// Package lexer converts Cypher query text into a stream of typed tokens.
//
// Unlike a parser-facing lexer, nothing is elided: whitespace and comments
// are kept as tokens and every token records its byte offsets, so the
// emitter can reproduce untouched regions of a query byte for byte.
package lexer

import (
	"strings"

	plexer "github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// cypherLexer defines the token rules. Rules are tried in order; the final
// catch-all guarantees every input character produces a token.
var cypherLexer = plexer.MustSimple([]plexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*(?s:.*?)\*/`},
	{Name: "OpenBlockComment", Pattern: `/\*(?s:.*)`},
	{Name: "String", Pattern: `'(?:\\(?s:.)|[^'\\])*'|"(?:\\(?s:.)|[^"\\])*"`},
	{Name: "OpenString", Pattern: `'(?:\\(?s:.)|[^'\\])*|"(?:\\(?s:.)|[^"\\])*`},
	{Name: "QuotedIdent", Pattern: "`(?:``|[^`])*`"},
	{Name: "OpenQuotedIdent", Pattern: "`(?:``|[^`])*"},
	{Name: "Parameter", Pattern: `\$(?:[\p{L}\p{N}_]+|\{[\p{L}\p{N}_]+\})`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F]+|\d+(?:\.\d+)?(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Bracket", Pattern: `[(){}\[\]]`},
	{Name: "Operator", Pattern: `<>|<=|>=|=~|\+=|\.\.|->|<-|::|[-+*/%^=<>.,:;|!?&$@#~\\]`},
	{Name: "Other", Pattern: `(?s:.)`},
})

// ruleNames maps participle token types back to rule names.
var ruleNames = func() map[plexer.TokenType]string {
	names := make(map[plexer.TokenType]string)
	for name, typ := range cypherLexer.Symbols() {
		names[typ] = name
	}
	return names
}()

// Tokenize splits text into tokens covering every byte of the input.
//
// An error is only returned if the underlying lexer fails, which the
// catch-all rule makes unreachable for valid UTF-8 input.
func Tokenize(text string) ([]Token, error) {
	lex, err := cypherLexer.LexString("", text)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start lexer")
	}
	raw, err := plexer.ConsumeAll(lex)
	if err != nil {
		return nil, errors.Wrap(err, "failed to tokenize query")
	}

	tokens := make([]Token, 0, len(raw))
	for _, t := range raw {
		if t.EOF() {
			break
		}
		start := t.Pos.Offset
		tokens = append(tokens, convert(ruleNames[t.Type], t.Value, start))
	}
	return tokens, nil
}

func convert(rule, text string, start int) Token {
	tok := Token{Text: text, Start: start, End: start + len(text)}
	switch rule {
	case "Whitespace":
		tok.Kind = Whitespace
	case "LineComment", "BlockComment":
		tok.Kind = Comment
	case "OpenBlockComment":
		tok.Kind = Comment
		tok.Unterminated = true
	case "String":
		tok.Kind = StringLiteral
	case "OpenString":
		tok.Kind = StringLiteral
		tok.Unterminated = true
	case "QuotedIdent", "Parameter":
		tok.Kind = Identifier
	case "OpenQuotedIdent":
		tok.Kind = Identifier
		tok.Unterminated = true
	case "Number":
		tok.Kind = NumberLiteral
	case "Ident":
		if IsKeyword(text) {
			tok.Kind = Keyword
		} else {
			tok.Kind = Identifier
		}
	case "Bracket":
		tok.Kind = bracketKind(text)
	default:
		tok.Kind = Operator
	}
	return tok
}

func bracketKind(text string) Kind {
	switch text {
	case "(":
		return OpenParen
	case ")":
		return CloseParen
	case "{":
		return OpenBrace
	case "}":
		return CloseBrace
	case "[":
		return OpenBracket
	default:
		return CloseBracket
	}
}

// Join concatenates the text of tokens, reproducing the source they came from.
func Join(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}
