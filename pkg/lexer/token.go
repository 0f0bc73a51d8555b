package lexer

import "strings"

// Kind identifies the lexical class of a token.
type Kind int

// Token kinds.
const (
	Keyword Kind = iota
	Identifier
	Operator
	OpenParen
	CloseParen
	OpenBrace
	CloseBrace
	OpenBracket
	CloseBracket
	StringLiteral
	NumberLiteral
	Comment
	Whitespace
)

func (k Kind) String() string {
	switch k {
	case Keyword:
		return "Keyword"
	case Identifier:
		return "Identifier"
	case Operator:
		return "Operator"
	case OpenParen:
		return "OpenParen"
	case CloseParen:
		return "CloseParen"
	case OpenBrace:
		return "OpenBrace"
	case CloseBrace:
		return "CloseBrace"
	case OpenBracket:
		return "OpenBracket"
	case CloseBracket:
		return "CloseBracket"
	case StringLiteral:
		return "StringLiteral"
	case NumberLiteral:
		return "NumberLiteral"
	case Comment:
		return "Comment"
	case Whitespace:
		return "Whitespace"
	default:
		return "Unknown"
	}
}

// Token is an immutable slice of the source text.
type Token struct {
	Kind Kind
	// Text is the exact source substring, input[Start:End].
	Text  string
	Start int
	End   int
	// Unterminated marks a string, quoted identifier or block comment that
	// runs to the end of input without its closing delimiter.
	Unterminated bool
}

// IsTrivia reports whether the token carries no syntax (whitespace or comment).
func (t Token) IsTrivia() bool {
	return t.Kind == Whitespace || t.Kind == Comment
}

// IsOpaque reports whether the token's content must never be scanned for
// keywords.
func (t Token) IsOpaque() bool {
	return t.IsTrivia() || t.Kind == StringLiteral || t.Kind == NumberLiteral
}

// IsKeyword reports whether the token is the keyword kw (case-insensitive).
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == Keyword && strings.EqualFold(t.Text, kw)
}

// IsOperator reports whether the token is the operator op.
func (t Token) IsOperator(op string) bool {
	return t.Kind == Operator && t.Text == op
}

// Name returns the token text with backtick quoting removed, for
// identifiers and keywords.
func (t Token) Name() string {
	if t.Kind == Identifier && len(t.Text) >= 2 && t.Text[0] == '`' && t.Text[len(t.Text)-1] == '`' && !t.Unterminated {
		return strings.ReplaceAll(t.Text[1:len(t.Text)-1], "``", "`")
	}
	return t.Text
}

// keywords is the reserved word table, upper case.
var keywords = map[string]bool{
	"ALL": true, "ALTER": true, "AND": true, "AS": true, "ASC": true,
	"ASCENDING": true, "BY": true, "CALL": true, "CASE": true, "COLLECT": true,
	"CONTAINS": true, "COUNT": true, "CREATE": true, "CSV": true, "DEALLOCATE": true, "DELETE": true,
	"DENY": true, "DESC": true, "DESCENDING": true, "DETACH": true, "DISTINCT": true,
	"DROP": true, "ELSE": true, "ENABLE": true, "END": true, "ENDS": true, "EXISTS": true,
	"FALSE": true, "FINISH": true, "FOREACH": true, "FROM": true, "GRANT": true,
	"HEADERS": true, "IN": true, "INSERT": true, "IS": true, "LIMIT": true,
	"LOAD": true, "MATCH": true, "MERGE": true, "NODETACH": true, "NOT": true,
	"NULL": true, "ON": true, "OPTIONAL": true, "OR": true, "ORDER": true,
	"REALLOCATE": true, "REMOVE": true, "RENAME": true, "RETURN": true, "REVOKE": true, "SET": true,
	"SHOW": true, "SKIP": true, "START": true, "STARTS": true, "STOP": true,
	"TERMINATE": true, "THEN": true, "TRANSACTIONS": true,
	"TRUE": true, "UNION": true, "UNWIND": true, "USE": true, "WHEN": true,
	"WHERE": true, "WITH": true, "XOR": true, "YIELD": true,
}

// IsKeyword reports whether word is a reserved word.
func IsKeyword(word string) bool {
	return keywords[strings.ToUpper(word)]
}
