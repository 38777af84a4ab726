// Package sql provides SQL tokenization, structural validation, and linting
// for generated queries before they are allowed anywhere near a database.
package sql

import "strings"

// TokenKind classifies a lexical span of SQL text.
type TokenKind int

const (
	// TokenCode is plain SQL text outside of literals and comments.
	TokenCode TokenKind = iota
	// TokenString is a single-quoted literal, including the quotes.
	TokenString
	// TokenQuotedIdent is a double-quoted identifier, including the quotes.
	TokenQuotedIdent
	// TokenDollarQuoted is a dollar-quoted block ($tag$...$tag$), including delimiters.
	TokenDollarQuoted
	// TokenLineComment is a -- comment through end of line.
	TokenLineComment
	// TokenBlockComment is a /* */ comment. Unterminated comments run to EOF.
	TokenBlockComment
)

// String returns a human-readable name for the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenCode:
		return "code"
	case TokenString:
		return "string"
	case TokenQuotedIdent:
		return "quoted_ident"
	case TokenDollarQuoted:
		return "dollar_quoted"
	case TokenLineComment:
		return "line_comment"
	case TokenBlockComment:
		return "block_comment"
	default:
		return "unknown"
	}
}

// Token is one lexical span. Spans are contiguous and non-overlapping;
// concatenating Text over a tokenize result reconstructs the input exactly.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int // byte offset of the first byte
	End   int // byte offset one past the last byte
}

// Tokenize splits SQL text into typed spans with a single left-to-right scan.
// Recognition order: line comment, block comment, single-quoted string
// (with '' escaping), double-quoted identifier (with "" escaping),
// dollar-quoted block, otherwise a run of plain code.
//
// Unterminated strings, comments, and dollar quotes consume the rest of the
// input rather than failing; the linter reports them separately.
func Tokenize(sql string) []Token {
	var tokens []Token
	i := 0
	codeStart := 0

	flushCode := func(end int) {
		if end > codeStart {
			tokens = append(tokens, Token{Kind: TokenCode, Text: sql[codeStart:end], Start: codeStart, End: end})
		}
	}

	for i < len(sql) {
		switch {
		case strings.HasPrefix(sql[i:], "--"):
			flushCode(i)
			end := strings.IndexByte(sql[i:], '\n')
			if end == -1 {
				end = len(sql)
			} else {
				end = i + end + 1 // include the newline in the comment span
			}
			tokens = append(tokens, Token{Kind: TokenLineComment, Text: sql[i:end], Start: i, End: end})
			i = end
			codeStart = i

		case strings.HasPrefix(sql[i:], "/*"):
			flushCode(i)
			end := strings.Index(sql[i+2:], "*/")
			if end == -1 {
				end = len(sql)
			} else {
				end = i + 2 + end + 2
			}
			tokens = append(tokens, Token{Kind: TokenBlockComment, Text: sql[i:end], Start: i, End: end})
			i = end
			codeStart = i

		case sql[i] == '\'':
			flushCode(i)
			end := scanQuoted(sql, i, '\'')
			tokens = append(tokens, Token{Kind: TokenString, Text: sql[i:end], Start: i, End: end})
			i = end
			codeStart = i

		case sql[i] == '"':
			flushCode(i)
			end := scanQuoted(sql, i, '"')
			tokens = append(tokens, Token{Kind: TokenQuotedIdent, Text: sql[i:end], Start: i, End: end})
			i = end
			codeStart = i

		case sql[i] == '$':
			if tag, ok := dollarTagAt(sql, i); ok {
				flushCode(i)
				delim := "$" + tag + "$"
				end := strings.Index(sql[i+len(delim):], delim)
				if end == -1 {
					end = len(sql)
				} else {
					end = i + len(delim) + end + len(delim)
				}
				tokens = append(tokens, Token{Kind: TokenDollarQuoted, Text: sql[i:end], Start: i, End: end})
				i = end
				codeStart = i
			} else {
				i++
			}

		default:
			i++
		}
	}

	flushCode(len(sql))
	return tokens
}

// scanQuoted scans a quoted span starting at start (which must hold the quote
// character). Doubled quote characters escape themselves. Returns the offset
// one past the closing quote, or len(sql) if unterminated.
func scanQuoted(sql string, start int, quote byte) int {
	i := start + 1
	for i < len(sql) {
		if sql[i] == quote {
			if i+1 < len(sql) && sql[i+1] == quote {
				i += 2 // doubled quote stays inside the literal
				continue
			}
			return i + 1
		}
		i++
	}
	return len(sql)
}

// dollarTagAt reports whether a dollar-quote delimiter starts at offset i and
// returns its tag (which may be empty, as in $$...$$). Tags are letters,
// digits, and underscores, and must not start with a digit. A lone $ used as
// a parameter placeholder ($1) is not a delimiter.
func dollarTagAt(sql string, i int) (string, bool) {
	j := i + 1
	for j < len(sql) && sql[j] != '$' {
		c := sql[j]
		isTagChar := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isTagChar {
			return "", false
		}
		j++
	}
	if j >= len(sql) {
		return "", false
	}
	tag := sql[i+1 : j]
	if len(tag) > 0 && tag[0] >= '0' && tag[0] <= '9' {
		return "", false
	}
	return tag, true
}

// CodeOnly returns the SQL with every non-code span replaced by spaces of the
// same byte length. Offsets into the result line up with the original text,
// so structural checks can ignore literal and comment content without losing
// positions.
func CodeOnly(sql string) string {
	tokens := Tokenize(sql)
	var b strings.Builder
	b.Grow(len(sql))
	for _, tok := range tokens {
		if tok.Kind == TokenCode {
			b.WriteString(tok.Text)
			continue
		}
		for range tok.End - tok.Start {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// CodeTokens filters a token list to code spans.
func CodeTokens(tokens []Token) []Token {
	var code []Token
	for _, tok := range tokens {
		if tok.Kind == TokenCode {
			code = append(code, tok)
		}
	}
	return code
}
