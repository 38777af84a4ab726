package sql

import (
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// LiteralHit records a string literal that matched a known SQL injection
// fingerprint.
type LiteralHit struct {
	Literal     string // literal contents, without the surrounding quotes
	Fingerprint string // libinjection fingerprint of the detected pattern
	Offset      int    // byte offset of the literal in the original SQL
}

// ScreenStringLiterals runs libinjection over the contents of every
// single-quoted literal in the statement. Generated SQL has no business
// containing stacked-query or comment-evasion patterns inside its literals;
// a hit feeds candidate scoring as a warning rather than blocking outright,
// since quoted search terms can legitimately look SQL-ish.
func ScreenStringLiterals(sqlText string) []LiteralHit {
	var hits []LiteralHit
	for _, tok := range Tokenize(sqlText) {
		if tok.Kind != TokenString {
			continue
		}
		inner := strings.TrimSuffix(strings.TrimPrefix(tok.Text, "'"), "'")
		if inner == "" {
			continue
		}
		isSQLi, fingerprint := libinjection.IsSQLi(inner)
		if isSQLi {
			hits = append(hits, LiteralHit{
				Literal:     inner,
				Fingerprint: string(fingerprint),
				Offset:      tok.Start,
			})
		}
	}
	return hits
}
