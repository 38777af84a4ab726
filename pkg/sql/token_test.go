package sql

import (
	"strings"
	"testing"
)

func TestTokenizeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"simple select", "SELECT id FROM users"},
		{"string literal", "SELECT 'a;b' FROM t"},
		{"doubled quote escape", "SELECT 'it''s' FROM t"},
		{"quoted identifier", `SELECT "weird name" FROM t`},
		{"doubled ident escape", `SELECT "a""b" FROM t`},
		{"line comment", "SELECT 1 -- trailing\nFROM t"},
		{"line comment at eof", "SELECT 1 -- no newline"},
		{"block comment", "SELECT /* inner */ 1"},
		{"unterminated block comment", "SELECT 1 /* runs on"},
		{"dollar quoted", "SELECT $$body; with 'quotes'$$"},
		{"dollar quoted tagged", "SELECT $fn$nested $$ inside$fn$"},
		{"dollar placeholder", "SELECT * FROM t WHERE id = $1"},
		{"unterminated string", "SELECT 'oops FROM t"},
		{"empty", ""},
		{"everything", "SELECT 'a', \"b\" /* c */ -- d\nFROM t WHERE x = $tag$e$tag$"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := Tokenize(tt.sql)

			var rebuilt strings.Builder
			prev := 0
			for _, tok := range tokens {
				if tok.Start != prev {
					t.Errorf("token %q starts at %d, want %d (gap or overlap)", tok.Text, tok.Start, prev)
				}
				if tok.End-tok.Start != len(tok.Text) {
					t.Errorf("token %q span [%d,%d) does not match text length %d", tok.Text, tok.Start, tok.End, len(tok.Text))
				}
				rebuilt.WriteString(tok.Text)
				prev = tok.End
			}
			if rebuilt.String() != tt.sql {
				t.Errorf("round trip failed:\n got %q\nwant %q", rebuilt.String(), tt.sql)
			}
		})
	}
}

func TestTokenizeKinds(t *testing.T) {
	tokens := Tokenize("SELECT 'lit', \"id\" /* c */ -- end\n")

	want := []TokenKind{TokenCode, TokenString, TokenCode, TokenQuotedIdent, TokenCode, TokenBlockComment, TokenCode, TokenLineComment}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(want), tokens)
	}
	for i, tok := range tokens {
		if tok.Kind != want[i] {
			t.Errorf("token %d %q: kind %v, want %v", i, tok.Text, tok.Kind, want[i])
		}
	}
}

func TestTokenizeSemicolonInString(t *testing.T) {
	tokens := Tokenize("SELECT ';' FROM t")
	for _, tok := range tokens {
		if tok.Kind == TokenCode && strings.Contains(tok.Text, ";") {
			t.Errorf("semicolon inside string literal leaked into code span %q", tok.Text)
		}
	}
}

func TestCodeOnlyPreservesOffsets(t *testing.T) {
	sql := "SELECT 'x;y' FROM t -- c"
	code := CodeOnly(sql)

	if len(code) != len(sql) {
		t.Fatalf("code length %d, want %d", len(code), len(sql))
	}
	if strings.Contains(code, ";") {
		t.Error("literal content not blanked")
	}
	idx := strings.Index(sql, "FROM")
	if code[idx:idx+4] != "FROM" {
		t.Errorf("FROM moved: code[%d:]=%q", idx, code[idx:idx+4])
	}
}

func TestDollarQuotedEmptyTag(t *testing.T) {
	tokens := Tokenize("$$a$$")
	if len(tokens) != 1 || tokens[0].Kind != TokenDollarQuoted {
		t.Fatalf("expected single dollar-quoted token, got %+v", tokens)
	}
}
