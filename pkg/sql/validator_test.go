package sql

import (
	"strings"
	"testing"
)

func findIssue(issues []Issue, code string) *Issue {
	for i := range issues {
		if issues[i].Code == code {
			return &issues[i]
		}
	}
	return nil
}

func TestValidateNoSelect(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"insert", "INSERT INTO t VALUES (1)"},
		{"update", "UPDATE t SET x = 1"},
		{"empty", ""},
		{"comment only", "-- nothing here"},
		{"delete with comment prefix", "/* hi */ DELETE FROM t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.sql, Options{})
			if result.Valid {
				t.Error("expected invalid")
			}
			if result.ExecutableSafely {
				t.Error("expected executableSafely=false")
			}
			if findIssue(result.Issues, CodeNoSelect) == nil {
				t.Errorf("expected %s issue, got %+v", CodeNoSelect, result.Issues)
			}
		})
	}
}

func TestValidateSelectAccepted(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"plain", "SELECT 1"},
		{"leading comment", "-- question\nSELECT id FROM users"},
		{"lowercase", "select id from users"},
		{"cte", "WITH top AS (SELECT id FROM users) SELECT * FROM top"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.sql, Options{})
			if !result.Valid {
				t.Errorf("expected valid, got issues %+v", result.Issues)
			}
			if !result.ExecutableSafely {
				t.Error("expected executableSafely=true")
			}
		})
	}
}

func TestValidateMultipleStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want bool // want MULTIPLE_STATEMENTS
	}{
		{"two statements", "SELECT 1; SELECT 2", true},
		{"piggyback", "SELECT 1; DROP TABLE users", true},
		{"trailing semicolon ok", "SELECT 1;", false},
		{"trailing semicolon with whitespace", "SELECT 1;  \n", false},
		{"semicolon in literal not flagged", "SELECT ';' FROM t", false},
		{"semicolon in literal then real", "SELECT ';' FROM t; SELECT 2", true},
		{"semicolon in comment", "SELECT 1 -- a;b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.sql, Options{})
			got := findIssue(result.Issues, CodeMultipleStatements) != nil
			if got != tt.want {
				t.Errorf("MULTIPLE_STATEMENTS=%v, want %v (issues %+v)", got, tt.want, result.Issues)
			}
		})
	}
}

func TestValidateDangerousKeywords(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		wantCode string
	}{
		{"drop in subexpr", "SELECT 1 WHERE EXISTS (SELECT 1); DROP TABLE t", CodeMultipleStatements},
		{"union drop", "SELECT x FROM t UNION SELECT y FROM pg_tables WHERE 1=1 AND EXISTS (DROP TABLE t)", CodeDangerousKeyword},
		{"grant", "SELECT grant_all FROM t WHERE GRANT ALL ON t TO public", CodeDangerousKeyword},
		{"pg_sleep", "SELECT pg_sleep(10)", CodeDangerousFunction},
		{"pg_read_file", "SELECT pg_read_file('/etc/passwd')", CodeDangerousFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.sql, Options{})
			if result.ExecutableSafely {
				t.Error("expected executableSafely=false")
			}
			if findIssue(result.Issues, tt.wantCode) == nil {
				t.Errorf("expected %s, got %+v", tt.wantCode, result.Issues)
			}
		})
	}
}

func TestValidateKeywordInLiteralNotFlagged(t *testing.T) {
	result := Validate("SELECT note FROM t WHERE note = 'please DROP me a line'", Options{})
	if !result.Valid {
		t.Errorf("keyword inside literal flagged: %+v", result.Issues)
	}
}

func TestValidateUnknownTable(t *testing.T) {
	opts := Options{AllowedTables: []string{"users", "orders"}}

	result := Validate("SELECT * FROM customers", opts)
	issue := findIssue(result.Issues, CodeUnknownTable)
	if issue == nil {
		t.Fatalf("expected UNKNOWN_TABLE, got %+v", result.Issues)
	}
	if issue.Action != ActionRewrite {
		t.Errorf("action = %s, want rewrite", issue.Action)
	}
	if !result.ExecutableSafely {
		t.Error("unknown table is not fail-fast")
	}

	// Case and plural folding both resolve against the allow-list.
	for _, sql := range []string{
		"SELECT * FROM Users",
		"SELECT * FROM public.users",
		"SELECT * FROM user",
	} {
		result := Validate(sql, opts)
		if findIssue(result.Issues, CodeUnknownTable) != nil {
			t.Errorf("%q: unexpected UNKNOWN_TABLE", sql)
		}
	}

	// EXTRACT(YEAR FROM x) must not read YEAR's operand as a table.
	result = Validate("SELECT EXTRACT(YEAR FROM created_at) FROM orders", opts)
	if findIssue(result.Issues, CodeUnknownTable) != nil {
		t.Errorf("date-part FROM parsed as table: %+v", result.Issues)
	}
}

func TestValidateLimitInjection(t *testing.T) {
	opts := Options{RequireLimit: true, DefaultLimit: 200}

	result := Validate("SELECT id FROM users", opts)
	if !strings.HasSuffix(result.SQL, "LIMIT 200") {
		t.Errorf("limit not appended: %q", result.SQL)
	}
	issue := findIssue(result.Issues, CodeLimitInjected)
	if issue == nil || issue.Severity != SeverityInfo || issue.Action != ActionAutoFix {
		t.Errorf("expected info/auto_fix LIMIT_INJECTED, got %+v", issue)
	}

	// Trailing semicolon is folded into the rewrite.
	result = Validate("SELECT id FROM users;", opts)
	if !strings.HasSuffix(result.SQL, "LIMIT 200") {
		t.Errorf("limit not appended after semicolon strip: %q", result.SQL)
	}

	// Existing limits are respected.
	for _, sql := range []string{
		"SELECT id FROM users LIMIT 5",
		"SELECT id FROM users FETCH FIRST 5 ROWS ONLY",
	} {
		result := Validate(sql, opts)
		if findIssue(result.Issues, CodeLimitInjected) != nil {
			t.Errorf("%q: limit injected twice", sql)
		}
	}
}

func TestValidateIdempotent(t *testing.T) {
	opts := Options{RequireLimit: true, DefaultLimit: 100, AllowedTables: []string{"users"}}

	first := Validate("SELECT id FROM users", opts)
	second := Validate(first.SQL, opts)

	if second.SQL != first.SQL {
		t.Errorf("revalidation changed SQL: %q -> %q", first.SQL, second.SQL)
	}
	for _, issue := range second.Issues {
		if issue.Action == ActionAutoFix {
			t.Errorf("revalidation produced auto-fix %+v", issue)
		}
	}
}

func TestValidateJoinCeiling(t *testing.T) {
	sql := `SELECT * FROM a
		JOIN b ON a.id = b.a_id
		JOIN c ON b.id = c.b_id
		JOIN d ON c.id = d.c_id`

	result := Validate(sql, Options{MaxJoins: 2})
	issue := findIssue(result.Issues, CodeExcessiveJoins)
	if issue == nil {
		t.Fatalf("expected EXCESSIVE_JOINS, got %+v", result.Issues)
	}
	if issue.Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", issue.Severity)
	}
	if !result.Valid || !result.ExecutableSafely {
		t.Error("join ceiling must not block execution")
	}
}

func TestValidateSuspiciousLiteral(t *testing.T) {
	result := Validate("SELECT * FROM t WHERE name = '1'' OR ''1''=''1'", Options{ScreenLiterals: true})
	if findIssue(result.Issues, CodeSuspiciousLiteral) == nil {
		t.Skip("libinjection did not fingerprint this payload; screening is advisory")
	}
	if !result.ExecutableSafely {
		t.Error("literal screening must stay advisory")
	}
}
