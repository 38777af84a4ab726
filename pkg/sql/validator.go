package sql

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Action tells the orchestrator what to do about an issue.
type Action string

const (
	// ActionFailFast means the query must never execute and never be retried.
	ActionFailFast Action = "fail_fast"
	// ActionAutoFix means the validator already rewrote the SQL.
	ActionAutoFix Action = "auto_fix"
	// ActionRewrite means the generator should be asked for a corrected query.
	ActionRewrite Action = "rewrite"
	// ActionReview means the issue is advisory only.
	ActionReview Action = "review"
)

// Issue codes produced by Validate.
const (
	CodeNoSelect           = "NO_SELECT"
	CodeMultipleStatements = "MULTIPLE_STATEMENTS"
	CodeDangerousKeyword   = "DANGEROUS_KEYWORD"
	CodeDangerousFunction  = "DANGEROUS_FUNCTION"
	CodeSuspiciousLiteral  = "SUSPICIOUS_LITERAL"
	CodeUnknownTable       = "UNKNOWN_TABLE"
	CodeLimitInjected      = "LIMIT_INJECTED"
	CodeExcessiveJoins     = "EXCESSIVE_JOINS"
)

// Issue is a single structural or safety finding.
type Issue struct {
	Code     string
	Severity Severity
	Action   Action
	Message  string
}

// Options controls validation behavior. The zero value validates structure
// and safety only; set AllowedTables to enable the table allow-list check.
type Options struct {
	// AllowedTables is the set of tables the schema context exposes. Matching
	// is case-insensitive and folds singular/plural forms. Nil disables the
	// check (not the same as an empty list, which rejects every table).
	AllowedTables []string

	// RequireLimit appends DefaultLimit when the query has no LIMIT or
	// FETCH FIRST clause.
	RequireLimit bool
	DefaultLimit int

	// MaxJoins is the JOIN count above which a warning is emitted. Zero
	// disables the check.
	MaxJoins int

	// DisallowCTE rejects WITH-prefixed statements. CTEs are accepted by
	// default; the statement under WITH must still resolve to a SELECT.
	DisallowCTE bool

	// ScreenLiterals runs libinjection over string literal contents.
	ScreenLiterals bool
}

// Result is the outcome of structural validation.
type Result struct {
	// Valid is false when any error-severity issue was found.
	Valid bool
	// ExecutableSafely is false when any fail-fast issue was found. A query
	// can be invalid but still safe to EXPLAIN (unknown table).
	ExecutableSafely bool
	// SQL is the possibly auto-fixed statement.
	SQL string
	// Issues in check order.
	Issues []Issue
}

func (r *Result) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
	if issue.Severity == SeverityError {
		r.Valid = false
	}
	if issue.Action == ActionFailFast {
		r.ExecutableSafely = false
	}
}

// FailFast reports whether any fail-fast issue is present.
func (r *Result) FailFast() bool {
	return !r.ExecutableSafely
}

// Validate runs the ordered structural checks over code spans only,
// short-circuiting at the first fail-fast finding. Content inside string
// literals and comments never triggers keyword or statement checks.
func Validate(sqlText string, opts Options) Result {
	result := Result{Valid: true, ExecutableSafely: true, SQL: strings.TrimSpace(sqlText)}
	code := CodeOnly(result.SQL)

	// 1. Must be a SELECT (or a CTE ending in one).
	if !startsWithSelect(code, !opts.DisallowCTE) {
		result.add(Issue{
			Code:     CodeNoSelect,
			Severity: SeverityError,
			Action:   ActionFailFast,
			Message:  "only SELECT statements are allowed",
		})
		return result
	}

	// 2. Single statement only. A trailing semicolon is tolerated; anything
	// after it is a second statement.
	if hasMultipleStatements(code) {
		result.add(Issue{
			Code:     CodeMultipleStatements,
			Severity: SeverityError,
			Action:   ActionFailFast,
			Message:  "multiple SQL statements are not allowed",
		})
		return result
	}

	// 3. Dangerous keywords and functions, word-boundary matched.
	for _, kw := range dangerousKeywords {
		if containsWord(code, kw) {
			result.add(Issue{
				Code:     CodeDangerousKeyword,
				Severity: SeverityError,
				Action:   ActionFailFast,
				Message:  fmt.Sprintf("statement contains forbidden keyword %s", kw),
			})
			return result
		}
	}
	for _, fn := range dangerousFunctions {
		if containsWord(code, fn) {
			result.add(Issue{
				Code:     CodeDangerousFunction,
				Severity: SeverityError,
				Action:   ActionFailFast,
				Message:  fmt.Sprintf("statement calls forbidden function %s", fn),
			})
			return result
		}
	}

	// 3b. Injection screening of literal contents. Warning only: quoted
	// search terms legitimately contain SQL-looking text, so this feeds the
	// score rather than blocking.
	if opts.ScreenLiterals {
		for _, hit := range ScreenStringLiterals(result.SQL) {
			result.add(Issue{
				Code:     CodeSuspiciousLiteral,
				Severity: SeverityWarning,
				Action:   ActionReview,
				Message:  fmt.Sprintf("string literal matches injection fingerprint %s", hit.Fingerprint),
			})
		}
	}

	// 4. Table allow-list.
	if opts.AllowedTables != nil {
		allowed := make(map[string]bool, len(opts.AllowedTables))
		for _, t := range opts.AllowedTables {
			allowed[normalizeTableName(t)] = true
		}
		for _, table := range ReferencedTables(result.SQL) {
			if !allowed[normalizeTableName(table)] {
				result.add(Issue{
					Code:     CodeUnknownTable,
					Severity: SeverityError,
					Action:   ActionRewrite,
					Message:  fmt.Sprintf("table %s is not in the schema context", table),
				})
			}
		}
	}

	// 5. Row limit injection.
	if opts.RequireLimit && !hasRowLimit(code) {
		limit := opts.DefaultLimit
		if limit <= 0 {
			limit = 100
		}
		result.SQL = strings.TrimRight(result.SQL, "; \t\n\r") + fmt.Sprintf(" LIMIT %d", limit)
		result.add(Issue{
			Code:     CodeLimitInjected,
			Severity: SeverityInfo,
			Action:   ActionAutoFix,
			Message:  fmt.Sprintf("no row limit present; appended LIMIT %d", limit),
		})
	}

	// 6. Join ceiling. Warning only; wide joins are slow, not unsafe.
	if opts.MaxJoins > 0 {
		if joins := countJoins(code); joins > opts.MaxJoins {
			result.add(Issue{
				Code:     CodeExcessiveJoins,
				Severity: SeverityWarning,
				Action:   ActionReview,
				Message:  fmt.Sprintf("query has %d joins (ceiling %d)", joins, opts.MaxJoins),
			})
		}
	}

	return result
}

// startsWithSelect checks the first code word, ignoring leading whitespace
// that tokenization left where comments were.
func startsWithSelect(code string, allowCTE bool) bool {
	words := scanWords(code)
	if len(words) == 0 {
		return false
	}
	first := strings.ToLower(words[0].text)
	if first == "select" {
		return true
	}
	if first == "with" && allowCTE {
		// The statement under the CTE chain must itself be a SELECT. Find the
		// first top-level word after the CTE definitions.
		depth := 0
		for _, w := range words[1:] {
			switch w.text {
			case "(":
				depth++
			case ")":
				depth--
			default:
				if depth == 0 && strings.EqualFold(w.text, "select") {
					return true
				}
				if depth == 0 && isDangerousVerb(w.text) {
					return false
				}
			}
		}
	}
	return false
}

func isDangerousVerb(w string) bool {
	for _, kw := range dangerousKeywords {
		if strings.EqualFold(w, kw) {
			return true
		}
	}
	return false
}

// hasMultipleStatements counts semicolons in code text. One trailing
// semicolon is a terminator; a semicolon followed by more code is a second
// statement. Semicolons inside literals were blanked by CodeOnly.
func hasMultipleStatements(code string) bool {
	idx := strings.IndexByte(code, ';')
	if idx == -1 {
		return false
	}
	return strings.TrimSpace(code[idx+1:]) != ""
}

// hasRowLimit detects LIMIT n and FETCH FIRST n ROWS forms.
func hasRowLimit(code string) bool {
	words := scanWords(code)
	for i, w := range words {
		if strings.EqualFold(w.text, "limit") {
			return true
		}
		if strings.EqualFold(w.text, "fetch") && i+1 < len(words) &&
			(strings.EqualFold(words[i+1].text, "first") || strings.EqualFold(words[i+1].text, "next")) {
			return true
		}
	}
	return false
}

func countJoins(code string) int {
	count := 0
	for _, w := range scanWords(code) {
		if strings.EqualFold(w.text, "join") {
			count++
		}
	}
	return count
}

// normalizeTableName lowercases and singularizes a table name so that
// "Orders", "orders", and "order" all compare equal against the allow-list.
func normalizeTableName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if idx := strings.LastIndexByte(name, '.'); idx != -1 {
		name = name[idx+1:]
	}
	return inflection.Singular(name)
}
