package sql

import (
	"fmt"
	"strings"
)

// LintSeverity grades a lint finding.
type LintSeverity string

const (
	LintError LintSeverity = "error"
	LintWarn  LintSeverity = "warn"
)

// Lint issue codes.
const (
	LintUnbalancedParens     = "UNBALANCED_PARENS"
	LintUnterminatedString   = "UNTERMINATED_STRING"
	LintTrailingComma        = "TRAILING_COMMA"
	LintJoinWithoutCondition = "JOIN_WITHOUT_CONDITION"
	LintUndefinedAlias       = "UNDEFINED_ALIAS"
	LintAggregateMix         = "AGGREGATE_WITHOUT_GROUP_BY"
	LintEmptySelect          = "EMPTY_SELECT"
	LintMissingFrom          = "MISSING_FROM"
)

// Span locates a lint finding in the original SQL text.
type Span struct {
	Start int
	End   int
}

// LintIssue is one syntactic or semantic finding.
type LintIssue struct {
	Code     string
	Severity LintSeverity
	Message  string
	Hint     string
	Span     Span
}

// HasLintErrors reports whether any issue carries error severity. Error
// findings mean the statement cannot parse, so the orchestrator skips the
// EXPLAIN round trip and goes straight back to repair.
func HasLintErrors(issues []LintIssue) bool {
	for _, issue := range issues {
		if issue.Severity == LintError {
			return true
		}
	}
	return false
}

// Lint runs the syntactic and light semantic checks over a statement that
// already passed structural validation. All checks operate on code spans;
// literal and comment content is invisible to them.
func Lint(sqlText string) []LintIssue {
	var issues []LintIssue
	code := CodeOnly(sqlText)
	words := scanWords(code)

	issues = append(issues, checkParens(code)...)
	issues = append(issues, checkStrings(sqlText)...)
	issues = append(issues, checkTrailingCommas(words)...)
	issues = append(issues, checkJoinConditions(words)...)
	issues = append(issues, checkAliases(sqlText, words)...)
	issues = append(issues, checkAggregates(words)...)
	issues = append(issues, checkSelectShape(words)...)

	return issues
}

func checkParens(code string) []LintIssue {
	depth := 0
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return []LintIssue{{
					Code:     LintUnbalancedParens,
					Severity: LintError,
					Message:  "unmatched closing parenthesis",
					Hint:     "remove the extra ) or add the missing (",
					Span:     Span{Start: i, End: i + 1},
				}}
			}
		}
	}
	if depth > 0 {
		return []LintIssue{{
			Code:     LintUnbalancedParens,
			Severity: LintError,
			Message:  fmt.Sprintf("%d unclosed parenthesis(es)", depth),
			Hint:     "close every opened (",
		}}
	}
	return nil
}

func checkStrings(sqlText string) []LintIssue {
	tokens := Tokenize(sqlText)
	if len(tokens) == 0 {
		return nil
	}
	last := tokens[len(tokens)-1]
	if last.Kind == TokenString && !stringTokenClosed(last.Text) {
		return []LintIssue{{
			Code:     LintUnterminatedString,
			Severity: LintError,
			Message:  "unterminated string literal",
			Hint:     "add the closing single quote",
			Span:     Span{Start: last.Start, End: last.End},
		}}
	}
	return nil
}

// stringTokenClosed walks a single-quoted token and reports whether a real
// (non-doubled) closing quote terminates it.
func stringTokenClosed(text string) bool {
	i := 1 // skip opening quote
	for i < len(text) {
		if text[i] == '\'' {
			if i+1 < len(text) && text[i+1] == '\'' {
				i += 2
				continue
			}
			return i == len(text)-1
		}
		i++
	}
	return false
}

var clauseAfterComma = map[string]bool{
	"from": true, "group": true, "order": true, "having": true, "limit": true,
}

func checkTrailingCommas(words []word) []LintIssue {
	var issues []LintIssue
	for i, w := range words {
		if w.text != "," {
			continue
		}
		if i == len(words)-1 {
			issues = append(issues, LintIssue{
				Code:     LintTrailingComma,
				Severity: LintError,
				Message:  "trailing comma at end of statement",
				Hint:     "remove the comma",
				Span:     Span{Start: w.pos, End: w.pos + 1},
			})
			continue
		}
		if clauseAfterComma[strings.ToLower(words[i+1].text)] {
			issues = append(issues, LintIssue{
				Code:     LintTrailingComma,
				Severity: LintError,
				Message:  fmt.Sprintf("trailing comma before %s", strings.ToUpper(words[i+1].text)),
				Hint:     "remove the comma before the clause keyword",
				Span:     Span{Start: w.pos, End: w.pos + 1},
			})
		}
	}
	return issues
}

// joinConditionLookahead is how many words after JOIN may pass before an
// ON or USING must appear. Covers `JOIN schema.table AS alias ON ...`.
const joinConditionLookahead = 8

func checkJoinConditions(words []word) []LintIssue {
	var issues []LintIssue
	for i, w := range words {
		if !strings.EqualFold(w.text, "join") {
			continue
		}
		if i > 0 {
			prev := strings.ToLower(words[i-1].text)
			if prev == "cross" || prev == "natural" {
				continue
			}
		}
		found := false
		for j := i + 1; j < len(words) && j <= i+joinConditionLookahead; j++ {
			t := strings.ToLower(words[j].text)
			if t == "on" || t == "using" {
				found = true
				break
			}
			if t == "join" || t == "where" || t == "group" || t == "order" || t == "limit" {
				break
			}
		}
		if !found {
			issues = append(issues, LintIssue{
				Code:     LintJoinWithoutCondition,
				Severity: LintError,
				Message:  "JOIN has no ON or USING condition",
				Hint:     "add a join condition, or use CROSS JOIN for an intentional cartesian product",
				Span:     Span{Start: w.pos, End: w.pos + len(w.text)},
			})
		}
	}
	return issues
}

func checkAliases(sqlText string, words []word) []LintIssue {
	defined := AliasMap(sqlText)
	if len(defined) == 0 {
		return nil
	}

	var issues []LintIssue
	reported := make(map[string]bool)
	for i := 0; i+2 < len(words); i++ {
		if words[i+1].text != "." || !isIdentWord(words[i].text) || !isIdentWord(words[i+2].text) {
			continue
		}
		// Skip the schema part of schema.table.column chains.
		if i+4 < len(words) && words[i+3].text == "." {
			continue
		}
		qualifier := strings.ToLower(words[i].text)
		if defined[qualifier] != "" || reported[qualifier] || IsReservedReferenceWord(qualifier) {
			continue
		}
		reported[qualifier] = true
		issues = append(issues, LintIssue{
			Code:     LintUndefinedAlias,
			Severity: LintError,
			Message:  fmt.Sprintf("alias %q is not defined by any FROM or JOIN clause", words[i].text),
			Hint:     "add the table to FROM/JOIN or fix the qualifier",
			Span:     Span{Start: words[i].pos, End: words[i].pos + len(words[i].text)},
		})
	}
	return issues
}

func checkAggregates(words []word) []LintIssue {
	// Only inspect the SELECT list: words between SELECT and the top-level FROM.
	listStart, listEnd := selectListBounds(words)
	if listStart < 0 {
		return nil
	}
	if hasGroupBy(words) {
		return nil
	}

	aggregated := false
	bareColumn := ""
	depth := 0
	for i := listStart; i < listEnd; i++ {
		t := strings.ToLower(words[i].text)
		switch words[i].text {
		case "(":
			depth++
			continue
		case ")":
			depth--
			continue
		}
		if depth > 0 {
			continue
		}
		if isAggregateFunc(t) && i+1 < listEnd && words[i+1].text == "(" {
			aggregated = true
			continue
		}
		if bareColumn == "" && isIdentWord(words[i].text) && !IsReservedReferenceWord(t) &&
			t != "as" && t != "distinct" &&
			(i+1 >= listEnd || words[i+1].text != "(") {
			// Skip the alias position directly after AS.
			if i > listStart && strings.EqualFold(words[i-1].text, "as") {
				continue
			}
			bareColumn = words[i].text
		}
	}

	if aggregated && bareColumn != "" {
		return []LintIssue{{
			Code:     LintAggregateMix,
			Severity: LintWarn,
			Message:  fmt.Sprintf("aggregate function mixed with non-aggregated column %q and no GROUP BY", bareColumn),
			Hint:     fmt.Sprintf("add GROUP BY %s or aggregate the column", bareColumn),
		}}
	}
	return nil
}

func checkSelectShape(words []word) []LintIssue {
	listStart, listEnd := selectListBounds(words)
	if listStart < 0 {
		return nil
	}
	if listStart == listEnd {
		return []LintIssue{{
			Code:     LintEmptySelect,
			Severity: LintError,
			Message:  "empty SELECT list",
			Hint:     "select at least one column or expression",
		}}
	}
	if !hasTopLevelFrom(words) {
		// SELECT 1, SELECT now() and similar literal expressions are fine.
		for i := listStart; i < listEnd; i++ {
			t := strings.ToLower(words[i].text)
			if isIdentWord(words[i].text) && !IsReservedReferenceWord(t) && !isAggregateFunc(t) &&
				(i+1 >= len(words) || words[i+1].text != "(") {
				return []LintIssue{{
					Code:     LintMissingFrom,
					Severity: LintWarn,
					Message:  fmt.Sprintf("column %q referenced but the query has no FROM clause", words[i].text),
					Hint:     "add a FROM clause",
					Span:     Span{Start: words[i].pos, End: words[i].pos + len(words[i].text)},
				}}
			}
		}
	}
	return nil
}

// selectListBounds returns the word index range (start inclusive, end
// exclusive) of the first SELECT list, bounded by the top-level FROM or the
// end of the statement. Returns (-1, -1) when there is no SELECT.
func selectListBounds(words []word) (int, int) {
	start := -1
	depth := 0
	for i, w := range words {
		switch w.text {
		case "(":
			depth++
		case ")":
			depth--
		}
		if start == -1 && depth == 0 && strings.EqualFold(w.text, "select") {
			start = i + 1
			continue
		}
		if start != -1 && depth == 0 && strings.EqualFold(w.text, "from") {
			return start, i
		}
	}
	if start == -1 {
		return -1, -1
	}
	return start, len(words)
}

func hasTopLevelFrom(words []word) bool {
	depth := 0
	for _, w := range words {
		switch w.text {
		case "(":
			depth++
		case ")":
			depth--
		default:
			if depth == 0 && strings.EqualFold(w.text, "from") {
				return true
			}
		}
	}
	return false
}

func hasGroupBy(words []word) bool {
	for i := 0; i+1 < len(words); i++ {
		if strings.EqualFold(words[i].text, "group") && strings.EqualFold(words[i+1].text, "by") {
			return true
		}
	}
	return false
}

func isAggregateFunc(lower string) bool {
	for _, fn := range aggregateFunctions {
		if lower == fn {
			return true
		}
	}
	return false
}
