// Package candidates parses, validates, scores, and selects among the K
// parallel SQL generations of one attempt.
package candidates

import (
	"regexp"
	"strings"
)

// DefaultDelimiter separates candidates in the generator's raw output block.
const DefaultDelimiter = "---"

var (
	codeFencePattern   = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	leadingCommentLine = regexp.MustCompile(`^\s*--[^\n]*\n`)
	whitespaceRun      = regexp.MustCompile(`[ \t]+`)
)

// Split divides a raw generation block into at most max cleaned candidate
// statements. Delimiter splitting is tried first; if it yields nothing
// usable, code fences are extracted; failing that, the whole output is one
// candidate.
func Split(raw, delimiter string, max int) []string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if max <= 0 {
		max = 3
	}

	if out := cleanAll(strings.Split(raw, "\n"+delimiter), max); len(out) > 0 {
		return out
	}

	var fenced []string
	for _, m := range codeFencePattern.FindAllStringSubmatch(raw, -1) {
		fenced = append(fenced, m[1])
	}
	if out := cleanAll(fenced, max); len(out) > 0 {
		return out
	}

	return cleanAll([]string{raw}, max)
}

func cleanAll(parts []string, max int) []string {
	var out []string
	for _, p := range parts {
		if cleaned := Clean(p); cleaned != "" {
			out = append(out, cleaned)
			if len(out) == max {
				break
			}
		}
	}
	return out
}

// Clean normalizes one candidate: strip leading comment lines and code
// fences, trim, drop a trailing semicolon, collapse horizontal whitespace,
// and cut to the first SELECT/WITH when the text starts with prose.
func Clean(text string) string {
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	for {
		stripped := leadingCommentLine.ReplaceAllString(text, "")
		if stripped == text {
			break
		}
		text = stripped
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ";")
	text = strings.TrimSpace(text)

	if text == "" {
		return ""
	}

	upper := strings.ToUpper(text)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		start := -1
		for _, kw := range []string{"SELECT", "WITH"} {
			if idx := strings.Index(upper, kw); idx >= 0 && (start == -1 || idx < start) {
				start = idx
			}
		}
		if start == -1 {
			return ""
		}
		text = text[start:]
	}

	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
