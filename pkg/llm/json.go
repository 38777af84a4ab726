package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Generators wrap their answers in markdown fences, reasoning tags, and
// prose. These helpers dig the structured payload out.

var thinkTagPattern = regexp.MustCompile(`(?s)\s*<think>.*?</think>\s*`)

// ExtractJSON pulls the first balanced JSON object or array out of a raw
// completion, tolerating <think> preambles and surrounding prose.
func ExtractJSON(response string) (string, error) {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if jsonStr, ok := balancedSpan(cleaned, '{', '}'); ok && json.Valid([]byte(jsonStr)) {
			return jsonStr, nil
		}
	}
	if arrStart >= 0 {
		if jsonStr, ok := balancedSpan(cleaned, '[', ']'); ok && json.Valid([]byte(jsonStr)) {
			return jsonStr, nil
		}
	}

	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// balancedSpan finds the first depth-balanced span delimited by open/close,
// skipping bracket characters inside JSON strings.
func balancedSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseJSONResponse extracts JSON from a completion and unmarshals it.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T
	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return result, nil
}

var sqlFencePattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

// ExtractSQLText returns the SQL portion of a completion that answered in
// plain text rather than JSON: the first code fence if present, otherwise
// the text from the first SELECT/WITH keyword onward.
func ExtractSQLText(response string) string {
	cleaned := thinkTagPattern.ReplaceAllString(response, "")

	if m := sqlFencePattern.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}

	upper := strings.ToUpper(cleaned)
	for _, kw := range []string{"SELECT", "WITH"} {
		if idx := strings.Index(upper, kw); idx >= 0 {
			return strings.TrimSpace(cleaned[idx:])
		}
	}
	return strings.TrimSpace(cleaned)
}
