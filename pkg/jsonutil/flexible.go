// Package jsonutil decodes the loosely-typed JSON the generator sends back.
// Models drift on field types between calls: confidence arrives as a number
// or a quoted string, table lists as an array or one comma-joined string.
// These helpers absorb that drift so the llm package can keep a strict Go
// contract.
package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// String converts a raw field to a string regardless of whether the model
// emitted a string, number, or boolean. Null and absent fields are "".
func String(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}

	return string(raw)
}

// Float converts a raw field to a float64, accepting both 0.85 and "0.85".
// Returns 0 when the field is absent or unparseable.
func Float(raw json.RawMessage) float64 {
	s := String(raw)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// StringList converts a raw field to a string slice, accepting a JSON array,
// a single scalar, or one comma-joined string. Entries are trimmed; empty
// entries are dropped.
func StringList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := list[:0]
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}

	s := String(raw)
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
