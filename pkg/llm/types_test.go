package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSQLResponseJSON(t *testing.T) {
	resp := ParseSQLResponse(`{"sql": "SELECT 1", "confidence": 0.9, "tables": ["employees"]}`)
	assert.Equal(t, "SELECT 1", resp.SQL)
	assert.InDelta(t, 0.9, resp.Confidence, 1e-9)
	assert.Equal(t, []string{"employees"}, resp.Tables)
}

func TestParseSQLResponseTolerantFields(t *testing.T) {
	// confidence as string percentage, tables as comma-joined string,
	// sql under the "query" key
	resp := ParseSQLResponse(`{"query": "SELECT 1", "confidence": "85", "tables": "a, b"}`)
	assert.Equal(t, "SELECT 1", resp.SQL)
	assert.InDelta(t, 0.85, resp.Confidence, 1e-9)
	assert.Equal(t, []string{"a", "b"}, resp.Tables)
}

func TestParseSQLResponseCandidatesArray(t *testing.T) {
	resp := ParseSQLResponse(`{"candidates": ["SELECT 1", "SELECT 2"]}`)
	assert.Contains(t, resp.Candidates, "SELECT 1")
	assert.Contains(t, resp.Candidates, "---")
}

func TestParseSQLResponsePlainText(t *testing.T) {
	resp := ParseSQLResponse("Here is your query:\n```sql\nSELECT * FROM t\n```\nEnjoy.")
	assert.Equal(t, "SELECT * FROM t", resp.SQL)
	assert.Zero(t, resp.Confidence)
}

func TestParseSQLResponseBareSelect(t *testing.T) {
	resp := ParseSQLResponse("Sure!\nSELECT count(*) FROM orders")
	assert.Equal(t, "SELECT count(*) FROM orders", resp.SQL)
}

func TestExtractJSONWithThinkTags(t *testing.T) {
	out, err := ExtractJSON(`<think>pondering</think>{"sql": "SELECT 1"}`)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"sql": "SELECT 1"}`, out)
}

func TestExtractJSONNestedBraces(t *testing.T) {
	out, err := ExtractJSON(`prefix {"a": {"b": "}"}} suffix`)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"a": {"b": "}"}}`, out)
}

func TestExtractJSONNone(t *testing.T) {
	_, err := ExtractJSON("no json here")
	assert.Error(t, err)
}
