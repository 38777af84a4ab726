package llm

import (
	"encoding/json"
	"strings"

	"github.com/sqlmend/sqlmend/pkg/jsonutil"
)

// SQLResponse is the parsed payload of one generation or repair call.
// Candidates holds the raw multi-candidate block when the generator returned
// several options; SQL holds the single (or first) statement.
type SQLResponse struct {
	SQL        string
	Candidates string
	Confidence float64
	Tables     []string
	Error      string
}

// rawSQLResponse mirrors the generator's JSON contract with tolerant field
// types: confidence arrives as a number or a string depending on the model,
// and tables as a list or a comma-joined string.
type rawSQLResponse struct {
	SQL        json.RawMessage `json:"sql"`
	Query      json.RawMessage `json:"query"` // some models use this key
	Candidates json.RawMessage `json:"candidates"`
	Confidence json.RawMessage `json:"confidence"`
	Tables     json.RawMessage `json:"tables"`
	Error      json.RawMessage `json:"error"`
}

// ParseSQLResponse decodes a raw completion into an SQLResponse. A JSON
// payload is preferred; a completion that is just SQL text (fenced or bare)
// still parses, with a zero confidence for the caller to default.
func ParseSQLResponse(response string) SQLResponse {
	raw, err := ParseJSONResponse[rawSQLResponse](response)
	if err != nil {
		return SQLResponse{SQL: ExtractSQLText(response)}
	}

	out := SQLResponse{
		SQL:   jsonutil.String(raw.SQL),
		Error: jsonutil.String(raw.Error),
	}
	if out.SQL == "" {
		out.SQL = jsonutil.String(raw.Query)
	}

	out.Confidence = jsonutil.Float(raw.Confidence)
	// Confidence sometimes arrives as a percentage.
	if out.Confidence > 1 {
		out.Confidence /= 100
	}

	out.Tables = jsonutil.StringList(raw.Tables)

	// Candidates may be a JSON array of statements or one delimited block.
	// Statements contain commas, so a scalar is kept whole rather than split.
	var candidates []string
	if err := json.Unmarshal(raw.Candidates, &candidates); err == nil && len(candidates) > 0 {
		out.Candidates = strings.Join(candidates, "\n---\n")
	} else {
		out.Candidates = jsonutil.String(raw.Candidates)
	}

	if out.SQL == "" && out.Candidates == "" && out.Error == "" {
		// JSON without a usable field; fall back to text extraction.
		out.SQL = ExtractSQLText(response)
	}
	return out
}
