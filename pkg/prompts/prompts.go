// Package prompts assembles the generation and repair prompts sent to the
// external generator. Only text assembly lives here; what goes into the
// context (schema packet, issues, whitelist) is the orchestrator's call.
package prompts

import (
	"fmt"
	"strings"

	"github.com/sqlmend/sqlmend/pkg/schema"
)

// SystemMessage is the fixed system prompt for both generation and repair.
const SystemMessage = `You are a SQL generation assistant for a read-only analytics database.
Respond with JSON: {"sql": "<one SELECT statement>", "confidence": <0..1>, "tables": [<tables used>]}.
Rules: exactly one SELECT statement; no DDL/DML; use only tables and columns from the provided schema; prefer explicit JOIN ... ON syntax.`

// MultiCandidateInstruction is appended when the caller wants K options.
const MultiCandidateInstruction = `Return %d alternative SELECT statements in the "candidates" field, separated by a line containing only "---". Order them best first.`

// GenerateInput is everything a fresh generation prompt needs.
type GenerateInput struct {
	Question      string
	DatabaseID    string
	Schema        *schema.Context
	JoinHint      string // rendered join skeleton, optional
	MaxColumns    int    // per-table column cap for schema rendering
	NumCandidates int    // >1 requests a multi-candidate block
}

// BuildGenerate assembles the first-attempt prompt.
func BuildGenerate(in GenerateInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Database: %s\n\n", in.DatabaseID)
	b.WriteString("Schema:\n")
	b.WriteString(in.Schema.Render(in.MaxColumns))
	b.WriteByte('\n')

	if in.JoinHint != "" {
		b.WriteString("Suggested join path:\n")
		b.WriteString(in.JoinHint)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Question: %s\n", in.Question)

	if in.NumCandidates > 1 {
		b.WriteByte('\n')
		fmt.Fprintf(&b, MultiCandidateInstruction, in.NumCandidates)
		b.WriteByte('\n')
	}
	return b.String()
}

// RepairInput carries the accumulated failure context of one repair attempt.
type RepairInput struct {
	Question    string
	DatabaseID  string
	Schema      *schema.Context
	MaxColumns  int
	PreviousSQL string
	// Issues are validator/lint findings, already formatted one per line.
	Issues []string
	// DBErrorText is the database's own message, if execution or the
	// safety check failed.
	DBErrorText string
	// Hint is the SQLSTATE-keyed guidance from pkg/dberr.
	Hint string
	// Whitelist is the rendered surgical column whitelist for
	// undefined-column errors. Replaces the full schema when present.
	Whitelist string
	Attempt   int
}

// BuildRepair assembles a repair prompt. When a surgical whitelist is
// present the full schema is withheld: the scoped column list is the point.
func BuildRepair(in RepairInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Database: %s\n\n", in.DatabaseID)

	if in.Whitelist != "" {
		b.WriteString(in.Whitelist)
		b.WriteString("\n\n")
	} else {
		b.WriteString("Schema:\n")
		b.WriteString(in.Schema.Render(in.MaxColumns))
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "Question: %s\n\n", in.Question)
	fmt.Fprintf(&b, "Your previous SQL (attempt %d) failed:\n%s\n\n", in.Attempt, in.PreviousSQL)

	if len(in.Issues) > 0 {
		b.WriteString("Validation problems:\n")
		for _, issue := range in.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteByte('\n')
	}
	if in.DBErrorText != "" {
		fmt.Fprintf(&b, "Database error:\n%s\n\n", in.DBErrorText)
	}
	if in.Hint != "" {
		fmt.Fprintf(&b, "Guidance: %s\n\n", in.Hint)
	}

	b.WriteString("Produce a corrected SELECT statement that fixes these problems without changing the question's meaning.\n")
	return b.String()
}
