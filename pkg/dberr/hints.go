package dberr

// repairHints is the per-SQLSTATE guidance sent back to the generator on a
// repairable failure. Keep these short: they ride inside an already-long
// repair prompt.
var repairHints = map[string]string{
	"42601": "The SQL has a syntax error. Rewrite the statement with valid syntax.",
	"42702": "A column reference is ambiguous. Qualify it with its table alias.",
	"42703": "A referenced column does not exist. Use only the column names listed in the schema.",
	"42704": "A referenced object does not exist. Check table and type names against the schema.",
	"42803": "Aggregate usage is inconsistent. Every non-aggregated SELECT column must appear in GROUP BY.",
	"42804": "A comparison or assignment mixes incompatible types. Add an explicit cast.",
	"42883": "A function does not exist for these argument types. Check the function name and casts.",
	"42P01": "A referenced table does not exist. Use only the table names listed in the schema.",
	"42P18": "A parameter's type could not be determined. Add an explicit cast.",
	"42P20": "A window function is used incorrectly. Check the OVER clause.",
	"22012": "The query divides by zero. Guard the divisor with NULLIF(divisor, 0).",
	"22003": "A numeric value overflows its type. Cast to a wider numeric type.",
	"22007": "A date/time literal is malformed. Use ISO format: YYYY-MM-DD.",
	"22P02": "A literal cannot be parsed as its target type. Check quoting and casts.",
	"21000": "A scalar subquery returned more than one row. Add LIMIT 1 or an aggregate.",
}

// timeoutHint is attached to ClassTimeout retries.
const timeoutHint = "The query timed out. Simplify it: fewer joins, tighter WHERE filters, or a smaller LIMIT."

// RepairHint returns guidance text for a classified error, or "" when the
// class does not retry.
func (e *Error) RepairHint() string {
	switch e.Class {
	case ClassTimeout:
		return timeoutHint
	case ClassRepairable:
		if hint, ok := repairHints[e.SQLState]; ok {
			return hint
		}
		return "The database rejected the query. Fix the reported error and regenerate."
	default:
		return ""
	}
}
