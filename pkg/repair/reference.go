package repair

import (
	"regexp"
	"strings"

	sqlpkg "github.com/sqlmend/sqlmend/pkg/sql"
)

// FailingReference is the column reference a database error complained about.
// Alias is the qualifier as written in the SQL (may be a table name or empty),
// Table is set only when the error message itself named the relation.
type FailingReference struct {
	Alias  string
	Column string
	Table  string
	Raw    string
}

// Qualified reports whether the reference carries an alias qualifier.
func (r FailingReference) Qualified() bool {
	return r.Alias != ""
}

var (
	// column "e.first_name" does not exist
	quotedQualifiedPattern = regexp.MustCompile(`column "([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*)" does not exist`)
	// column "first_name" of relation "employees" does not exist
	quotedOfRelationPattern = regexp.MustCompile(`column "([A-Za-z_][A-Za-z0-9_]*)" of relation "([A-Za-z_][A-Za-z0-9_]*)" does not exist`)
	// column "first_name" does not exist
	quotedUnqualifiedPattern = regexp.MustCompile(`column "([A-Za-z_][A-Za-z0-9_]*)" does not exist`)
	// column e.first_name does not exist
	unquotedQualifiedPattern = regexp.MustCompile(`column ([A-Za-z_][A-Za-z0-9_]*)\.([A-Za-z_][A-Za-z0-9_]*) does not exist`)
	// Invalid column name 'first_name'. (SQL Server)
	mssqlColumnPattern = regexp.MustCompile(`[Ii]nvalid column name '([A-Za-z_][A-Za-z0-9_]*)'`)
)

// ParseFailingReference extracts the failing column reference from a database
// error message. When the message names a bare column, the SQL is scanned for
// an alias-qualified use of that column to recover the qualifier.
func ParseFailingReference(errMsg, sql string) (FailingReference, bool) {
	if m := quotedQualifiedPattern.FindStringSubmatch(errMsg); m != nil {
		return FailingReference{Alias: m[1], Column: m[2], Raw: m[1] + "." + m[2]}, true
	}
	if m := quotedOfRelationPattern.FindStringSubmatch(errMsg); m != nil {
		ref := FailingReference{Column: m[1], Table: m[2], Raw: m[1]}
		ref.Alias = aliasForColumn(sql, m[1])
		return ref, true
	}
	if m := quotedUnqualifiedPattern.FindStringSubmatch(errMsg); m != nil {
		ref := FailingReference{Column: m[1], Raw: m[1]}
		ref.Alias = aliasForColumn(sql, m[1])
		return ref, true
	}
	if m := unquotedQualifiedPattern.FindStringSubmatch(errMsg); m != nil {
		return FailingReference{Alias: m[1], Column: m[2], Raw: m[1] + "." + m[2]}, true
	}
	if m := mssqlColumnPattern.FindStringSubmatch(errMsg); m != nil {
		ref := FailingReference{Column: m[1], Raw: m[1]}
		ref.Alias = aliasForColumn(sql, m[1])
		return ref, true
	}
	return FailingReference{}, false
}

// aliasForColumn scans the SQL's code text for "<ident>.<column>" and returns
// the qualifier of the first hit. Returns "" when the column only appears
// bare.
func aliasForColumn(sql, column string) string {
	code := sqlpkg.CodeOnly(sql)
	pattern := regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\.` + regexp.QuoteMeta(column) + `\b`)
	m := pattern.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}

// AmbiguityPolicy controls what happens when the failing reference's alias
// cannot be resolved to a single table.
type AmbiguityPolicy int

const (
	// AmbiguityFail treats an unresolved alias as a hard gating failure.
	AmbiguityFail AmbiguityPolicy = iota
	// AmbiguityWiden falls back to every FROM/JOIN table in the query.
	// Deliberately imprecise: a query with several unaliased joins widens
	// the candidate scope to tables unrelated to the failing reference.
	AmbiguityWiden
)

// Resolution is the table scope a failing reference resolved to.
type Resolution struct {
	Tables    []string
	Ambiguous bool
	Widened   bool
}

// ResolveAlias maps the failing reference to the table(s) its qualifier
// denotes. Order of preference: the relation named by the error itself, the
// FROM/JOIN alias map, then the ambiguity policy fallback.
func ResolveAlias(ref FailingReference, sql string, policy AmbiguityPolicy) Resolution {
	if ref.Table != "" {
		return Resolution{Tables: []string{strings.ToLower(ref.Table)}}
	}

	aliases := sqlpkg.AliasMap(sql)
	if ref.Alias != "" {
		if table, ok := aliases[strings.ToLower(ref.Alias)]; ok {
			return Resolution{Tables: []string{strings.ToLower(table)}}
		}
	}

	if policy == AmbiguityFail {
		return Resolution{Ambiguous: true}
	}

	tables := sqlpkg.ReferencedTables(sql)
	if len(tables) == 0 {
		return Resolution{Ambiguous: true}
	}
	lowered := make([]string, len(tables))
	for i, t := range tables {
		lowered[i] = strings.ToLower(t)
	}
	return Resolution{Tables: lowered, Widened: true}
}
