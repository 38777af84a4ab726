package sql

import (
	"regexp"
	"strings"
)

// dangerousKeywords are statement verbs that must never appear in generated
// SQL. Word-boundary matched against code spans only, so literals like
// 'DROP ME A LINE' do not trip the check.
var dangerousKeywords = []string{
	// DDL
	"CREATE", "ALTER", "DROP", "TRUNCATE", "RENAME", "COMMENT",
	// DML
	"INSERT", "UPDATE", "DELETE", "MERGE", "UPSERT", "REPLACE",
	// DCL
	"GRANT", "REVOKE",
	// TCL / session
	"COMMIT", "ROLLBACK", "SAVEPOINT", "BEGIN", "VACUUM", "ANALYZE",
	"REINDEX", "CLUSTER", "LISTEN", "NOTIFY", "PREPARE", "EXECUTE",
	"DEALLOCATE", "DECLARE", "COPY", "CALL", "DO", "SET", "RESET", "LOCK",
}

// dangerousFunctions are file, admin, and cross-database functions that leak
// data or touch the host even inside a SELECT.
var dangerousFunctions = []string{
	"pg_read_file", "pg_read_binary_file", "pg_ls_dir", "pg_stat_file",
	"pg_terminate_backend", "pg_cancel_backend", "pg_reload_conf",
	"pg_rotate_logfile", "pg_sleep", "pg_sleep_for", "pg_sleep_until",
	"lo_import", "lo_export", "dblink", "dblink_exec", "dblink_connect",
	"copy_from", "copy_to", "openrowset", "opendatasource", "xp_cmdshell",
	"sp_executesql", "current_setting", "set_config",
}

// reservedReferenceWords are SQL keywords and builtin functions that can be
// mistaken for column references by error-message parsing (EXTRACT(YEAR ...)
// producing column "year" does not exist). Repair must never treat these as
// correctable references.
var reservedReferenceWords = map[string]bool{
	"year": true, "month": true, "day": true, "hour": true, "minute": true,
	"second": true, "quarter": true, "week": true, "dow": true, "doy": true,
	"epoch": true, "count": true, "sum": true, "avg": true, "min": true,
	"max": true, "date": true, "time": true, "timestamp": true,
	"interval": true, "extract": true, "cast": true, "coalesce": true,
	"nullif": true, "greatest": true, "least": true, "now": true,
	"current_date": true, "current_time": true, "current_timestamp": true,
	"user": true, "exists": true, "any": true, "all": true, "some": true,
	"true": true, "false": true, "null": true, "unknown": true,
}

// aggregateFunctions are the functions the linter treats as aggregating.
var aggregateFunctions = []string{
	"count", "sum", "avg", "min", "max", "array_agg", "string_agg",
	"bool_and", "bool_or", "json_agg", "jsonb_agg", "stddev", "variance",
}

// IsReservedReferenceWord reports whether name is a SQL keyword or builtin
// function rather than a plausible column name.
func IsReservedReferenceWord(name string) bool {
	return reservedReferenceWords[strings.ToLower(name)]
}

// wordPatterns holds precompiled case-insensitive word-boundary patterns for
// the fixed keyword sets. Built once at init so lookups are safe to share
// across concurrent questions.
var wordPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	for _, set := range [][]string{dangerousKeywords, dangerousFunctions} {
		for _, w := range set {
			patterns[w] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(w) + `\b`)
		}
	}
	return patterns
}()

// containsWord reports whether text contains w as a whole word, ignoring case.
// w must belong to one of the precompiled keyword sets.
func containsWord(text, w string) bool {
	return wordPatterns[w].MatchString(text)
}
