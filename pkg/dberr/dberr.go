// Package dberr classifies database errors into retry categories and carries
// the structured fields (SQLSTATE, hint, detail, position) the repair loop
// needs to build targeted fix prompts.
package dberr

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
)

// Class is the retry category of a database error. Every error maps to
// exactly one class.
type Class string

const (
	// ClassInfra covers connection, resource, and internal server errors.
	// Never retried; the attempt budget is not spent.
	ClassInfra Class = "infra_failure"
	// ClassTimeout covers statement-timeout cancellation and server
	// shutdown. Retryable with a simplification hint; spends the budget.
	ClassTimeout Class = "query_timeout"
	// ClassValidationBlock covers permission and feature-support errors,
	// plus this engine's own fail-fast findings. Never retried.
	ClassValidationBlock Class = "validation_block"
	// ClassRepairable covers syntax errors, undefined references, type
	// mismatches, grouping errors, and data exceptions. Retried with a
	// SQLSTATE-keyed hint.
	ClassRepairable Class = "sql_error"
	// ClassUnknown is everything else. Logged, never retried.
	ClassUnknown Class = "unknown"
)

// Retryable reports whether the repair loop may attempt another generation
// after an error of this class.
func (c Class) Retryable() bool {
	return c == ClassTimeout || c == ClassRepairable
}

// SpendsBudget reports whether the failed attempt counts against the attempt
// budget. Infrastructure failures are not the generator's fault.
func (c Class) SpendsBudget() bool {
	return c != ClassInfra
}

// Error is a classified database error.
type Error struct {
	SQLState string
	Message  string
	Hint     string
	Detail   string
	Position int
	Class    Class
	Cause    error
}

func (e *Error) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("%s (SQLSTATE %s)", e.Message, e.SQLState)
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Class.Retryable()
}

// UndefinedColumn reports whether the error is the undefined-column failure
// the autocorrect engine knows how to repair.
func (e *Error) UndefinedColumn() bool {
	return e.SQLState == "42703" || mssqlInvalidColumn.MatchString(e.Message)
}

// UndefinedTable reports whether the error names a missing relation.
func (e *Error) UndefinedTable() bool {
	return e.SQLState == "42P01" || mssqlInvalidObject.MatchString(e.Message)
}

// sqlStateRegex matches SQLSTATE codes embedded in wrapped error text, the
// form pgx renders: "... (SQLSTATE 42703)".
var sqlStateRegex = regexp.MustCompile(`\(SQLSTATE ([0-9A-Z]{5})\)`)

var (
	mssqlInvalidColumn = regexp.MustCompile(`[Ii]nvalid column name`)
	mssqlInvalidObject = regexp.MustCompile(`[Ii]nvalid object name`)
)

// Classify builds a structured Error from whatever the driver returned.
// Recognizes pgconn.PgError, mssql.Error, an already-classified *Error, and
// SQLSTATE codes embedded in wrapped message text.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{
			SQLState: pgErr.Code,
			Message:  pgErr.Message,
			Hint:     pgErr.Hint,
			Detail:   pgErr.Detail,
			Position: int(pgErr.Position),
			Class:    classifySQLState(pgErr.Code),
			Cause:    err,
		}
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		state := mssqlSQLState(msErr.Number)
		return &Error{
			SQLState: state,
			Message:  msErr.Message,
			Class:    classifySQLState(state),
			Cause:    err,
		}
	}

	if m := sqlStateRegex.FindStringSubmatch(err.Error()); m != nil {
		return &Error{
			SQLState: m[1],
			Message:  err.Error(),
			Class:    classifySQLState(m[1]),
			Cause:    err,
		}
	}

	return &Error{Message: err.Error(), Class: ClassUnknown, Cause: err}
}

// repairableStates are the SQLSTATEs a regenerated query can plausibly fix.
var repairableStates = map[string]bool{
	"42601": true, // syntax error
	"42702": true, // ambiguous column
	"42703": true, // undefined column
	"42704": true, // undefined object
	"42803": true, // grouping error
	"42804": true, // datatype mismatch
	"42883": true, // undefined function
	"42P01": true, // undefined table
	"42P18": true, // indeterminate datatype
	"42P20": true, // windowing error
	"22012": true, // division by zero
	"22003": true, // numeric value out of range
	"22007": true, // invalid datetime format
	"22P02": true, // invalid text representation
	"21000": true, // cardinality violation (scalar subquery returned rows)
}

var timeoutStates = map[string]bool{
	"57014": true, // query_canceled (statement timeout)
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
}

var blockedStates = map[string]bool{
	"42501": true, // insufficient_privilege
	"0A000": true, // feature_not_supported
}

func classifySQLState(code string) Class {
	if code == "" {
		return ClassUnknown
	}
	if timeoutStates[code] {
		return ClassTimeout
	}
	if blockedStates[code] {
		return ClassValidationBlock
	}
	if repairableStates[code] {
		return ClassRepairable
	}

	switch code[:2] {
	case "08", "53", "54", "58", "XX", "F0":
		// connection exceptions, resource limits, program limits, system
		// errors, internal errors, config file errors
		return ClassInfra
	case "2F", "38":
		// SQL routine / external routine exceptions: the statement touched
		// something generated SQL has no business touching
		return ClassValidationBlock
	case "22", "42":
		// remaining data exceptions and access-rule violations are worth a
		// regeneration attempt even without a dedicated hint
		return ClassRepairable
	}
	return ClassUnknown
}

// mssqlSQLState maps SQL Server error numbers onto the nearest SQLSTATE so
// the rest of the engine speaks one classification language.
func mssqlSQLState(number int32) string {
	switch number {
	case 207: // invalid column name
		return "42703"
	case 208: // invalid object name
		return "42P01"
	case 209: // ambiguous column name
		return "42702"
	case 102, 156: // syntax errors
		return "42601"
	case 8117, 245: // operand/conversion type clash
		return "42804"
	case 8134: // divide by zero
		return "22012"
	case 229, 230: // permission denied
		return "42501"
	case 1205: // deadlock victim
		return "40P01"
	case -2: // client-side query timeout
		return "57014"
	default:
		return ""
	}
}
