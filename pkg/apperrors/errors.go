// Package apperrors holds sentinel errors shared across packages.
package apperrors

import "errors"

var (
	ErrNoCandidates      = errors.New("no usable SQL candidates")
	ErrAttemptsExhausted = errors.New("repair attempt budget exhausted")
	ErrUnsafeSQL         = errors.New("statement failed safety validation")
	ErrTableNotFound     = errors.New("table not in schema context")
	ErrDriverUnknown     = errors.New("unknown datasource driver")
	ErrGeneratorEmpty    = errors.New("generator returned no SQL")
)
