package dberr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPgError(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		wantClass Class
		retryable bool
		spends    bool
	}{
		{"undefined column", "42703", ClassRepairable, true, true},
		{"undefined table", "42P01", ClassRepairable, true, true},
		{"syntax error", "42601", ClassRepairable, true, true},
		{"division by zero", "22012", ClassRepairable, true, true},
		{"statement timeout", "57014", ClassTimeout, true, true},
		{"admin shutdown", "57P01", ClassTimeout, true, true},
		{"permission denied", "42501", ClassValidationBlock, false, true},
		{"feature unsupported", "0A000", ClassValidationBlock, false, true},
		{"connection failure", "08006", ClassInfra, false, false},
		{"out of memory", "53200", ClassInfra, false, false},
		{"internal error", "XX000", ClassInfra, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(&pgconn.PgError{Code: tt.code, Message: tt.name})
			require.NotNil(t, err)
			assert.Equal(t, tt.wantClass, err.Class)
			assert.Equal(t, tt.retryable, err.IsRetryable())
			assert.Equal(t, tt.spends, err.Class.SpendsBudget())
			assert.Equal(t, tt.code, err.SQLState)
		})
	}
}

func TestClassifyCarriesStructuredFields(t *testing.T) {
	err := Classify(&pgconn.PgError{
		Code:     "42703",
		Message:  `column "e.firstname" does not exist`,
		Hint:     `Perhaps you meant to reference the column "e.first_name".`,
		Position: 8,
	})
	require.NotNil(t, err)
	assert.True(t, err.UndefinedColumn())
	assert.Contains(t, err.Hint, "first_name")
	assert.Equal(t, 8, err.Position)
}

func TestClassifyWrappedSQLState(t *testing.T) {
	wrapped := fmt.Errorf("explain failed: %w",
		errors.New(`ERROR: relation "orders" does not exist (SQLSTATE 42P01)`))
	err := Classify(wrapped)
	require.NotNil(t, err)
	assert.Equal(t, "42P01", err.SQLState)
	assert.Equal(t, ClassRepairable, err.Class)
	assert.True(t, err.UndefinedTable())
}

func TestClassifyMSSQL(t *testing.T) {
	err := Classify(mssql.Error{Number: 207, Message: "Invalid column name 'firstname'."})
	require.NotNil(t, err)
	assert.Equal(t, "42703", err.SQLState)
	assert.Equal(t, ClassRepairable, err.Class)
	assert.True(t, err.UndefinedColumn())
}

func TestClassifyUnknown(t *testing.T) {
	err := Classify(errors.New("something odd happened"))
	require.NotNil(t, err)
	assert.Equal(t, ClassUnknown, err.Class)
	assert.False(t, err.IsRetryable())
}

func TestClassifyNil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassifyIdempotent(t *testing.T) {
	first := Classify(&pgconn.PgError{Code: "42703", Message: "boom"})
	second := Classify(fmt.Errorf("wrapped: %w", first))
	assert.Same(t, first, second)
}

func TestRepairHint(t *testing.T) {
	col := Classify(&pgconn.PgError{Code: "42703", Message: "x"})
	assert.Contains(t, col.RepairHint(), "column")

	timeout := Classify(&pgconn.PgError{Code: "57014", Message: "canceled"})
	assert.Contains(t, timeout.RepairHint(), "Simplify")

	infra := Classify(&pgconn.PgError{Code: "08006", Message: "gone"})
	assert.Empty(t, infra.RepairHint())
}
