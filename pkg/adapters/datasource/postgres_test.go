package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/dberr"
	"github.com/sqlmend/sqlmend/pkg/testhelpers"
)

func newTestExecutor(t *testing.T) *PostgresExecutor {
	t.Helper()
	db := testhelpers.GetTestDB(t)

	exec, err := NewPostgresExecutor(context.Background(), Config{
		Driver:          "postgres",
		DSN:             db.ConnStr,
		MaxConns:        4,
		ValidateTimeout: 3 * time.Second,
		ExecuteTimeout:  10 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(exec.Close)
	return exec
}

func TestPostgresValidateQuery(t *testing.T) {
	exec := newTestExecutor(t)
	ctx := context.Background()

	err := exec.ValidateQuery(ctx, "SELECT first_name, last_name FROM employees")
	assert.NoError(t, err)
}

func TestPostgresValidateQueryUndefinedColumn(t *testing.T) {
	exec := newTestExecutor(t)
	ctx := context.Background()

	err := exec.ValidateQuery(ctx, "SELECT firstname FROM employees")
	require.Error(t, err)

	var dbErr *dberr.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "42703", dbErr.SQLState)
	assert.Equal(t, dberr.ClassRepairable, dbErr.Class)
	assert.True(t, dbErr.UndefinedColumn())
}

func TestPostgresValidateQueryUndefinedTable(t *testing.T) {
	exec := newTestExecutor(t)
	ctx := context.Background()

	err := exec.ValidateQuery(ctx, "SELECT * FROM payroll")
	require.Error(t, err)

	var dbErr *dberr.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "42P01", dbErr.SQLState)
	assert.True(t, dbErr.UndefinedTable())
}

func TestPostgresExecuteQuery(t *testing.T) {
	exec := newTestExecutor(t)
	ctx := context.Background()

	result, err := exec.ExecuteQuery(ctx,
		`SELECT e.first_name, d.name AS department
		 FROM employees e
		 JOIN departments d ON d.id = e.department_id
		 ORDER BY e.id`)
	require.NoError(t, err)

	assert.Equal(t, []string{"first_name", "department"}, result.Columns)
	assert.Equal(t, 3, result.RowCount)
	assert.Equal(t, "Ada", result.Rows[0]["first_name"])
	assert.Equal(t, "Engineering", result.Rows[0]["department"])
}

func TestPostgresExecuteQuerySyntaxError(t *testing.T) {
	exec := newTestExecutor(t)
	ctx := context.Background()

	_, err := exec.ExecuteQuery(ctx, "SELEC 1")
	require.Error(t, err)

	var dbErr *dberr.Error
	require.True(t, errors.As(err, &dbErr))
	assert.Equal(t, "42601", dbErr.SQLState)
	assert.Equal(t, dberr.ClassRepairable, dbErr.Class)
}

func TestPostgresPing(t *testing.T) {
	exec := newTestExecutor(t)
	assert.NoError(t, exec.Ping(context.Background()))
}
