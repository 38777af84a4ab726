// Package testhelpers provides a shared PostgreSQL container for
// integration tests. The container starts once per test run and is seeded
// with a small HR schema that the repair and planner tests exercise.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the stock image used for integration tests.
const PostgresImage = "postgres:16-alpine"

// seedSchema is applied once after the container is reachable. It mirrors
// the shapes the engine is tested against: snake_case columns that common
// misspellings ("firstname", "employeename") miss, and an FK the join
// planner can walk.
const seedSchema = `
CREATE TABLE departments (
    id   BIGINT PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE employees (
    id            BIGINT PRIMARY KEY,
    first_name    TEXT NOT NULL,
    last_name     TEXT NOT NULL,
    hire_date     DATE NOT NULL,
    salary        NUMERIC(12,2) NOT NULL,
    department_id BIGINT REFERENCES departments(id)
);

INSERT INTO departments (id, name) VALUES
    (1, 'Engineering'),
    (2, 'Sales');

INSERT INTO employees (id, first_name, last_name, hire_date, salary, department_id) VALUES
    (1, 'Ada',   'Lovelace', '2019-03-01', 142000, 1),
    (2, 'Grace', 'Hopper',   '2020-07-15', 138000, 1),
    (3, 'Erin',  'Seller',   '2021-01-10',  90000, 2);
`

// TestDB holds the shared test database container and connection pool.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared seeded PostgreSQL container. The container is
// created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "sqlmend_test",
			"POSTGRES_USER":     "sqlmend",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://sqlmend:test_password@%s:%s/sqlmend_test?sslmode=disable",
		host, port.Port())

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// The ready log can race the postmaster restart; retry the first ping.
	var pingErr error
	for i := 0; i < 10; i++ {
		if pingErr = pool.Ping(ctx); pingErr == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("test database never became reachable: %w", pingErr)
	}

	if _, err := pool.Exec(ctx, seedSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to seed test schema: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
	}, nil
}
