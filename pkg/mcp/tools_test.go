package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/llm"
	"github.com/sqlmend/sqlmend/pkg/pipeline"
	"github.com/sqlmend/sqlmend/pkg/schema"
)

func testDeps(t *testing.T) *Deps {
	t.Helper()

	sc := &schema.Context{
		DatabaseID: "hr",
		Tables: []schema.Table{
			{Name: "employees", Columns: []schema.Column{
				{Name: "id", IsPrimaryKey: true},
				{Name: "salary"},
				{Name: "department_id"},
			}},
			{Name: "departments", Columns: []schema.Column{
				{Name: "department_id", IsPrimaryKey: true},
				{Name: "department_name"},
			}},
			{Name: "audit_log", Columns: []schema.Column{{Name: "id"}}},
		},
		ForeignKeys: []schema.FKEdge{
			{FromTable: "employees", FromColumn: "department_id", ToTable: "departments", ToColumn: "department_id"},
		},
	}

	gen := llm.NewMockClient()
	gen.GenerateResponseFunc = func(context.Context, string, string, float64) (string, error) {
		return `{"sql": "SELECT salary FROM employees", "confidence": 0.9}`, nil
	}

	logger := zap.NewNop()
	return &Deps{
		Engine: pipeline.NewEngine(gen, nil, sc, pipeline.DefaultConfig(), logger),
		Schema: sc,
		Logger: logger,
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) string {
	t.Helper()

	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params":  params,
		"id":      1,
	})
	require.NoError(t, err)

	raw := srv.MCP().HandleMessage(context.Background(), msg)
	out, err := json.Marshal(raw)
	require.NoError(t, err)
	return string(out)
}

func TestToolsAreRegistered(t *testing.T) {
	srv := NewServer("1.0.0", testDeps(t))

	result := srv.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	out, err := json.Marshal(result)
	require.NoError(t, err)

	for _, name := range []string{"health", "ask", "plan_joins"} {
		assert.Contains(t, string(out), fmt.Sprintf("%q", name))
	}
}

func TestAskTool(t *testing.T) {
	srv := NewServer("1.0.0", testDeps(t))

	out := callTool(t, srv, "ask", map[string]any{"question": "employee salaries"})
	assert.Contains(t, out, "FROM employees")
	assert.Contains(t, out, "query_id")
}

func TestAskToolRequiresQuestion(t *testing.T) {
	srv := NewServer("1.0.0", testDeps(t))

	out := callTool(t, srv, "ask", map[string]any{"question": "   "})
	assert.Contains(t, out, "question is required")
}

func TestPlanJoinsTool(t *testing.T) {
	srv := NewServer("1.0.0", testDeps(t))

	out := callTool(t, srv, "plan_joins", map[string]any{"tables": "employees, departments"})
	assert.Contains(t, out, `\"connected\":true`)
	assert.Contains(t, out, "JOIN")
	assert.Contains(t, out, "department_id")
}

func TestPlanJoinsToolReportsDisconnected(t *testing.T) {
	srv := NewServer("1.0.0", testDeps(t))

	out := callTool(t, srv, "plan_joins", map[string]any{"tables": "employees,audit_log"})
	assert.Contains(t, out, `\"connected\":false`)
	assert.Contains(t, out, "disconnected")
}

func TestHealthTool(t *testing.T) {
	srv := NewServer("9.9.9", testDeps(t))

	out := callTool(t, srv, "health", nil)
	assert.True(t, strings.Contains(out, "9.9.9"))
	assert.Contains(t, out, "ok")
}
