package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/joinplan"
	"github.com/sqlmend/sqlmend/pkg/pipeline"
)

type healthResult struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// RegisterHealthTool adds a health check tool returning status and version.
func RegisterHealthTool(s *server.MCPServer, version string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := json.Marshal(healthResult{Status: "ok", Version: version})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}

// RegisterAskTool adds the ask tool: natural-language question in, validated
// SQL plus rows and the attempt trace out.
func RegisterAskTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"ask",
		mcp.WithDescription(
			"Answer a natural-language question against the configured database. "+
				"Generates SQL, validates and safety-checks it, repairs failures, executes, "+
				"and returns rows with the per-attempt trace. "+
				"Example: ask(question='total salary by department')",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The natural-language question to answer"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := strings.TrimSpace(requireString(req, "question"))
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		resp, err := deps.Engine.Answer(ctx, question)
		if err != nil {
			var failure *pipeline.Failure
			if errors.As(err, &failure) {
				payload, merr := json.Marshal(failure)
				if merr == nil {
					return mcp.NewToolResultError(string(payload)), nil
				}
			}
			deps.Logger.Error("ask tool failed", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		payload, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal query response: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}

type planJoinsResult struct {
	Required     []string   `json:"required"`
	Connected    bool       `json:"connected"`
	Disconnected [][]string `json:"disconnected,omitempty"`
	CrossModule  bool       `json:"cross_module,omitempty"`
	BridgeTables []string   `json:"bridge_tables,omitempty"`
	Skeletons    []skeleton `json:"skeletons,omitempty"`
}

type skeleton struct {
	Tables []string `json:"tables"`
	Join   string   `json:"join"`
	Score  float64  `json:"score"`
}

// RegisterPlanJoinsTool adds the plan_joins tool: given table names, report
// the ranked join skeletons the FK graph supports.
func RegisterPlanJoinsTool(s *server.MCPServer, deps *Deps) {
	tool := mcp.NewTool(
		"plan_joins",
		mcp.WithDescription(
			"Plan join paths connecting the given tables over the schema's foreign keys. "+
				"Returns ranked join skeletons, or the disconnected table groups when no path exists. "+
				"Example: plan_joins(tables='employees,departments')",
		),
		mcp.WithString(
			"tables",
			mcp.Required(),
			mcp.Description("Comma-separated table names to connect"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var required []string
		for _, t := range strings.Split(requireString(req, "tables"), ",") {
			if t = strings.TrimSpace(t); t != "" {
				required = append(required, t)
			}
		}
		if len(required) == 0 {
			return mcp.NewToolResultError("tables is required"), nil
		}

		graph := joinplan.BuildGraph(deps.Schema.ForeignKeys, joinplan.GraphOptions{
			RelevantTables: required,
		})
		modules := make(map[string]string, len(deps.Schema.Tables))
		for _, t := range deps.Schema.Tables {
			if t.Module != "" {
				modules[t.Name] = t.Module
			}
		}
		planner := joinplan.NewPlanner(graph, joinplan.PlanOptions{
			ScoredPaths: true,
			Modules:     modules,
		}, deps.Logger)
		plan := planner.Plan(required)

		out := planJoinsResult{
			Required:     required,
			Connected:    plan.Connected(),
			CrossModule:  plan.CrossModule,
			BridgeTables: plan.BridgeTables,
		}
		if !plan.Connected() {
			out.Disconnected = plan.Disconnected
		}
		for _, sk := range plan.Skeletons {
			out.Skeletons = append(out.Skeletons, skeleton{
				Tables: sk.Tables,
				Join:   sk.RenderJoin(),
				Score:  sk.Score,
			})
		}

		payload, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal plan result: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}

// requireString pulls a string argument out of the request, "" when absent.
func requireString(req mcp.CallToolRequest, name string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := args[name].(string)
	return s
}
