package joinplan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/schema"
)

func edge(fromTable, fromCol, toTable, toCol string) schema.FKEdge {
	return schema.FKEdge{FromTable: fromTable, FromColumn: fromCol, ToTable: toTable, ToColumn: toCol}
}

func chainGraph() *Graph {
	// a -> b -> c
	return BuildGraph([]schema.FKEdge{
		edge("a", "b_id", "b", "id"),
		edge("b", "c_id", "c", "id"),
	}, GraphOptions{})
}

func TestPlanChainIncludesIntermediate(t *testing.T) {
	planner := NewPlanner(chainGraph(), PlanOptions{}, zap.NewNop())

	plan := planner.Plan([]string{"a", "c"})

	require.True(t, plan.Connected())
	require.Len(t, plan.Skeletons, 1)
	skeleton := plan.Skeletons[0]
	assert.ElementsMatch(t, []string{"a", "b", "c"}, skeleton.Tables)
	assert.Len(t, skeleton.Edges, 2)
}

func TestPlanDisconnectedReportedNotRaised(t *testing.T) {
	g := BuildGraph([]schema.FKEdge{
		edge("a", "b_id", "b", "id"),
		edge("x", "y_id", "y", "id"),
	}, GraphOptions{})
	planner := NewPlanner(g, PlanOptions{}, zap.NewNop())

	plan := planner.Plan([]string{"a", "x"})

	assert.False(t, plan.Connected())
	assert.Len(t, plan.Disconnected, 2)
	assert.Empty(t, plan.Skeletons)
}

func TestPlanUnknownTableIsOwnGroup(t *testing.T) {
	planner := NewPlanner(chainGraph(), PlanOptions{}, zap.NewNop())

	plan := planner.Plan([]string{"a", "ghost"})

	assert.False(t, plan.Connected())
}

func TestPlanSingleTable(t *testing.T) {
	planner := NewPlanner(chainGraph(), PlanOptions{}, zap.NewNop())

	plan := planner.Plan([]string{"b"})

	assert.True(t, plan.Connected())
	assert.Empty(t, plan.Skeletons)
}

func TestPlanScoredAlternates(t *testing.T) {
	// Diamond: a->b->d and a->c->d, plus a long way a->e->f->d.
	g := BuildGraph([]schema.FKEdge{
		edge("a", "b_id", "b", "id"),
		edge("b", "d_id", "d", "id"),
		edge("a", "c_id", "c", "id"),
		edge("c", "d_id", "d", "id"),
		edge("a", "e_id", "e", "id"),
		edge("e", "f_id", "f", "id"),
		edge("f", "d_id", "d", "id"),
	}, GraphOptions{})

	planner := NewPlanner(g, PlanOptions{
		ScoredPaths:   true,
		MaxAlternates: 3,
		LinkedTables:  []string{"b"},
	}, zap.NewNop())

	plan := planner.Plan([]string{"a", "d"})

	require.True(t, plan.Connected())
	require.GreaterOrEqual(t, len(plan.Skeletons), 2)
	// Ranked best-first.
	for i := 1; i < len(plan.Skeletons); i++ {
		assert.GreaterOrEqual(t, plan.Skeletons[i-1].Score, plan.Skeletons[i].Score)
	}
	// The linked intermediate (b) routing must beat the 3-hop routing.
	best := plan.Skeletons[0]
	assert.Len(t, best.Edges, 2)
	assert.Contains(t, best.Tables, "b")
}

func TestKShortestPaths(t *testing.T) {
	g := BuildGraph([]schema.FKEdge{
		edge("a", "b_id", "b", "id"),
		edge("b", "d_id", "d", "id"),
		edge("a", "c_id", "c", "id"),
		edge("c", "d_id", "d", "id"),
	}, GraphOptions{})

	paths := kShortestPaths(g, "a", "d", 5)

	require.Len(t, paths, 2)
	assert.Len(t, paths[0], 2)
	assert.Len(t, paths[1], 2)
}

func TestHubCapping(t *testing.T) {
	// hub references ten tables; cap keeps the relevant neighbor reachable.
	var edges []schema.FKEdge
	for _, n := range []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "wanted"} {
		edges = append(edges, edge("hub", n+"_id", n, "id"))
	}

	g := BuildGraph(edges, GraphOptions{
		HubDegreeLimit: 5,
		HubMaxEdges:    3,
		RelevantTables: []string{"wanted"},
	})

	assert.Equal(t, 3, g.Degree("hub"))
	assert.NotNil(t, g.shortestPath("hub", "wanted", nil, nil))
}

func TestRenderJoin(t *testing.T) {
	planner := NewPlanner(chainGraph(), PlanOptions{}, zap.NewNop())
	plan := planner.Plan([]string{"a", "c"})
	require.Len(t, plan.Skeletons, 1)

	fragment := plan.Skeletons[0].RenderJoin()

	lines := strings.Split(fragment, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a", lines[0])
	assert.Contains(t, fragment, "JOIN b ON a.b_id = b.id")
	assert.Contains(t, fragment, "JOIN c ON b.c_id = c.id")
}

func TestCrossModuleBridge(t *testing.T) {
	g := BuildGraph([]schema.FKEdge{
		edge("orders", "link_id", "link", "id"),
		edge("link", "ledger_id", "ledger", "id"),
	}, GraphOptions{})

	planner := NewPlanner(g, PlanOptions{
		Modules: map[string]string{"orders": "sales", "ledger": "finance"},
	}, zap.NewNop())

	plan := planner.Plan([]string{"orders", "ledger"})

	require.True(t, plan.Connected())
	assert.True(t, plan.CrossModule)
	assert.Contains(t, plan.BridgeTables, "link")
}

func TestCacheSharingAndInvalidation(t *testing.T) {
	cache := NewCache(zap.NewNop())
	edges := []schema.FKEdge{edge("a", "b_id", "b", "id")}
	hash := schema.EdgeHash(edges)

	builds := 0
	build := func() *Graph {
		builds++
		return BuildGraph(edges, GraphOptions{})
	}

	first := cache.GetOrBuild(hash, build)
	second := cache.GetOrBuild(hash, build)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)

	cache.Invalidate(hash)
	cache.GetOrBuild(hash, build)
	assert.Equal(t, 2, builds)
}
