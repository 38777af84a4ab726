// Package joinplan builds foreign-key graphs from schema metadata and
// computes join skeletons connecting a required set of tables.
package joinplan

import (
	"sort"
	"strings"

	"github.com/sqlmend/sqlmend/pkg/schema"
)

// graphEdge is one traversable direction of an FK edge.
type graphEdge struct {
	neighbor string        // lowercased neighbor table
	edge     schema.FKEdge // the underlying FK, in its declared direction
	reversed bool          // true when traversal goes child <- parent
}

// GraphOptions tunes graph construction.
type GraphOptions struct {
	// HubDegreeLimit is the FK degree above which a table is treated as a hub
	// and its adjacency capped. Zero disables capping.
	HubDegreeLimit int
	// HubMaxEdges is how many edges a capped hub keeps.
	HubMaxEdges int
	// RelevantTables are kept first when capping a hub (typically the tables
	// the schema linker already selected for the question).
	RelevantTables []string
}

// Graph is a bidirectionally traversable view over FK edges. Immutable once
// built; safe to share across concurrent questions.
type Graph struct {
	adjacency map[string][]graphEdge
	names     map[string]string // lowercased -> original spelling
	edgeCount int
}

// BuildGraph constructs the graph from FK metadata. Every edge is inserted in
// both directions. Hub tables (degree above HubDegreeLimit) keep at most
// HubMaxEdges edges, prioritizing relevant neighbors, so pathological
// reference tables (a tenant_id on every table) do not blow up path search.
func BuildGraph(edges []schema.FKEdge, opts GraphOptions) *Graph {
	g := &Graph{
		adjacency: make(map[string][]graphEdge),
		names:     make(map[string]string),
	}

	for _, e := range edges {
		from := strings.ToLower(e.FromTable)
		to := strings.ToLower(e.ToTable)
		g.names[from] = e.FromTable
		g.names[to] = e.ToTable
		g.adjacency[from] = append(g.adjacency[from], graphEdge{neighbor: to, edge: e})
		g.adjacency[to] = append(g.adjacency[to], graphEdge{neighbor: from, edge: e, reversed: true})
		g.edgeCount++
	}

	if opts.HubDegreeLimit > 0 {
		g.capHubs(opts)
	}
	return g
}

func (g *Graph) capHubs(opts GraphOptions) {
	relevant := make(map[string]bool, len(opts.RelevantTables))
	for _, t := range opts.RelevantTables {
		relevant[strings.ToLower(t)] = true
	}

	maxEdges := opts.HubMaxEdges
	if maxEdges <= 0 {
		maxEdges = opts.HubDegreeLimit
	}

	for table, edges := range g.adjacency {
		if len(edges) <= opts.HubDegreeLimit {
			continue
		}
		// Stable partition: relevant neighbors first, original order otherwise.
		sort.SliceStable(edges, func(i, j int) bool {
			return relevant[edges[i].neighbor] && !relevant[edges[j].neighbor]
		})
		g.adjacency[table] = edges[:maxEdges]
	}
}

// HasTable reports whether the graph knows the table.
func (g *Graph) HasTable(table string) bool {
	_, ok := g.adjacency[strings.ToLower(table)]
	return ok
}

// Degree returns the (possibly capped) FK degree of a table.
func (g *Graph) Degree(table string) int {
	return len(g.adjacency[strings.ToLower(table)])
}

// EdgeCount returns the number of FK edges the graph was built from.
func (g *Graph) EdgeCount() int {
	return g.edgeCount
}

// name returns the original spelling for a lowercased table key.
func (g *Graph) name(key string) string {
	if n, ok := g.names[key]; ok {
		return n
	}
	return key
}

// pathStep is one hop of a path: the table arrived at and the edge used.
type pathStep struct {
	table string
	via   graphEdge
}

// shortestPath runs BFS from one table to another, honoring exclusions
// (used by the k-shortest-paths spur search). Returns the steps after the
// start table, or nil when no path exists. excludedEdges keys are edge
// identity strings, excludedNodes are lowercased table names.
func (g *Graph) shortestPath(from, to string, excludedEdges map[string]bool, excludedNodes map[string]bool) []pathStep {
	from = strings.ToLower(from)
	to = strings.ToLower(to)
	if _, ok := g.adjacency[from]; !ok {
		return nil
	}
	if from == to {
		return []pathStep{}
	}

	type queued struct {
		table string
		steps []pathStep
	}
	visited := map[string]bool{from: true}
	queue := []queued{{table: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ge := range g.adjacency[cur.table] {
			if visited[ge.neighbor] || excludedNodes[ge.neighbor] {
				continue
			}
			if excludedEdges != nil && excludedEdges[edgeKey(ge.edge)] {
				continue
			}
			steps := make([]pathStep, len(cur.steps), len(cur.steps)+1)
			copy(steps, cur.steps)
			steps = append(steps, pathStep{table: ge.neighbor, via: ge})
			if ge.neighbor == to {
				return steps
			}
			visited[ge.neighbor] = true
			queue = append(queue, queued{table: ge.neighbor, steps: steps})
		}
	}
	return nil
}

// edgeKey identifies an FK edge regardless of traversal direction.
func edgeKey(e schema.FKEdge) string {
	return strings.ToLower(e.FromTable + "." + e.FromColumn + ">" + e.ToTable + "." + e.ToColumn)
}
