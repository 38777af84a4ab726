package joinplan

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/schema"
)

// ScoreWeights weighs the skeleton ranking components. FK validity is always
// 1.0 for every edge (edges come from real FK metadata) but keeps its weight
// so rankings stay comparable if inferred edges are ever added.
type ScoreWeights struct {
	Hop           float64
	LinkedTables  float64
	LinkedColumns float64
	FKValidity    float64
}

// DefaultScoreWeights favors short paths, then linker agreement.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Hop: 0.4, LinkedTables: 0.3, LinkedColumns: 0.2, FKValidity: 0.1}
}

// PlanOptions tunes one planning call.
type PlanOptions struct {
	// ScoredPaths enables alternate skeleton generation and ranking.
	ScoredPaths bool
	// MaxAlternates bounds the k-shortest-paths search (k). Zero means 3.
	MaxAlternates int
	// LinkedTables were independently selected by the schema linker;
	// intermediate tables in this set score higher.
	LinkedTables []string
	// LinkedColumns is the linker's column set; join columns in it score higher.
	LinkedColumns []string
	// Modules maps table name to module label for cross-module detection.
	Modules map[string]string
	// Weights for skeleton ranking. Zero value means DefaultScoreWeights.
	Weights ScoreWeights
}

// JoinEdge is one join condition of a skeleton.
type JoinEdge struct {
	Edge schema.FKEdge
	// Reversed is true when the skeleton traverses the FK from referenced
	// table to referencing table.
	Reversed bool
}

// ScoreBreakdown records the skeleton score components.
type ScoreBreakdown struct {
	HopScore         float64
	LinkedTableFrac  float64
	LinkedColumnFrac float64
	FKValidity       float64
}

// Skeleton is one candidate join plan over the required tables.
type Skeleton struct {
	// Tables in traversal order, root first. Original spellings.
	Tables    []string
	Edges     []JoinEdge
	Score     float64
	Breakdown ScoreBreakdown
}

// Plan is the planning result for one required table set.
type Plan struct {
	// Skeletons ranked best-first. Empty when fewer than two connected
	// required tables exist.
	Skeletons []Skeleton
	// Disconnected groups of required tables with no FK path between groups.
	// A single group means everything connects.
	Disconnected [][]string
	// CrossModule is set when the required tables span more than one module.
	CrossModule bool
	// BridgeTables are plan tables adjacent to two or more modules.
	BridgeTables []string
}

// Connected reports whether all required tables ended up in one group.
func (p *Plan) Connected() bool {
	return len(p.Disconnected) <= 1
}

// Planner computes join skeletons over a built FK graph.
type Planner struct {
	graph  *Graph
	opts   PlanOptions
	logger *zap.Logger
}

// NewPlanner creates a planner. The graph must outlive the planner and is
// never mutated.
func NewPlanner(graph *Graph, opts PlanOptions, logger *zap.Logger) *Planner {
	if opts.MaxAlternates <= 0 {
		opts.MaxAlternates = 3
	}
	if opts.Weights == (ScoreWeights{}) {
		opts.Weights = DefaultScoreWeights()
	}
	return &Planner{graph: graph, opts: opts, logger: logger.Named("joinplan")}
}

// Plan computes a connecting subgraph for the required tables: BFS shortest
// paths between every required pair, unioned. This is a pragmatic Steiner
// approximation, not an optimal Steiner tree. Unreachable required tables are
// reported in Disconnected, never raised.
func (p *Planner) Plan(required []string) *Plan {
	plan := &Plan{}
	if len(required) == 0 {
		return plan
	}

	keys := make([]string, 0, len(required))
	seen := make(map[string]bool)
	for _, t := range required {
		k := strings.ToLower(t)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	groups := p.groupByReachability(keys)
	for _, group := range groups {
		names := make([]string, len(group))
		for i, k := range group {
			names[i] = p.graph.name(k)
		}
		plan.Disconnected = append(plan.Disconnected, names)
	}
	if !plan.Connected() {
		p.logger.Debug("required tables are not fully connected",
			zap.Int("groups", len(groups)))
	}

	// Plan over the largest connected group.
	main := groups[0]
	for _, g := range groups[1:] {
		if len(g) > len(main) {
			main = g
		}
	}
	if len(main) < 2 {
		plan.CrossModule, plan.BridgeTables = p.detectModules(plan, nil)
		return plan
	}

	base := p.unionSkeleton(main, nil)
	if base != nil {
		skeletons := []Skeleton{*base}
		if p.opts.ScoredPaths {
			skeletons = append(skeletons, p.alternates(main, base)...)
		}
		for i := range skeletons {
			p.score(&skeletons[i], main)
		}
		sort.SliceStable(skeletons, func(i, j int) bool {
			return skeletons[i].Score > skeletons[j].Score
		})
		plan.Skeletons = skeletons
	}

	var planTables []string
	if len(plan.Skeletons) > 0 {
		planTables = plan.Skeletons[0].Tables
	}
	plan.CrossModule, plan.BridgeTables = p.detectModules(plan, planTables)
	return plan
}

// groupByReachability partitions required table keys into connectivity
// groups. Tables unknown to the graph are their own group.
func (p *Planner) groupByReachability(keys []string) [][]string {
	var groups [][]string
	assigned := make(map[string]int)

	for _, k := range keys {
		if _, ok := assigned[k]; ok {
			continue
		}
		group := []string{k}
		assigned[k] = len(groups)
		if p.graph.HasTable(k) {
			for _, other := range keys {
				if _, ok := assigned[other]; ok {
					continue
				}
				if p.graph.shortestPath(k, other, nil, nil) != nil {
					assigned[other] = len(groups)
					group = append(group, other)
				}
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// unionSkeleton unions pairwise shortest paths over the group into one
// skeleton. overridePair substitutes a precomputed path for one pair (used
// for alternate generation); nil means pure shortest paths.
func (p *Planner) unionSkeleton(group []string, override *pairPath) *Skeleton {
	tables := make(map[string]bool)
	edges := make(map[string]JoinEdge)
	var edgeOrder []string

	for _, k := range group {
		tables[k] = true
	}

	addPath := func(from string, steps []pathStep) {
		for _, step := range steps {
			tables[step.table] = true
			key := edgeKey(step.via.edge)
			if _, ok := edges[key]; !ok {
				edges[key] = JoinEdge{Edge: step.via.edge, Reversed: step.via.reversed}
				edgeOrder = append(edgeOrder, key)
			}
		}
	}

	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if override != nil && override.matches(group[i], group[j]) {
				addPath(group[i], override.steps)
				continue
			}
			steps := p.graph.shortestPath(group[i], group[j], nil, nil)
			if steps == nil {
				return nil // group was prechecked; defensive
			}
			addPath(group[i], steps)
		}
	}

	skeleton := &Skeleton{}
	for _, key := range edgeOrder {
		skeleton.Edges = append(skeleton.Edges, edges[key])
	}
	skeleton.Tables = p.orderTables(group[0], tables, skeleton.Edges)
	return skeleton
}

// orderTables returns the skeleton's tables in BFS order from the root.
func (p *Planner) orderTables(root string, tables map[string]bool, edges []JoinEdge) []string {
	adj := make(map[string][]string)
	for _, je := range edges {
		from := strings.ToLower(je.Edge.FromTable)
		to := strings.ToLower(je.Edge.ToTable)
		adj[from] = append(adj[from], to)
		adj[to] = append(adj[to], from)
	}

	var ordered []string
	visited := make(map[string]bool)
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		ordered = append(ordered, p.graph.name(cur))
		queue = append(queue, adj[cur]...)
	}
	// Required tables that are isolated from the root still belong to the
	// table list (defensive; normally the group is connected).
	for t := range tables {
		if !visited[t] {
			ordered = append(ordered, p.graph.name(t))
		}
	}
	return ordered
}

// pairPath is an alternate path between one required pair.
type pairPath struct {
	from, to string
	steps    []pathStep
}

func (pp *pairPath) matches(a, b string) bool {
	return (pp.from == a && pp.to == b) || (pp.from == b && pp.to == a)
}

// alternates generates up to MaxAlternates-1 additional skeletons by spurring
// the longest pair path with Yen's k-shortest-paths search.
func (p *Planner) alternates(group []string, base *Skeleton) []Skeleton {
	// Find the pair whose shortest path is longest; that is where alternate
	// routings meaningfully differ.
	var bestFrom, bestTo string
	bestLen := -1
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			steps := p.graph.shortestPath(group[i], group[j], nil, nil)
			if steps != nil && len(steps) > bestLen {
				bestLen = len(steps)
				bestFrom, bestTo = group[i], group[j]
			}
		}
	}
	if bestLen < 1 {
		return nil
	}

	paths := kShortestPaths(p.graph, bestFrom, bestTo, p.opts.MaxAlternates)
	var skeletons []Skeleton
	for _, path := range paths[1:] { // paths[0] is the base routing
		alt := p.unionSkeleton(group, &pairPath{from: bestFrom, to: bestTo, steps: path})
		if alt != nil && !sameEdges(alt, base) {
			skeletons = append(skeletons, *alt)
		}
	}
	return skeletons
}

func sameEdges(a, b *Skeleton) bool {
	if len(a.Edges) != len(b.Edges) {
		return false
	}
	keys := make(map[string]bool, len(a.Edges))
	for _, je := range a.Edges {
		keys[edgeKey(je.Edge)] = true
	}
	for _, je := range b.Edges {
		if !keys[edgeKey(je.Edge)] {
			return false
		}
	}
	return true
}

// score fills in the weighted skeleton score. Hop score decays with edge
// count; linked fractions reward agreement with the schema linker.
func (p *Planner) score(s *Skeleton, required []string) {
	w := p.opts.Weights

	s.Breakdown.FKValidity = 1.0
	if len(s.Edges) > 0 {
		s.Breakdown.HopScore = 1.0 / float64(len(s.Edges))
	} else {
		s.Breakdown.HopScore = 1.0
	}

	requiredSet := make(map[string]bool, len(required))
	for _, t := range required {
		requiredSet[strings.ToLower(t)] = true
	}
	linkedTables := make(map[string]bool, len(p.opts.LinkedTables))
	for _, t := range p.opts.LinkedTables {
		linkedTables[strings.ToLower(t)] = true
	}
	linkedColumns := make(map[string]bool, len(p.opts.LinkedColumns))
	for _, c := range p.opts.LinkedColumns {
		linkedColumns[strings.ToLower(c)] = true
	}

	intermediates, linkedIntermediates := 0, 0
	for _, t := range s.Tables {
		k := strings.ToLower(t)
		if requiredSet[k] {
			continue
		}
		intermediates++
		if linkedTables[k] {
			linkedIntermediates++
		}
	}
	if intermediates > 0 {
		s.Breakdown.LinkedTableFrac = float64(linkedIntermediates) / float64(intermediates)
	} else {
		s.Breakdown.LinkedTableFrac = 1.0 // nothing foreign was pulled in
	}

	joinColumns, linkedJoinColumns := 0, 0
	for _, je := range s.Edges {
		for _, col := range []string{je.Edge.FromColumn, je.Edge.ToColumn} {
			joinColumns++
			if linkedColumns[strings.ToLower(col)] {
				linkedJoinColumns++
			}
		}
	}
	if joinColumns > 0 {
		s.Breakdown.LinkedColumnFrac = float64(linkedJoinColumns) / float64(joinColumns)
	}

	s.Score = w.Hop*s.Breakdown.HopScore +
		w.LinkedTables*s.Breakdown.LinkedTableFrac +
		w.LinkedColumns*s.Breakdown.LinkedColumnFrac +
		w.FKValidity*s.Breakdown.FKValidity
}

// detectModules flags cross-module plans and finds bridge tables: plan
// tables whose skeleton neighbors span two or more modules.
func (p *Planner) detectModules(plan *Plan, planTables []string) (bool, []string) {
	if len(p.opts.Modules) == 0 {
		return false, nil
	}
	moduleOf := func(table string) string {
		for t, m := range p.opts.Modules {
			if strings.EqualFold(t, table) {
				return m
			}
		}
		return ""
	}

	modules := make(map[string]bool)
	for _, group := range plan.Disconnected {
		for _, t := range group {
			if m := moduleOf(t); m != "" {
				modules[m] = true
			}
		}
	}
	if len(modules) < 2 {
		return false, nil
	}

	var bridges []string
	if len(plan.Skeletons) > 0 {
		neighborModules := make(map[string]map[string]bool)
		note := func(table, module string) {
			if module == "" {
				return
			}
			k := strings.ToLower(table)
			if neighborModules[k] == nil {
				neighborModules[k] = make(map[string]bool)
			}
			neighborModules[k][module] = true
		}
		for _, je := range plan.Skeletons[0].Edges {
			note(je.Edge.FromTable, moduleOf(je.Edge.ToTable))
			note(je.Edge.ToTable, moduleOf(je.Edge.FromTable))
		}
		for _, t := range planTables {
			mods := neighborModules[strings.ToLower(t)]
			if own := moduleOf(t); own != "" {
				if mods == nil {
					mods = make(map[string]bool)
				}
				mods[own] = true
			}
			if len(mods) >= 2 {
				bridges = append(bridges, t)
			}
		}
	}
	return true, bridges
}
