package joinplan

import (
	"sort"
	"strings"
)

// kShortestPaths finds up to k loopless shortest paths between two tables
// using Yen's algorithm: repeatedly spur off the previous best path at each
// node, excluding the edges already used at that spur by earlier results and
// the root-path nodes, and keep the next-shortest candidate. Paths are
// returned shortest-first; the first entry is the plain BFS shortest path.
func kShortestPaths(g *Graph, from, to string, k int) [][]pathStep {
	from = strings.ToLower(from)
	to = strings.ToLower(to)

	first := g.shortestPath(from, to, nil, nil)
	if first == nil {
		return nil
	}
	found := [][]pathStep{first}
	var candidates [][]pathStep

	for len(found) < k {
		prev := found[len(found)-1]

		for i := 0; i <= len(prev); i++ {
			spurNode := from
			if i > 0 {
				spurNode = prev[i-1].table
			}
			rootPath := prev[:i]

			// Exclude, at the spur node, every edge a known path with the
			// same root already takes.
			excludedEdges := make(map[string]bool)
			for _, p := range found {
				if len(p) > i && samePrefix(p, prev, i) {
					excludedEdges[edgeKey(p[i].via.edge)] = true
				}
			}
			// Exclude root-path nodes (except the spur node) to keep the
			// result loopless.
			excludedNodes := map[string]bool{from: spurNode != from}
			for _, step := range rootPath {
				if step.table != spurNode {
					excludedNodes[step.table] = true
				}
			}

			spurPath := g.shortestPath(spurNode, to, excludedEdges, excludedNodes)
			if spurPath == nil {
				continue
			}

			candidate := make([]pathStep, 0, len(rootPath)+len(spurPath))
			candidate = append(candidate, rootPath...)
			candidate = append(candidate, spurPath...)
			if !containsPath(found, candidate) && !containsPath(candidates, candidate) {
				candidates = append(candidates, candidate)
			}
		}

		if len(candidates) == 0 {
			break
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			return len(candidates[a]) < len(candidates[b])
		})
		found = append(found, candidates[0])
		candidates = candidates[1:]
	}

	return found
}

// samePrefix reports whether two paths take identical edges for the first n
// steps.
func samePrefix(a, b []pathStep, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if edgeKey(a[i].via.edge) != edgeKey(b[i].via.edge) {
			return false
		}
	}
	return true
}

func containsPath(paths [][]pathStep, candidate []pathStep) bool {
	for _, p := range paths {
		if len(p) == len(candidate) && samePrefix(p, candidate, len(p)) {
			return true
		}
	}
	return false
}
