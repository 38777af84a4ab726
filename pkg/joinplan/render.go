package joinplan

import (
	"fmt"
	"strings"
)

// RenderJoin renders the skeleton as a FROM/JOIN fragment: the root table
// followed by one JOIN ... ON ... line per edge, in BFS order from the root.
// The fragment is meant for prompt context and plan traces, not for blind
// splicing into generated SQL.
func (s *Skeleton) RenderJoin() string {
	if len(s.Tables) == 0 {
		return ""
	}
	root := s.Tables[0]

	type pending struct {
		edge JoinEdge
		used bool
	}
	edges := make([]pending, len(s.Edges))
	for i, je := range s.Edges {
		edges[i] = pending{edge: je}
	}

	var b strings.Builder
	b.WriteString(root)

	joined := map[string]bool{strings.ToLower(root): true}
	// Walk until no edge can attach; each pass attaches every edge whose one
	// side is already joined.
	for {
		attached := false
		for i := range edges {
			if edges[i].used {
				continue
			}
			e := edges[i].edge.Edge
			fromIn := joined[strings.ToLower(e.FromTable)]
			toIn := joined[strings.ToLower(e.ToTable)]
			if fromIn == toIn { // neither or both; skip for now
				continue
			}

			newTable := e.FromTable
			if fromIn {
				newTable = e.ToTable
			}
			fmt.Fprintf(&b, "\nJOIN %s ON %s.%s = %s.%s",
				newTable, e.FromTable, e.FromColumn, e.ToTable, e.ToColumn)
			joined[strings.ToLower(newTable)] = true
			edges[i].used = true
			attached = true
		}
		if !attached {
			break
		}
	}

	return b.String()
}
