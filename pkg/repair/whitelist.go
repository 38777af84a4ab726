package repair

import (
	"fmt"
	"strings"

	"github.com/sqlmend/sqlmend/pkg/schema"
)

// WhitelistConfig tunes the surgical whitelist built when no rewrite clears
// the active gate.
type WhitelistConfig struct {
	// IncludeNeighbors pulls in tables one FK hop from the resolved tables.
	IncludeNeighbors bool `yaml:"include_neighbors" env:"REPAIR_WHITELIST_NEIGHBORS" env-default:"true"`
	// MaxNeighborTables caps how many FK neighbors are added.
	MaxNeighborTables int `yaml:"max_neighbor_tables" env:"REPAIR_WHITELIST_MAX_NEIGHBORS" env-default:"3"`
	// MaxColumnsPerTable caps each table's column list; columns containing a
	// priority keyword survive compression first.
	MaxColumnsPerTable int `yaml:"max_columns_per_table" env:"REPAIR_WHITELIST_MAX_COLUMNS" env-default:"12"`
	// PriorityKeywords order the compression. Earlier keywords win.
	PriorityKeywords []string `yaml:"priority_keywords"`
}

// DefaultWhitelistConfig returns the stock whitelist settings.
func DefaultWhitelistConfig() WhitelistConfig {
	return WhitelistConfig{
		IncludeNeighbors:   true,
		MaxNeighborTables:  3,
		MaxColumnsPerTable: 12,
		PriorityKeywords:   []string{"id", "name", "amount", "date", "status", "total", "number", "type", "code"},
	}
}

func (c WhitelistConfig) withDefaults() WhitelistConfig {
	d := DefaultWhitelistConfig()
	if c.MaxNeighborTables <= 0 {
		c.MaxNeighborTables = d.MaxNeighborTables
	}
	if c.MaxColumnsPerTable <= 0 {
		c.MaxColumnsPerTable = d.MaxColumnsPerTable
	}
	if len(c.PriorityKeywords) == 0 {
		c.PriorityKeywords = d.PriorityKeywords
	}
	return c
}

// maxFragmentChars bounds the rendered whitelist so it stays a compact prompt
// fragment rather than a schema dump.
const maxFragmentChars = 2000

// SurgicalWhitelist is the column scope handed to a model-driven repair:
// only the table(s) implicated by the error, plus optional one-hop FK
// neighbors. Built fresh per error, never cached.
type SurgicalWhitelist struct {
	PrimaryTables  []string
	NeighborTables []string
	Columns        map[string][]string
	Reason         string
}

// BuildWhitelist assembles the whitelist for the resolved tables.
func BuildWhitelist(resolution Resolution, sc *schema.Context, cfg WhitelistConfig) *SurgicalWhitelist {
	cfg = cfg.withDefaults()

	wl := &SurgicalWhitelist{Columns: make(map[string][]string)}
	seen := make(map[string]bool)

	for _, name := range resolution.Tables {
		table, ok := sc.Table(name)
		if !ok || seen[strings.ToLower(table.Name)] {
			continue
		}
		seen[strings.ToLower(table.Name)] = true
		wl.PrimaryTables = append(wl.PrimaryTables, table.Name)
		wl.Columns[table.Name] = compressColumns(table.Columns, cfg)
	}

	if cfg.IncludeNeighbors {
		for _, name := range fkNeighbors(wl.PrimaryTables, sc) {
			if len(wl.NeighborTables) >= cfg.MaxNeighborTables {
				break
			}
			if seen[strings.ToLower(name)] {
				continue
			}
			table, ok := sc.Table(name)
			if !ok {
				continue
			}
			seen[strings.ToLower(table.Name)] = true
			wl.NeighborTables = append(wl.NeighborTables, table.Name)
			wl.Columns[table.Name] = compressColumns(table.Columns, cfg)
		}
	}

	switch {
	case resolution.Widened:
		wl.Reason = "alias did not resolve; scoped to all tables referenced by the query"
	case len(wl.NeighborTables) > 0:
		wl.Reason = "scoped to the table named by the error and its foreign-key neighbors"
	default:
		wl.Reason = "scoped to the table named by the error"
	}
	return wl
}

// fkNeighbors returns tables one FK hop from any of the given tables, in
// edge order.
func fkNeighbors(tables []string, sc *schema.Context) []string {
	in := make(map[string]bool, len(tables))
	for _, t := range tables {
		in[strings.ToLower(t)] = true
	}

	var neighbors []string
	added := make(map[string]bool)
	for _, fk := range sc.ForeignKeys {
		from := strings.ToLower(fk.FromTable)
		to := strings.ToLower(fk.ToTable)
		var other string
		switch {
		case in[from] && !in[to]:
			other = fk.ToTable
		case in[to] && !in[from]:
			other = fk.FromTable
		default:
			continue
		}
		if added[strings.ToLower(other)] {
			continue
		}
		added[strings.ToLower(other)] = true
		neighbors = append(neighbors, other)
	}
	return neighbors
}

// compressColumns keeps at most MaxColumnsPerTable names, preferring columns
// that contain a priority keyword; remaining slots fill in schema order.
func compressColumns(columns []schema.Column, cfg WhitelistConfig) []string {
	if len(columns) <= cfg.MaxColumnsPerTable {
		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = c.Name
		}
		return names
	}

	kept := make([]string, 0, cfg.MaxColumnsPerTable)
	used := make(map[string]bool)
	for _, kw := range cfg.PriorityKeywords {
		for _, c := range columns {
			if len(kept) >= cfg.MaxColumnsPerTable {
				return kept
			}
			if used[c.Name] || !strings.Contains(strings.ToLower(c.Name), kw) {
				continue
			}
			used[c.Name] = true
			kept = append(kept, c.Name)
		}
	}
	for _, c := range columns {
		if len(kept) >= cfg.MaxColumnsPerTable {
			break
		}
		if used[c.Name] {
			continue
		}
		used[c.Name] = true
		kept = append(kept, c.Name)
	}
	return kept
}

// Render produces the repair-prompt fragment: one line per table with its
// surviving columns, capped below maxFragmentChars.
func (wl *SurgicalWhitelist) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Valid columns (%s):\n", wl.Reason)

	write := func(tables []string) {
		for _, t := range tables {
			line := fmt.Sprintf("%s: %s\n", t, strings.Join(wl.Columns[t], ", "))
			if b.Len()+len(line) > maxFragmentChars {
				return
			}
			b.WriteString(line)
		}
	}
	write(wl.PrimaryTables)
	write(wl.NeighborTables)

	return strings.TrimRight(b.String(), "\n")
}
