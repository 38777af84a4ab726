// Package schema defines the schema context packet handed to the engine by
// the retrieval layer. It is the only schema knowledge the engine holds; the
// engine never queries the database catalog directly.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Column is compact column metadata for one table.
type Column struct {
	Name         string `json:"name"`
	DataType     string `json:"data_type"`
	IsNullable   bool   `json:"is_nullable"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	Description  string `json:"description,omitempty"`
}

// Table is one table in the schema context, already pruned to the columns the
// retrieval layer considered relevant.
type Table struct {
	Name        string   `json:"name"`
	Module      string   `json:"module,omitempty"` // logical module label from routing
	Columns     []Column `json:"columns"`
	Description string   `json:"description,omitempty"`
}

// FKEdge is one foreign-key relationship between two tables.
type FKEdge struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
}

// String renders the edge as from_table.from_column -> to_table.to_column.
func (e FKEdge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.FromTable, e.FromColumn, e.ToTable, e.ToColumn)
}

// Context is the schema context packet for one question: an ordered table
// list, the FK edge list connecting them, and module labels. Immutable once
// built; safe to share across goroutines.
type Context struct {
	DatabaseID  string   `json:"database_id"`
	Tables      []Table  `json:"tables"`
	ForeignKeys []FKEdge `json:"foreign_keys"`
}

// TableNames returns table names in packet order.
func (c *Context) TableNames() []string {
	names := make([]string, len(c.Tables))
	for i, t := range c.Tables {
		names[i] = t.Name
	}
	return names
}

// Table finds a table by name, case-insensitively.
func (c *Context) Table(name string) (*Table, bool) {
	for i := range c.Tables {
		if strings.EqualFold(c.Tables[i].Name, name) {
			return &c.Tables[i], true
		}
	}
	return nil, false
}

// ColumnNames returns the column names of a table, or nil when the table is
// not part of the packet.
func (c *Context) ColumnNames(table string) []string {
	t, ok := c.Table(table)
	if !ok {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Modules returns the distinct module labels present, sorted.
func (c *Context) Modules() []string {
	seen := make(map[string]bool)
	for _, t := range c.Tables {
		if t.Module != "" {
			seen[t.Module] = true
		}
	}
	modules := make([]string, 0, len(seen))
	for m := range seen {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	return modules
}

// ModuleOf returns the module label of a table, or empty.
func (c *Context) ModuleOf(table string) string {
	if t, ok := c.Table(table); ok {
		return t.Module
	}
	return ""
}

// EdgeHash computes a content hash over an FK edge set, independent of edge
// order. Used as the cache key for built join graphs: same edges, same graph.
func EdgeHash(edges []FKEdge) string {
	lines := make([]string, len(edges))
	for i, e := range edges {
		lines[i] = strings.ToLower(e.String())
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:16])
}

// Hash returns the content hash of this context's FK edge set.
func (c *Context) Hash() string {
	return EdgeHash(c.ForeignKeys)
}
