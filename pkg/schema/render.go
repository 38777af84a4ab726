package schema

import (
	"fmt"
	"strings"
)

// Render produces the compact schema text included in generation prompts:
// one block per table with column name/type lines, PK markers, and the FK
// edge list at the end. maxColumns caps the per-table column count (0 means
// no cap); the retrieval layer usually pruned already, this is a belt.
func (c *Context) Render(maxColumns int) string {
	var b strings.Builder

	for _, t := range c.Tables {
		b.WriteString("TABLE ")
		b.WriteString(t.Name)
		if t.Module != "" {
			fmt.Fprintf(&b, " [module: %s]", t.Module)
		}
		if t.Description != "" {
			fmt.Fprintf(&b, " -- %s", t.Description)
		}
		b.WriteByte('\n')

		cols := t.Columns
		truncated := 0
		if maxColumns > 0 && len(cols) > maxColumns {
			truncated = len(cols) - maxColumns
			cols = cols[:maxColumns]
		}
		for _, col := range cols {
			b.WriteString("  ")
			b.WriteString(col.Name)
			b.WriteByte(' ')
			b.WriteString(col.DataType)
			if col.IsPrimaryKey {
				b.WriteString(" PK")
			}
			if !col.IsNullable {
				b.WriteString(" NOT NULL")
			}
			if col.Description != "" {
				fmt.Fprintf(&b, " -- %s", col.Description)
			}
			b.WriteByte('\n')
		}
		if truncated > 0 {
			fmt.Fprintf(&b, "  ... %d more columns\n", truncated)
		}
		b.WriteByte('\n')
	}

	if len(c.ForeignKeys) > 0 {
		b.WriteString("FOREIGN KEYS\n")
		for _, e := range c.ForeignKeys {
			b.WriteString("  ")
			b.WriteString(e.String())
			b.WriteByte('\n')
		}
	}

	return b.String()
}
