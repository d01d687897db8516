// Package repository implements PostgreSQL persistence for the Twitch entities.
package repository

import (
	"fmt"
	"strings"
)

// upsertQuery builds a multi-row INSERT ... ON CONFLICT (id) DO UPDATE
// statement. Every non-key column is overwritten from the incoming row,
// which is what makes repeated runs idempotent.
func upsertQuery(table string, columns []string, rows int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "INSERT INTO %s (%s)\nVALUES ", table, strings.Join(columns, ", "))

	placeholder := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", placeholder)
			placeholder++
		}
		b.WriteByte(')')
	}

	b.WriteString("\nON CONFLICT (id) DO UPDATE SET ")
	first := true
	for _, col := range columns {
		if col == "id" {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = EXCLUDED.%s", col, col)
		first = false
	}
	b.WriteString(", updated_at = now()")

	return b.String()
}
