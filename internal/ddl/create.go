// Package ddl defines a small, backend-agnostic model for SQL DDL and the
// shared rendering used by the storage backends.
//
// Backends supply their identifier quoting and wrap the rendered column list
// in their own CREATE TABLE form (IF NOT EXISTS, OBJECT_ID guards, ...).
package ddl

import (
	"fmt"
	"strings"
)

// QuoteFunc quotes a single identifier segment for a dialect.
type QuoteFunc func(string) string

// QuoteFQN quotes every non-empty segment of a dotted name with q.
func QuoteFQN(name string, q QuoteFunc) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, q(p))
	}
	return strings.Join(out, ".")
}

// ColumnList renders the parenthesised column definitions of t:
//
//	(
//	  <col> <type> [NOT NULL],
//	  ...
//	)
//
// Duplicate column names are rejected; most engines would fail later with a
// less helpful message.
func ColumnList(t TableDef, q QuoteFunc) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	seen := make(map[string]struct{}, len(t.Columns))
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return "", fmt.Errorf("ddl: duplicate column %s in table %s", name, fqn)
		}
		seen[key] = struct{}{}

		var sb strings.Builder
		sb.WriteString(q(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}
	return "(\n  " + strings.Join(cols, ",\n  ") + "\n)", nil
}
