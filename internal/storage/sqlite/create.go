package sqlite

import (
	"fmt"

	"orderetl/internal/ddl"
)

// BuildCreateTableSQL renders CREATE TABLE IF NOT EXISTS with double-quoted
// identifiers. "main.orders" style names are accepted.
func BuildCreateTableSQL(t ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnList(t, quoteIdent)
	if err != nil {
		return "", fmt.Errorf("sqlite %w", err)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", quoteTable(t.FQN), cols), nil
}

func quoteTable(name string) string { return ddl.QuoteFQN(name, quoteIdent) }
