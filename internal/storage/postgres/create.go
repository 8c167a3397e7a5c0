package postgres

import (
	"fmt"
	"strings"

	"orderetl/internal/ddl"
)

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement with
// double-quoted identifiers.
func BuildCreateTableSQL(t ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnList(t, quoteIdent)
	if err != nil {
		return "", fmt.Errorf("postgres %w", err)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", ddl.QuoteFQN(t.FQN, quoteIdent), cols), nil
}

// quoteIdent quotes a single identifier segment for Postgres, e.g.:
//
//	quoteIdent(`order_id`)   => `"order_id"`
//	quoteIdent(`weird"name`) => `"weird""name"`
func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
