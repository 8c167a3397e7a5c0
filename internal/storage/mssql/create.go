package mssql

import (
	"fmt"
	"strings"

	"orderetl/internal/ddl"
)

// BuildCreateTableSQL renders a CREATE TABLE guarded by OBJECT_ID, since SQL
// Server has no CREATE TABLE IF NOT EXISTS.
func BuildCreateTableSQL(t ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnList(t, msIdent)
	if err != nil {
		return "", fmt.Errorf("mssql %w", err)
	}
	fqn := ddl.QuoteFQN(t.FQN, msIdent)
	return fmt.Sprintf(
		"IF OBJECT_ID(%s, N'U') IS NULL\nCREATE TABLE %s %s;",
		msString(strings.TrimSpace(fqn)), fqn, cols,
	), nil
}
