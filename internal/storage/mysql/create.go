package mysql

import (
	"fmt"

	"orderetl/internal/ddl"
)

// BuildCreateTableSQL renders CREATE TABLE IF NOT EXISTS with backtick
// quoting. Order fields are TEXT, which has no length limit to pick.
func BuildCreateTableSQL(t ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnList(t, myIdent)
	if err != nil {
		return "", fmt.Errorf("mysql %w", err)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", myFQN(t.FQN), cols), nil
}

func myFQN(name string) string { return ddl.QuoteFQN(name, myIdent) }
