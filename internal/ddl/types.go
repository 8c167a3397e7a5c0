package ddl

// ColumnDef describes a single column of a table definition.
//
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, NVARCHAR(MAX))
//   - Nullable: whether NULL is allowed
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the table name (optionally schema-qualified, "schema.table")
// and an ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// FromColumns builds a TableDef for an order dataset. Every column gets
// sqlType; names listed in notNull are rendered NOT NULL.
func FromColumns(fqn string, columns []string, sqlType string, notNull ...string) TableDef {
	required := make(map[string]struct{}, len(notNull))
	for _, n := range notNull {
		required[n] = struct{}{}
	}
	def := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(columns))}
	for _, c := range columns {
		_, nn := required[c]
		def.Columns = append(def.Columns, ColumnDef{Name: c, SQLType: sqlType, Nullable: !nn})
	}
	return def
}
