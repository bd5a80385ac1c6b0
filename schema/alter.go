package schema

// LiveColumns maps a table name to the column names currently present in the
// database. A table missing from the map, or mapped to no columns, does not
// exist yet.
type LiveColumns map[string][]string

// MissingColumns returns the declared columns of def absent from live, in
// declaration order. Constraints are never reported.
func MissingColumns(def Definition, live []string, dialect Dialect) []Entry {
	present := make(map[string]bool, len(live))
	for _, name := range live {
		present[NormalizeIdentifierName(name, dialect)] = true
	}
	var missing []Entry
	for _, e := range def.Columns() {
		if !present[NormalizeIdentifierName(e.Name, dialect)] {
			missing = append(missing, e)
		}
	}
	return missing
}

// AlterTables lists the tables whose live columns AlterSQL needs: the base
// table and, when present, its history table.
func (t *Table) AlterTables() []string {
	names := []string{t.Name}
	if t.History != nil {
		names = append(names, t.History.Name)
	}
	return names
}

// AlterSQL renders one ADD COLUMN statement per declared column missing from
// the live base and history tables. Tables absent from live are skipped since
// CREATE TABLE already produces every column. The changes table is never
// altered: its shape does not depend on the base columns.
func (t *Table) AlterSQL(b *Builder, live LiveColumns) []string {
	defs := []Definition{t.Definition}
	if t.History != nil {
		defs = append(defs, *t.History)
	}

	var stmts []string
	for _, def := range defs {
		columns := live[def.Name]
		if len(columns) == 0 {
			continue
		}
		for _, e := range MissingColumns(def, columns, t.Dialect) {
			stmts = append(stmts, b.AddColumn(def.Name, e.Name, e.Column))
		}
	}
	return stmts
}
