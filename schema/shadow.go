package schema

// Names of the generated bookkeeping columns.
type shadowNames struct {
	id, idLast, idNext          string
	start, end, duration, event string
}

func newShadowNames(kind string, c Case) shadowNames {
	return shadowNames{
		id:       c.Suffix("id", kind),
		idLast:   c.Suffix("id", kind, "last"),
		idNext:   c.Suffix("id", kind, "next"),
		start:    c.Suffix("scd", "start"),
		end:      c.Suffix("scd", "end"),
		duration: c.Suffix("scd", "duration"),
		event:    c.Suffix("scd", "event"),
	}
}

func (n shadowNames) keyEntries() []Entry {
	return []Entry{
		{Name: n.id, Kind: KindColumn, Column: Column{Type: "INTEGER", NotNull: true, Primary: true, AutoIncrement: true}},
		{Name: n.idLast, Kind: KindColumn, Column: Column{Type: "INTEGER"}},
		{Name: n.idNext, Kind: KindColumn, Column: Column{Type: "INTEGER"}},
	}
}

func (n shadowNames) scdEntries() []Entry {
	return []Entry{
		{Name: n.start, Kind: KindColumn, Column: Column{Type: "DATETIME"}},
		{Name: n.end, Kind: KindColumn, Column: Column{Type: "DATETIME"}},
		{Name: n.duration, Kind: KindColumn, Column: Column{Type: "INTEGER"}},
		{Name: n.event, Kind: KindColumn, Column: Column{Type: "CHAR", Size: "6", NotNull: true}},
	}
}

// History column name helpers, shared with the trigger generator.
func updatedColumn(c Case, column string) string { return c.Suffix(column, "updated") }
func lastColumn(c Case, column string) string    { return c.Suffix(column, "last") }
func nextColumn(c Case, column string) string    { return c.Suffix(column, "next") }

// DeriveHistory builds the SCD type 2 history table for def. Constraints are
// dropped and every column is reduced to its type; each column C becomes
// C_updated, C_last, C and C_next.
func DeriveHistory(def Definition, c CaseConfig) Definition {
	names := newShadowNames("history", c.Column)
	out := Definition{
		Name:    c.Table.Suffix(def.Name, "history"),
		Entries: names.keyEntries(),
	}
	for _, e := range def.Columns() {
		column := e.Column.stripped()
		out.Entries = append(out.Entries,
			Entry{Name: updatedColumn(c.Column, e.Name), Kind: KindColumn, Column: Column{
				Type: "TINYINT", Size: "1", NotNull: true, Default: stringPtr("0"),
			}},
			Entry{Name: lastColumn(c.Column, e.Name), Kind: KindColumn, Column: column},
			Entry{Name: e.Name, Kind: KindColumn, Column: column},
			Entry{Name: nextColumn(c.Column, e.Name), Kind: KindColumn, Column: column},
		)
	}
	out.Entries = append(out.Entries, names.scdEntries()...)
	return out
}

// DeriveChanges builds the column level change log for def, keyed by the
// base table's primary key column.
func DeriveChanges(def Definition, primary string, c CaseConfig) Definition {
	names := newShadowNames("changes", c.Column)
	key := Column{Type: "INTEGER"}
	for _, e := range def.Columns() {
		if e.Name == primary {
			key = e.Column
			key.Primary = false
			key.AutoIncrement = false
			key.Unique = false
			key.Default = nil
		}
	}

	out := Definition{
		Name:    c.Table.Suffix(def.Name, "changes"),
		Entries: names.keyEntries(),
	}
	out.Entries = append(out.Entries,
		Entry{Name: primary, Kind: KindColumn, Column: key},
		Entry{Name: c.Column.Name("field"), Kind: KindColumn, Column: Column{Type: "VARCHAR", Size: "255", NotNull: true}},
		Entry{Name: c.Column.Suffix("value", "last"), Kind: KindColumn, Column: Column{Type: "LONGTEXT"}},
		Entry{Name: c.Column.Name("value"), Kind: KindColumn, Column: Column{Type: "LONGTEXT"}},
		Entry{Name: c.Column.Suffix("value", "next"), Kind: KindColumn, Column: Column{Type: "LONGTEXT"}},
	)
	out.Entries = append(out.Entries, names.scdEntries()...)
	return out
}
