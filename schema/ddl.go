package schema

// lifecycleEvents are the row events that get bookkeeping columns and
// triggers, in generation order.
var lifecycleEvents = []string{"insert", "update", "delete"}

func stringPtr(s string) *string {
	return &s
}

// injectColumns returns a copy of def with a surrogate primary key (when no
// primary key and no id column exist) and the per-event date and
// description columns that are not declared already.
func injectColumns(def Definition, c Case, dialect Dialect) Definition {
	s := strategies[dialect]
	out := Definition{Name: def.Name}

	id := c.Name("id")
	if !def.HasPrimaryKey() && !def.Has(id) {
		out.Entries = append(out.Entries, Entry{
			Name: id,
			Kind: KindColumn,
			Column: Column{
				Type:          "INTEGER",
				Primary:       true,
				AutoIncrement: s.autoIncrement != "",
			},
		})
	}
	out.Entries = append(out.Entries, def.Entries...)

	for _, event := range lifecycleEvents {
		dateTime := c.Name(event, "date", "time")
		if !out.Has(dateTime) {
			column := Column{Type: "DATETIME"}
			if event != "delete" {
				column.NotNull = true
				column.Default = stringPtr(s.nowDefault)
			}
			out.Entries = append(out.Entries, Entry{Name: dateTime, Kind: KindColumn, Column: column})
		}

		description := c.Name(event, "description")
		if !out.Has(description) {
			column := Column{Type: "VARCHAR", Size: "127"}
			if event != "delete" {
				column.Default = stringPtr(StringConstant("No Description"))
			}
			out.Entries = append(out.Entries, Entry{Name: description, Kind: KindColumn, Column: column})
		}
	}
	return out
}

// CreateTableSQL renders the base table followed by its shadow tables.
func (t *Table) CreateTableSQL(b *Builder) []string {
	stmts := []string{b.CreateTable(t.Definition)}
	if t.History != nil {
		stmts = append(stmts, b.CreateTable(*t.History))
	}
	if t.Changes != nil {
		stmts = append(stmts, b.CreateTable(*t.Changes))
	}
	return stmts
}
