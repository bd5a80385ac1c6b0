package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingColumns(t *testing.T) {
	def := Definition{
		Name: "users",
		Entries: []Entry{
			{Name: "id", Kind: KindColumn, Column: Column{Type: "INTEGER"}},
			{Name: "Name", Kind: KindColumn, Column: Column{Type: "TEXT"}},
			{Name: "notes", Kind: KindColumn, Column: Column{Type: "TEXT"}},
			{Name: "name_unique", Kind: KindConstraint, Constraint: Constraint{Unique: []string{"Name"}}},
		},
	}

	tests := []struct {
		name     string
		live     []string
		expected []string
	}{
		{name: "all present", live: []string{"id", "Name", "notes"}, expected: nil},
		{name: "case insensitive", live: []string{"ID", "name", "NOTES"}, expected: nil},
		{name: "one missing", live: []string{"id", "name"}, expected: []string{"notes"}},
		{name: "declaration order", live: []string{"extra"}, expected: []string{"id", "Name", "notes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing := MissingColumns(def, tt.live, DialectSQLite)
			if tt.expected == nil {
				assert.Empty(t, missing)
			} else {
				assert.Equal(t, tt.expected, entryNames(missing))
			}
		})
	}
}

func TestAlterSQL(t *testing.T) {
	doc := `
$table: users
$define:
  name:
    $column:
      $type: TEXT
  notes:
    $column:
      $type: TEXT
`
	table := testTable(t, doc, Options{Dialect: DialectSQLite, Audit: AuditAll})
	b := newTestBuilder(t, DialectSQLite, false)
	assert.Equal(t, []string{"users", "users__history"}, table.AlterTables())

	live := LiveColumns{
		"users": {"id", "name", "insert_date_time", "insert_description", "update_date_time", "update_description", "delete_date_time", "delete_description"},
		"users__history": append(entryNames(table.History.Entries[:len(table.History.Entries)-4]),
			"scd__start", "scd__end", "scd__duration", "scd__event"),
	}
	// Drop the four notes columns from the live history table.
	var history []string
	for _, name := range live["users__history"] {
		if name != "notes__updated" && name != "notes__last" && name != "notes" && name != "notes__next" {
			history = append(history, name)
		}
	}
	live["users__history"] = history

	assert.Equal(t, []string{
		`ALTER TABLE users ADD COLUMN "notes" TEXT;`,
		`ALTER TABLE users__history ADD COLUMN "notes__updated" TINYINT(1) NOT NULL DEFAULT 0;`,
		`ALTER TABLE users__history ADD COLUMN "notes__last" TEXT;`,
		`ALTER TABLE users__history ADD COLUMN "notes" TEXT;`,
		`ALTER TABLE users__history ADD COLUMN "notes__next" TEXT;`,
	}, table.AlterSQL(b, live))
}

func TestAlterSQLSkipsAbsentTables(t *testing.T) {
	table := testTable(t, usersDoc, Options{Dialect: DialectMySQL, Audit: AuditRow})
	b := newTestBuilder(t, DialectMySQL, false)

	assert.Empty(t, table.AlterSQL(b, LiveColumns{}))
	assert.Empty(t, table.AlterSQL(b, LiveColumns{"users": {}, "users__history": nil}))

	stmts := table.AlterSQL(b, LiveColumns{"users": {"id"}})
	assert.Equal(t, "ALTER TABLE users ADD COLUMN `name` VARCHAR(50) NOT NULL;", stmts[0])
	assert.Len(t, stmts, 8)
}

func TestAlterTablesWithoutAudit(t *testing.T) {
	table := testTable(t, usersDoc, Options{Dialect: DialectSQLite})
	assert.Equal(t, []string{"users"}, table.AlterTables())
}
