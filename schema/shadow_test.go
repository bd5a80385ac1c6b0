package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveHistory(t *testing.T) {
	table := testTable(t, usersDoc, Options{Dialect: DialectSQLite, Audit: AuditRow})
	require.NotNil(t, table.History)
	require.Nil(t, table.Changes)
	history := table.History

	assert.Equal(t, "users__history", history.Name)
	names := entryNames(history.Entries)
	assert.Equal(t, []string{"id__history", "id__history__last", "id__history__next"}, names[:3])
	assert.Equal(t, []string{"id__updated", "id__last", "id", "id__next", "name__updated", "name__last", "name", "name__next"}, names[3:11])
	assert.Equal(t, []string{"scd__start", "scd__end", "scd__duration", "scd__event"}, names[len(names)-4:])
	assert.Len(t, names, 3+4*9+4)

	key := history.Entries[0].Column
	assert.True(t, key.Primary)
	assert.True(t, key.AutoIncrement)

	// Copied columns keep only their type.
	for _, e := range history.Entries {
		if e.Name == "name" || e.Name == "email__next" || e.Name == "insert_date_time" || e.Name == "id" {
			assert.False(t, e.Column.NotNull, e.Name)
			assert.False(t, e.Column.Primary, e.Name)
			assert.False(t, e.Column.Unique, e.Name)
			assert.False(t, e.Column.AutoIncrement, e.Name)
			assert.Nil(t, e.Column.Default, e.Name)
		}
	}

	flag := history.Entries[3].Column
	assert.Equal(t, Column{Type: "TINYINT", Size: "1", NotNull: true, Default: stringPtr("0")}, flag)
	assert.Equal(t, Column{Type: "CHAR", Size: "6", NotNull: true}, history.Entries[len(history.Entries)-1].Column)
}

func TestDeriveHistoryDropsConstraints(t *testing.T) {
	doc := `
$table: users
$define:
  email:
    $column:
      $type: TEXT
  email_unique:
    $constraint:
      $unique: [email]
`
	table := testTable(t, doc, Options{Dialect: DialectSQLite, Audit: AuditRow})
	assert.True(t, table.Has("email_unique"))
	assert.False(t, table.History.Has("email_unique"))
	assert.Empty(t, table.History.Entries[0].Constraint)
}

func TestDeriveChanges(t *testing.T) {
	doc := `
$table: accounts
$define:
  account_code:
    $column:
      $type: VARCHAR
      $size: 12
      $primary: true
      $unique: true
      $default: "'x'"
  balance:
    $column:
      $type: INTEGER
`
	table := testTable(t, doc, Options{Dialect: DialectMySQL, Audit: AuditColumn})
	require.Nil(t, table.History)
	require.NotNil(t, table.Changes)
	changes := table.Changes

	assert.Equal(t, "accounts__changes", changes.Name)
	assert.Equal(t, []string{
		"id__changes", "id__changes__last", "id__changes__next",
		"account_code", "field", "value__last", "value", "value__next",
		"scd__start", "scd__end", "scd__duration", "scd__event",
	}, entryNames(changes.Entries))
	assert.Equal(t, Column{Type: "VARCHAR", Size: "12"}, changes.Entries[3].Column)
	assert.Equal(t, Column{Type: "VARCHAR", Size: "255", NotNull: true}, changes.Entries[4].Column)
	assert.Equal(t, "LONGTEXT", changes.Entries[6].Column.Type)
}

func TestCreateTableSQL(t *testing.T) {
	table := testTable(t, usersDoc, Options{Dialect: DialectSQLite, Audit: AuditAll})
	stmts := table.CreateTableSQL(newTestBuilder(t, DialectSQLite, false))
	require.Len(t, stmts, 3)

	assert.Equal(t, `CREATE TABLE IF NOT EXISTS users (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "name" VARCHAR(50) NOT NULL,
    "email" VARCHAR(255) UNIQUE,
    "insert_date_time" DATETIME NOT NULL DEFAULT (STRFTIME('%s', 'now')),
    "insert_description" VARCHAR(127) DEFAULT 'No Description',
    "update_date_time" DATETIME NOT NULL DEFAULT (STRFTIME('%s', 'now')),
    "update_description" VARCHAR(127) DEFAULT 'No Description',
    "delete_date_time" DATETIME,
    "delete_description" VARCHAR(127)
);`, stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS users__history (\n    \"id__history\" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,\n")
	assert.Contains(t, stmts[2], "CREATE TABLE IF NOT EXISTS users__changes (\n")
	assert.Contains(t, stmts[2], "\n    \"id\" INTEGER,\n    \"field\" VARCHAR(255) NOT NULL,\n")
}

func TestCreateTableSQLMySQL(t *testing.T) {
	table := testTable(t, usersDoc, Options{Dialect: DialectMySQL, Audit: AuditRow})
	stmts := table.CreateTableSQL(newTestBuilder(t, DialectMySQL, false))
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "    `id` INTEGER AUTO_INCREMENT PRIMARY KEY,\n")
	assert.Contains(t, stmts[0], "    `insert_date_time` DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,\n")
	assert.Contains(t, stmts[1], "    `id__history` INTEGER NOT NULL AUTO_INCREMENT PRIMARY KEY,\n")
}
