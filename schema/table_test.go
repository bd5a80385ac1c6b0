package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSource decodes a YAML table document the way the loader does.
func testSource(t *testing.T, doc string) Source {
	t.Helper()
	docs, err := decodeDocuments([]byte(doc))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	src, err := newSource("test.yml", "test", docs[0], keyTable, keyDefine)
	require.NoError(t, err)
	return src
}

func testTable(t *testing.T, doc string, opts Options) *Table {
	t.Helper()
	table, err := NewTable(testSource(t, doc), opts)
	require.NoError(t, err)
	return table
}

const usersDoc = `
$table: users
$define:
  name:
    $column:
      $type: VARCHAR
      $size: 50
      $notNull: true
  email:
    $column:
      $type: VARCHAR
      $size: 255
      $unique: true
`

func entryNames(entries []Entry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestNewTableInjectsColumns(t *testing.T) {
	table := testTable(t, usersDoc, Options{Dialect: DialectSQLite})

	assert.Equal(t, []string{
		"id", "name", "email",
		"insert_date_time", "insert_description",
		"update_date_time", "update_description",
		"delete_date_time", "delete_description",
	}, entryNames(table.Entries))
	assert.Equal(t, "id", table.PrimaryKey())
	assert.Equal(t, AuditNone, table.Audit)
	assert.Nil(t, table.History)
	assert.Nil(t, table.Changes)

	id := table.Entries[0].Column
	assert.True(t, id.Primary)
	assert.True(t, id.AutoIncrement)

	insert := table.Entries[3].Column
	assert.True(t, insert.NotNull)
	require.NotNil(t, insert.Default)
	assert.Equal(t, "(STRFTIME('%s', 'now'))", *insert.Default)

	description := table.Entries[4].Column
	assert.Equal(t, "127", description.Size)
	require.NotNil(t, description.Default)
	assert.Equal(t, "'No Description'", *description.Default)

	deleted := table.Entries[7].Column
	assert.False(t, deleted.NotNull)
	assert.Nil(t, deleted.Default)
	assert.Nil(t, table.Entries[8].Column.Default)
}

func TestNewTableKeepsDeclaredColumns(t *testing.T) {
	doc := `
$table: posts
$define:
  post_id:
    $column:
      $type: INTEGER
      $primary: true
      $autoInc: true
  insert_date_time:
    $column:
      $type: TIMESTAMP
`
	table := testTable(t, doc, Options{Dialect: DialectMySQL})
	assert.Equal(t, "post_id", table.PrimaryKey())
	assert.False(t, table.Has("id"))
	assert.Equal(t, "TIMESTAMP", table.Entries[1].Column.Type)
	assert.Equal(t, "CURRENT_TIMESTAMP", *table.Entries[3].Column.Default)
}

func TestNewTableIDWithoutPrimary(t *testing.T) {
	doc := `
$table: tags
$define:
  id:
    $column:
      $type: INTEGER
  label:
    $column:
      $type: TEXT
`
	table := testTable(t, doc, Options{Dialect: DialectSQLite, Audit: AuditRow})
	assert.Equal(t, "id", table.PrimaryKey())
	assert.False(t, table.Entries[0].Column.Primary)
}

func TestNewTableCaseInference(t *testing.T) {
	doc := `
$table: UserAccounts
$define:
  UserName:
    $column:
      $type: TEXT
`
	table := testTable(t, doc, Options{Dialect: DialectSQLite, Audit: AuditAll})
	assert.Equal(t, Case{Type: CasePascal}, table.Case.Column)
	assert.Equal(t, Case{Type: CasePascal}, table.Case.Table)
	assert.Equal(t, []string{
		"ID", "UserName",
		"InsertDateTime", "InsertDescription",
		"UpdateDateTime", "UpdateDescription",
		"DeleteDateTime", "DeleteDescription",
	}, entryNames(table.Entries))
	assert.Equal(t, "UserAccounts_History", table.History.Name)
	assert.Equal(t, "UserAccounts_Changes", table.Changes.Name)
}

func TestNewTableCaseOverride(t *testing.T) {
	doc := `
$table: users
$case:
  column: camel
$define:
  name:
    $column:
      $type: TEXT
`
	table := testTable(t, doc, Options{Dialect: DialectSQLite, Case: CaseConfig{Table: Case{Type: CaseUpper, Join: "_"}}})
	assert.Equal(t, Case{Type: CaseCamel}, table.Case.Column)
	assert.Equal(t, Case{Type: CaseUpper, Join: "_"}, table.Case.Table)
	assert.True(t, table.Has("insertDateTime"))
}

func TestNewTableTableJoinFallsBackToColumnJoin(t *testing.T) {
	doc := `
$table: Accounts
$define:
  Account_Name:
    $column:
      $type: TEXT
`
	table := testTable(t, doc, Options{Dialect: DialectSQLite, Audit: AuditRow})
	assert.Equal(t, Case{Type: CasePascal, Join: "_"}, table.Case.Table)
	assert.Equal(t, "Accounts__History", table.History.Name)
}

func TestNewTableErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "table name not a string",
			doc:  "$table: [a]\n$define: {}\n",
		},
		{
			name: "define not an object",
			doc:  "$table: a\n$define: 3\n",
		},
		{
			name: "entry without column or constraint",
			doc:  "$table: a\n$define:\n  b:\n    $type: TEXT\n",
		},
		{
			name: "reserved column key",
			doc:  "$table: a\n$define:\n  $column:\n    $column:\n      $type: TEXT\n",
		},
		{
			name: "missing type",
			doc:  "$table: a\n$define:\n  b:\n    $column:\n      $size: 3\n",
		},
		{
			name: "unknown attribute",
			doc:  "$table: a\n$define:\n  b:\n    $column:\n      $type: TEXT\n      $nullable: true\n",
		},
		{
			name: "two primary keys",
			doc:  "$table: a\n$define:\n  b:\n    $column:\n      $type: INTEGER\n      $primary: true\n  c:\n    $column:\n      $type: INTEGER\n      $primary: true\n",
		},
		{
			name: "mixed case",
			doc:  "$table: a\n$define:\n  user_name:\n    $column:\n      $type: TEXT\n  createdAt:\n    $column:\n      $type: TEXT\n",
		},
		{
			name: "empty constraint",
			doc:  "$table: a\n$define:\n  k:\n    $constraint: {}\n",
		},
		{
			name: "bad case override",
			doc:  "$table: a\n$case: snake\n$define: {}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(testSource(t, tt.doc), Options{Dialect: DialectSQLite})
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestNewTableCompositeKeyCannotBeAudited(t *testing.T) {
	doc := `
$table: memberships
$define:
  user_id:
    $column:
      $type: INTEGER
  group_id:
    $column:
      $type: INTEGER
  pk:
    $constraint:
      $primary: [user_id, group_id]
`
	table := testTable(t, doc, Options{Dialect: DialectSQLite})
	assert.False(t, table.Has("id"))

	_, err := NewTable(testSource(t, doc), Options{Dialect: DialectSQLite, Audit: AuditRow})
	assert.ErrorIs(t, err, ErrInvalidDefinition)
}

func TestNewTableUnsupportedDialect(t *testing.T) {
	_, err := NewTable(testSource(t, usersDoc), Options{Dialect: Dialect(9)})
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestStatementsDialectMismatch(t *testing.T) {
	table := testTable(t, usersDoc, Options{Dialect: DialectSQLite})
	_, err := table.Statements(newTestBuilder(t, DialectMySQL, false))
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestAuditMethod(t *testing.T) {
	for _, tt := range []struct {
		input         string
		expected      AuditMethod
		rows, columns bool
	}{
		{input: "", expected: AuditNone},
		{input: "none", expected: AuditNone},
		{input: "ROW", expected: AuditRow, rows: true},
		{input: "column", expected: AuditColumn, columns: true},
		{input: "all", expected: AuditAll, rows: true, columns: true},
	} {
		t.Run(tt.input, func(t *testing.T) {
			m, err := ParseAuditMethod(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
			assert.Equal(t, tt.rows, m.Rows())
			assert.Equal(t, tt.columns, m.Columns())
		})
	}

	_, err := ParseAuditMethod("sometimes")
	assert.Error(t, err)
}

func TestJoinStatements(t *testing.T) {
	assert.Equal(t, "", JoinStatements(nil))
	assert.Equal(t, "a;\n\nb;\n", JoinStatements([]string{"a;", "b;"}))
}
