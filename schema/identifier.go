package schema

import "strings"

// NormalizeIdentifierName normalizes a column name for comparison.
//
// SQLite compares identifiers case-insensitively whether quoted or not.
// MySQL column names are case-insensitive on every platform, unlike table
// names which follow lower_case_table_names.
func NormalizeIdentifierName(name string, dialect Dialect) string {
	switch dialect {
	case DialectSQLite, DialectMySQL:
		return strings.ToLower(name)
	default:
		return name
	}
}
