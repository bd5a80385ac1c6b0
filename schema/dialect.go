package schema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedDialect = errors.New("unsupported dialect")

// Dialect selects the SQL flavor generated for a table.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectMySQL
)

func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectMySQL:
		return "mysql"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "mysql":
		return DialectMySQL, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDialect, s)
	}
}

func (d *Dialect) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseDialect(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// dialectStrategy holds everything that differs between engines when
// rendering DDL and trigger bodies.
type dialectStrategy struct {
	quote         string
	autoIncrement string
	// autoIncrementNeedsPrimary restricts the auto-increment keyword to
	// primary key columns.
	autoIncrementNeedsPrimary bool
	nowValue                  string
	nowDefault                string
	lastInsertID              string
	// sessionVariables makes triggers capture the previous version id in a
	// user variable instead of an inline scalar subquery.
	sessionVariables bool
	// fromDual is appended to a SELECT that has a WHERE clause but no table.
	fromDual   string
	createView string
	duration   func(start string) string
}

var strategies = map[Dialect]dialectStrategy{
	DialectSQLite: {
		quote:                     `"`,
		autoIncrement:             "AUTOINCREMENT",
		autoIncrementNeedsPrimary: true,
		nowValue:                  "(STRFTIME('%s', 'now'))",
		nowDefault:                "(STRFTIME('%s', 'now'))",
		lastInsertID:              "last_insert_rowid()",
		createView:                "CREATE VIEW IF NOT EXISTS",
		duration: func(start string) string {
			return fmt.Sprintf("(STRFTIME('%%s', 'now')) - %s", start)
		},
	},
	DialectMySQL: {
		quote:            "`",
		autoIncrement:    "AUTO_INCREMENT",
		nowValue:         "NOW()",
		nowDefault:       "CURRENT_TIMESTAMP",
		lastInsertID:     "LAST_INSERT_ID()",
		sessionVariables: true,
		fromDual:         " FROM DUAL",
		createView:       "CREATE OR REPLACE VIEW",
		duration: func(start string) string {
			return fmt.Sprintf("TIMESTAMPDIFF(SECOND, %s, NOW())", start)
		},
	},
}

func (d Dialect) strategy() (dialectStrategy, error) {
	s, ok := strategies[d]
	if !ok {
		return dialectStrategy{}, fmt.Errorf("%w: %s", ErrUnsupportedDialect, d)
	}
	return s, nil
}
