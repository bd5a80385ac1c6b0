package sqlite3

import (
	"context"
	"database/sql"

	"github.com/sqldef/auditdef/database"
)

type Sqlite3Database struct {
	database.SQLDatabase
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open(DriverName(), config.DbName)
	if err != nil {
		return nil, err
	}

	return &Sqlite3Database{
		SQLDatabase: database.NewSQLDatabase(db),
	}, nil
}

// Columns lists the columns of table as reported by PRAGMA table_info.
func (d *Sqlite3Database) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.DB().QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// TableNames lists user tables, leaving out SQLite's internal ones.
func (d *Sqlite3Database) TableNames(ctx context.Context) ([]string, error) {
	rows, err := d.DB().QueryContext(ctx,
		`select tbl_name from sqlite_master where type = 'table' and tbl_name not like 'sqlite_%'`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DriverName reports which SQLite driver this binary was built with.
func DriverName() string {
	return driverName
}
