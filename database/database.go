// This package has database database layer. Never deal with DDL construction.
package database

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
)

type Config struct {
	DbName   string
	User     string
	Password string
	Host     string
	Port     int
	Socket   string

	// Only MySQL
	MySQLEnableCleartextPlugin bool
	SslMode                    string
	SslCa                      string
}

// Row is one result row keyed by column name.
type Row map[string]any

type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Abstraction layer for multiple kinds of databases
type Database interface {
	// Run executes one statement with bound values.
	Run(ctx context.Context, query string, args ...any) (Result, error)
	// All returns every row of a query.
	All(ctx context.Context, query string, args ...any) ([]Row, error)
	// Get returns the first row of a query, or nil when there is none.
	Get(ctx context.Context, query string, args ...any) (Row, error)
	// Exec executes a script which may hold several statements.
	Exec(ctx context.Context, script string) error
	// Columns returns the live column names of table in ordinal order. A
	// missing table has no columns.
	Columns(ctx context.Context, table string) ([]string, error)
	DB() *sql.DB
	Close() error
}

// RunStatements applies stmts in order, printing each before it runs.
func RunStatements(ctx context.Context, d Database, stmts []string, logger Logger) error {
	if len(stmts) == 0 {
		return nil
	}
	if _, ok := d.(*DryRunDatabase); ok {
		logger.Println("-- dry run --")
	} else {
		logger.Println("-- Apply --")
	}
	for _, stmt := range stmts {
		logger.Printf("%s\n", stmt)
		if err := d.Exec(ctx, stmt); err != nil {
			slog.Error("Statement failed", "statement", firstLine(stmt), "error", err)
			return err
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// TableLister is implemented by databases that can list their tables in a
// single query.
type TableLister interface {
	TableNames(ctx context.Context) ([]string, error)
}

func tableLister(d Database) (TableLister, bool) {
	if dry, ok := d.(*DryRunDatabase); ok {
		d = dry.wrapped
	}
	lister, ok := d.(TableLister)
	return lister, ok
}

// Introspect fetches the live columns of tables, issuing up to concurrency
// queries at a time. When d can list its tables, only tables that exist are
// queried and the rest map to nil.
func Introspect(ctx context.Context, d Database, tables []string, concurrency int) (map[string][]string, error) {
	queried := tables
	if lister, ok := tableLister(d); ok {
		names, err := lister.TableNames(ctx)
		if err != nil {
			return nil, err
		}
		exists := make(map[string]bool, len(names))
		for _, name := range names {
			exists[strings.ToLower(name)] = true
		}
		queried = nil
		for _, table := range tables {
			if exists[strings.ToLower(table)] {
				queried = append(queried, table)
			}
		}
		slog.Debug("Listed live tables", "tables", len(names), "queried", len(queried))
	}

	columns, err := ConcurrentMapFuncWithError(ctx, queried, concurrency, func(ctx context.Context, table string) ([]string, error) {
		return d.Columns(ctx, table)
	})
	if err != nil {
		return nil, err
	}
	live := make(map[string][]string, len(tables))
	for _, table := range tables {
		live[table] = nil
	}
	for i, table := range queried {
		live[table] = columns[i]
	}
	return live, nil
}

// ScanRows reads every row into a Row keyed by column name. Byte slices are
// converted to strings.
func ScanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(names))
		pointers := make([]any, len(names))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(Row, len(names))
		for i, name := range names {
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// SQLDatabase implements the query methods of Database on top of *sql.DB.
// Engine packages embed it and add Columns.
type SQLDatabase struct {
	db *sql.DB
}

func NewSQLDatabase(db *sql.DB) SQLDatabase {
	return SQLDatabase{db: db}
}

func (d SQLDatabase) Run(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	var result Result
	// Drivers that cannot report these leave them zero.
	result.RowsAffected, _ = res.RowsAffected()
	result.LastInsertID, _ = res.LastInsertId()
	return result, nil
}

func (d SQLDatabase) All(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return ScanRows(rows)
}

func (d SQLDatabase) Get(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := d.All(ctx, query, args...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (d SQLDatabase) Exec(ctx context.Context, script string) error {
	_, err := d.db.ExecContext(ctx, script)
	return err
}

func (d SQLDatabase) DB() *sql.DB {
	return d.db
}

func (d SQLDatabase) Close() error {
	return d.db.Close()
}
