package mysql

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	driver "github.com/go-sql-driver/mysql"
	"github.com/sqldef/auditdef/database"
)

type MysqlDatabase struct {
	database.SQLDatabase
}

func NewDatabase(config database.Config) (database.Database, error) {
	if config.SslMode == "custom" {
		err := registerTLSConfig(config.SslCa)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("mysql", mysqlBuildDSN(config))
	if err != nil {
		return nil, err
	}

	logServerInfo(db)

	return &MysqlDatabase{
		SQLDatabase: database.NewSQLDatabase(db),
	}, nil
}

// logServerInfo logs the server version and lower_case_table_names. Column
// names are compared case-insensitively either way, but table name lookups
// follow the server setting.
func logServerInfo(db *sql.DB) {
	var version string
	if err := db.QueryRow("SELECT VERSION()").Scan(&version); err != nil {
		slog.Debug("Failed to get MySQL version", "error", err)
		return
	}
	slog.Debug("MySQL server version", "version", version)

	var varName, lowerCaseTableNames string
	if err := db.QueryRow("SHOW VARIABLES LIKE 'lower_case_table_names'").Scan(&varName, &lowerCaseTableNames); err != nil {
		slog.Debug("Failed to get lower_case_table_names", "error", err)
		return
	}
	slog.Debug("MySQL lower_case_table_names", "value", lowerCaseTableNames)
}

func (d *MysqlDatabase) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := d.DB().QueryContext(ctx, `
		SELECT COLUMN_NAME
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`, table)
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

// TableNames lists the base tables of the current schema.
func (d *MysqlDatabase) TableNames(ctx context.Context) ([]string, error) {
	rows, err := d.DB().QueryContext(ctx, `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE'
	`)
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

func mysqlBuildDSN(config database.Config) string {
	c := driver.NewConfig()
	c.User = config.User
	c.Passwd = config.Password
	c.DBName = config.DbName
	c.AllowCleartextPasswords = config.MySQLEnableCleartextPlugin
	c.TLSConfig = config.SslMode
	// custom.sql is sent as a single script.
	c.MultiStatements = true
	c.ParseTime = true
	if config.Socket == "" {
		c.Net = "tcp"
		c.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	} else {
		c.Net = "unix"
		c.Addr = config.Socket
	}
	return c.FormatDSN()
}

func registerTLSConfig(pemPath string) error {
	rootCertPool := x509.NewCertPool()
	pem, err := os.ReadFile(pemPath)
	if err != nil {
		return err
	}

	if ok := rootCertPool.AppendCertsFromPEM(pem); !ok {
		return fmt.Errorf("failed to append PEM")
	}

	if err := driver.RegisterTLSConfig("custom", &tls.Config{
		RootCAs: rootCertPool,
	}); err != nil {
		return err
	}

	return nil
}
