// Utilities for _test.go files
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/sqldef/auditdef/database"
	"github.com/sqldef/auditdef/database/sqlite3"
	"github.com/sqldef/auditdef/schema"
	"github.com/sqldef/auditdef/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stripHeredocRegex = regexp.MustCompilePOSIX("^\t*")

// TestCase is one compiler fixture: a table definition and the SQL expected
// from it.
type TestCase struct {
	Dialect          string // default: sqlite
	Audit            string // default: none
	QuoteIdentifiers bool   `yaml:"quote_identifiers"`
	Case             struct {
		Table  string
		Column string
	}
	Format      string   // yaml (default) or json
	Definition  string   // table document as written in tables/
	Output      *string  // whole expected script
	Contains    []string // fragments the script must contain
	NotContains []string `yaml:"not_contains"`
	Error       *string  // expected error substring
}

func init() {
	util.InitSlog()

	// In test environments, suppress INFO-level logs to prevent them from contaminating test output comparisons.
	// Users can still see DEBUG/INFO logs by setting LOG_LEVEL=debug or LOG_LEVEL=info environment variable,
	// which will override this default. Warnings and errors will still appear by default.
	if os.Getenv("LOG_LEVEL") == "" {
		opts := &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}
		handler := slog.NewTextHandler(os.Stderr, opts)
		slog.SetDefault(slog.New(handler))
	}
}

func ReadTests(pattern string) (map[string]TestCase, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	ret := map[string]TestCase{}
	// Track which file each test case came from for better error messages
	testFileMap := map[string]string{}

	for _, file := range files {
		var tests map[string]*TestCase

		buf, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		dec := yaml.NewDecoder(bytes.NewReader(buf), yaml.DisallowUnknownField())
		err = dec.Decode(&tests)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}

		for name, test := range tests {
			if test.Definition == "" {
				return nil, fmt.Errorf("%s: test case '%s' has no definition", file, name)
			}
			if test.Output == nil && test.Contains == nil && test.Error == nil {
				return nil, fmt.Errorf("%s: test case '%s' must specify output, contains or error", file, name)
			}
			if existingFile, ok := testFileMap[name]; ok {
				return nil, fmt.Errorf("duplicate test case name '%s': defined in both '%s' and '%s'", name, existingFile, file)
			}
			testFileMap[name] = file
			ret[name] = *test
		}
	}

	return ret, nil
}

// Options converts the fixture settings into compiler options.
func (test TestCase) Options(t *testing.T) schema.Options {
	t.Helper()
	dialect := test.Dialect
	if dialect == "" {
		dialect = "sqlite"
	}
	d, err := schema.ParseDialect(dialect)
	require.NoError(t, err)
	audit, err := schema.ParseAuditMethod(test.Audit)
	require.NoError(t, err)

	opts := schema.Options{Dialect: d, Audit: audit}
	if test.Case.Table != "" {
		opts.Case.Table, err = schema.ParseCase(test.Case.Table)
		require.NoError(t, err)
	}
	if test.Case.Column != "" {
		opts.Case.Column, err = schema.ParseCase(test.Case.Column)
		require.NoError(t, err)
	}
	return opts
}

// Compile loads the fixture definition the way the driver does and renders
// its script.
func (test TestCase) Compile(t *testing.T, name string) (string, error) {
	t.Helper()
	ext := ".yml"
	if test.Format == "json" {
		ext = ".json"
	}
	dir := t.TempDir()
	WriteFile(t, filepath.Join(dir, name+ext), test.Definition)

	sources, err := schema.LoadTables(context.Background(), dir)
	if err != nil {
		return "", err
	}
	require.Len(t, sources, 1)

	opts := test.Options(t)
	table, err := schema.NewTable(sources[0], opts)
	if err != nil {
		return "", err
	}
	b, err := schema.NewBuilder(opts.Dialect, test.QuoteIdentifiers)
	require.NoError(t, err)
	return table.SQL(b)
}

func RunCompileTest(t *testing.T, name string, test TestCase) {
	t.Helper()
	sql, err := test.Compile(t, name)
	if test.Error != nil {
		require.Error(t, err)
		assert.Contains(t, err.Error(), *test.Error)
		return
	}
	require.NoError(t, err)

	if test.Output != nil {
		assert.Equal(t, *test.Output, sql)
	}
	for _, fragment := range test.Contains {
		assert.Contains(t, sql, strings.TrimRight(fragment, "\n"))
	}
	for _, fragment := range test.NotContains {
		assert.NotContains(t, sql, strings.TrimRight(fragment, "\n"))
	}
}

// OpenSQLite opens a fresh SQLite database file under the test's temporary
// directory.
func OpenSQLite(t *testing.T) database.Database {
	t.Helper()
	db, err := sqlite3.NewDatabase(database.Config{DbName: filepath.Join(t.TempDir(), "index.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// StringLogger collects printed SQL.
type StringLogger struct {
	buf strings.Builder
}

func (l *StringLogger) Print(v ...any) {
	l.buf.WriteString(fmt.Sprint(v...))
}

func (l *StringLogger) Printf(format string, v ...any) {
	l.buf.WriteString(fmt.Sprintf(format, v...))
}

func (l *StringLogger) Println(v ...any) {
	l.buf.WriteString(fmt.Sprint(v...))
	l.buf.WriteString("\n")
}

func (l *StringLogger) String() string {
	return l.buf.String()
}

// QueryRows executes a query and returns the results as a tab-separated string.
func QueryRows(t *testing.T, db database.Database, query string) string {
	t.Helper()
	rows, err := db.DB().Query(query)
	require.NoError(t, err)
	defer rows.Close()

	var result strings.Builder
	columns, err := rows.Columns()
	require.NoError(t, err)

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		require.NoError(t, rows.Scan(valuePtrs...))

		for i, val := range values {
			if i > 0 {
				result.WriteString("\t")
			}
			if val != nil {
				switch v := val.(type) {
				case []byte:
					result.WriteString(string(v))
				default:
					result.WriteString(fmt.Sprintf("%v", v))
				}
			}
		}
		result.WriteString("\n")
	}
	require.NoError(t, rows.Err())

	return result.String()
}

func WriteFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func StripHeredoc(heredoc string) string {
	heredoc = strings.TrimPrefix(heredoc, "\n")
	return stripHeredocRegex.ReplaceAllLiteralString(heredoc, "")
}
