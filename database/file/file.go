package file

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/sqldef/auditdef/database"
	"gopkg.in/yaml.v2"
)

// Pseudo database answering introspection from a YAML snapshot that maps
// table names to column lists. Writes are discarded.
type FileDatabase struct {
	file   string
	tables map[string][]string
}

func NewDatabase(file string) (*FileDatabase, error) {
	tables := map[string][]string{}
	buf, err := os.ReadFile(file)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.UnmarshalStrict(buf, &tables); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	return &FileDatabase{file: file, tables: tables}, nil
}

func (f *FileDatabase) Run(ctx context.Context, query string, args ...any) (database.Result, error) {
	return database.Result{}, nil
}

func (f *FileDatabase) All(ctx context.Context, query string, args ...any) ([]database.Row, error) {
	return nil, nil
}

func (f *FileDatabase) Get(ctx context.Context, query string, args ...any) (database.Row, error) {
	return nil, nil
}

func (f *FileDatabase) Exec(ctx context.Context, script string) error {
	return nil
}

func (f *FileDatabase) Columns(ctx context.Context, table string) ([]string, error) {
	return f.tables[table], nil
}

// TableNames lists the snapshot's tables in sorted order.
func (f *FileDatabase) TableNames(ctx context.Context) ([]string, error) {
	return slices.Sorted(maps.Keys(f.tables)), nil
}

func (f *FileDatabase) DB() *sql.DB {
	return nil
}

func (f *FileDatabase) Close() error {
	return nil
}
