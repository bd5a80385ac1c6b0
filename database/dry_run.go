package database

import (
	"context"
	"database/sql"
)

// DryRunDatabase reads from the wrapped database and prints writes instead of
// executing them.
type DryRunDatabase struct {
	wrapped Database
	logger  Logger
}

func NewDryRunDatabase(db Database, logger Logger) *DryRunDatabase {
	return &DryRunDatabase{wrapped: db, logger: logger}
}

func (d *DryRunDatabase) Run(ctx context.Context, query string, args ...any) (Result, error) {
	d.logger.Printf("-- Skipped: %s\n", query)
	return Result{}, nil
}

func (d *DryRunDatabase) All(ctx context.Context, query string, args ...any) ([]Row, error) {
	return d.wrapped.All(ctx, query, args...)
}

func (d *DryRunDatabase) Get(ctx context.Context, query string, args ...any) (Row, error) {
	return d.wrapped.Get(ctx, query, args...)
}

func (d *DryRunDatabase) Exec(ctx context.Context, script string) error {
	return nil
}

func (d *DryRunDatabase) Columns(ctx context.Context, table string) ([]string, error) {
	return d.wrapped.Columns(ctx, table)
}

func (d *DryRunDatabase) DB() *sql.DB {
	return d.wrapped.DB()
}

func (d *DryRunDatabase) Close() error {
	return d.wrapped.Close()
}
