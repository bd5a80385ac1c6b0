// Package auditdef compiles table and view definitions into DDL, shadow
// tables and audit triggers, and applies them to a database.
package auditdef

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqldef/auditdef/database"
	"github.com/sqldef/auditdef/schema"
	"github.com/zeebo/xxh3"
)

const (
	TablesDir = "tables"
	ViewsDir  = "views"
	SQLDir    = "sql"

	TablesFile = "tables.sql"
	AlterFile  = "alter.sql"
	ViewsFile  = "views.sql"
	CustomFile = "custom.sql"
)

type Options struct {
	// Root holds the tables, views and sql directories.
	Root             string
	Dialect          schema.Dialect
	Audit            schema.AuditMethod
	Case             schema.CaseConfig
	Single           bool
	QuoteIdentifiers bool
	DryRun           bool
	// Concurrency bounds introspection queries. 0 runs them sequentially and
	// a negative value removes the limit.
	Concurrency int
	Logger      database.Logger
}

// Failure is a definition that could not be compiled. The run continues
// without it.
type Failure struct {
	File string
	Name string
	Err  error
}

type Result struct {
	Tables []*schema.Table
	Views  []*schema.View
	Failed []Failure
	// Artifacts are the SQL files written, in phase order.
	Artifacts []string
}

// Run loads every definition under opts.Root and brings db up to date: it
// creates tables and triggers, adds missing columns, creates views and finally
// executes custom.sql. Phases run in order and the first failing phase aborts
// the run. Statements already applied are not rolled back.
func Run(ctx context.Context, db database.Database, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = database.StdoutLogger()
	}
	if opts.DryRun {
		if _, ok := db.(*database.DryRunDatabase); !ok {
			db = database.NewDryRunDatabase(db, logger)
		}
	}
	b, err := schema.NewBuilder(opts.Dialect, opts.QuoteIdentifiers)
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{TablesDir, ViewsDir, SQLDir} {
		if err := os.MkdirAll(filepath.Join(opts.Root, dir), 0o755); err != nil {
			return nil, err
		}
	}

	result := &Result{}
	if err := result.compile(ctx, opts); err != nil {
		return nil, err
	}

	if opts.Single {
		if err := result.writeSidecars(b, opts.Root); err != nil {
			return nil, err
		}
	}

	var tableStmts []string
	for _, t := range result.Tables {
		stmts, err := t.Statements(b)
		if err != nil {
			return nil, err
		}
		tableStmts = append(tableStmts, stmts...)
	}
	if err := result.apply(ctx, db, logger, opts.Root, TablesFile, tableStmts); err != nil {
		return nil, err
	}

	alterStmts, err := result.alterStatements(ctx, db, b, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	if err := result.apply(ctx, db, logger, opts.Root, AlterFile, alterStmts); err != nil {
		return nil, err
	}

	viewStmts := make([]string, len(result.Views))
	for i, v := range result.Views {
		viewStmts[i] = v.SQL(b)
	}
	if err := result.apply(ctx, db, logger, opts.Root, ViewsFile, viewStmts); err != nil {
		return nil, err
	}

	if err := runCustom(ctx, db, logger, opts.Root); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Result) compile(ctx context.Context, opts Options) error {
	tables, err := schema.LoadTables(ctx, filepath.Join(opts.Root, TablesDir))
	if err != nil {
		return err
	}
	views, err := schema.LoadViews(ctx, filepath.Join(opts.Root, ViewsDir))
	if err != nil {
		return err
	}

	tableOpts := schema.Options{Dialect: opts.Dialect, Audit: opts.Audit, Case: opts.Case}
	for _, src := range tables {
		t, err := schema.NewTable(src, tableOpts)
		if err != nil {
			if !isDefinitionError(err) {
				return err
			}
			r.fail(src, err)
			continue
		}
		r.Tables = append(r.Tables, t)
	}
	for _, src := range views {
		v, err := schema.NewView(src)
		if err != nil {
			if !isDefinitionError(err) {
				return err
			}
			r.fail(src, err)
			continue
		}
		r.Views = append(r.Views, v)
	}
	return nil
}

func isDefinitionError(err error) bool {
	return errors.Is(err, schema.ErrInvalidDefinition) || errors.Is(err, schema.ErrMixedCase)
}

func (r *Result) fail(src schema.Source, err error) {
	slog.Error("Skipping invalid definition", "file", src.File, "name", src.Name, "error", err)
	r.Failed = append(r.Failed, Failure{File: src.File, Name: src.Name, Err: err})
}

// writeSidecars writes the SQL of every table and view next to its
// definition.
func (r *Result) writeSidecars(b *schema.Builder, root string) error {
	for _, t := range r.Tables {
		sql, err := t.SQL(b)
		if err != nil {
			return err
		}
		if err := writeArtifact(filepath.Join(root, TablesDir, t.Name+".sql"), sql); err != nil {
			return err
		}
	}
	for _, v := range r.Views {
		if err := writeArtifact(filepath.Join(root, ViewsDir, v.Name+".sql"), v.SQL(b)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func (r *Result) alterStatements(ctx context.Context, db database.Database, b *schema.Builder, concurrency int) ([]string, error) {
	var names []string
	for _, t := range r.Tables {
		names = append(names, t.AlterTables()...)
	}
	live, err := database.Introspect(ctx, db, names, concurrency)
	if err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}

	var stmts []string
	for _, t := range r.Tables {
		stmts = append(stmts, t.AlterSQL(b, live)...)
	}
	return stmts, nil
}

// apply writes stmts to the named file under the sql directory, then runs
// them.
func (r *Result) apply(ctx context.Context, db database.Database, logger database.Logger, root, name string, stmts []string) error {
	path := filepath.Join(root, SQLDir, name)
	if err := writeArtifact(path, schema.JoinStatements(stmts)); err != nil {
		return err
	}
	r.Artifacts = append(r.Artifacts, path)
	if err := database.RunStatements(ctx, db, stmts, logger); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// runCustom executes the hand written custom.sql script, if any.
func runCustom(ctx context.Context, db database.Database, logger database.Logger, root string) error {
	path := filepath.Join(root, SQLDir, CustomFile)
	buf, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}
	script := strings.TrimSpace(string(buf))
	if script == "" {
		return nil
	}
	if err := database.RunStatements(ctx, db, []string{script}, logger); err != nil {
		return fmt.Errorf("%s: %w", CustomFile, err)
	}
	return nil
}

func writeArtifact(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return err
	}
	slog.Info("Wrote artifact", "path", path, "bytes", len(content), "xxh3", fmt.Sprintf("%016x", xxh3.HashString(content)))
	return nil
}
