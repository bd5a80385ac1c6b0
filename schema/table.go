package schema

import (
	"fmt"
	"strings"
)

// AuditMethod selects which shadow tables and triggers are generated.
type AuditMethod string

const (
	AuditNone   AuditMethod = "none"
	AuditRow    AuditMethod = "row"
	AuditColumn AuditMethod = "column"
	AuditAll    AuditMethod = "all"
)

func ParseAuditMethod(s string) (AuditMethod, error) {
	switch m := AuditMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case AuditNone, AuditRow, AuditColumn, AuditAll:
		return m, nil
	case "":
		return AuditNone, nil
	default:
		return "", fmt.Errorf("unknown audit method %q", s)
	}
}

func (m *AuditMethod) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseAuditMethod(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m AuditMethod) Rows() bool {
	return m == AuditRow || m == AuditAll
}

func (m AuditMethod) Columns() bool {
	return m == AuditColumn || m == AuditAll
}

type Options struct {
	Dialect Dialect
	Audit   AuditMethod
	// Case overrides inference for every table that does not carry its own
	// $case. Zero values are inferred.
	Case CaseConfig
}

// Table is the compiled model of one table definition. It is immutable once
// returned by NewTable.
type Table struct {
	Definition
	Priority int
	Dialect  Dialect
	Audit    AuditMethod
	Case     CaseConfig
	// History and Changes are nil when the audit method does not use them.
	History *Definition
	Changes *Definition

	primary string
}

// NewTable validates src, resolves its case convention, injects the
// structural columns and derives the shadow tables.
func NewTable(src Source, opts Options) (*Table, error) {
	if _, err := opts.Dialect.strategy(); err != nil {
		return nil, err
	}
	declared, override, err := parseTable(src)
	if err != nil {
		return nil, err
	}

	caseConfig := opts.Case
	if override != nil {
		if override.Table.Type != "" {
			caseConfig.Table = override.Table
		}
		if override.Column.Type != "" {
			caseConfig.Column = override.Column
		}
	}
	caseConfig, err = resolveCase(declared, caseConfig)
	if err != nil {
		return nil, &ValidationError{Name: declared.Name, Reason: err.Error()}
	}

	audit := opts.Audit
	if audit == "" {
		audit = AuditNone
	}

	t := &Table{
		Definition: injectColumns(declared, caseConfig.Column, opts.Dialect),
		Priority:   src.Priority,
		Dialect:    opts.Dialect,
		Audit:      audit,
		Case:       caseConfig,
	}
	primary, ok := t.Definition.Primary()
	if !ok {
		// A declared "id" column without $primary still identifies rows.
		primary = Entry{Name: caseConfig.Column.Name("id")}
	}
	t.primary = primary.Name
	if audit != AuditNone && !t.Definition.Has(t.primary) {
		return nil, invalid(t.Name, "auditing needs a single column primary key or an %q column", t.primary)
	}

	if audit.Rows() {
		h := DeriveHistory(t.Definition, caseConfig)
		t.History = &h
	}
	if audit.Columns() {
		c := DeriveChanges(t.Definition, t.primary, caseConfig)
		t.Changes = &c
	}
	return t, nil
}

func resolveCase(def Definition, config CaseConfig) (CaseConfig, error) {
	var err error
	if config.Table.Type == "" {
		if config.Table, err = InferCase(def.Name); err != nil {
			return CaseConfig{}, err
		}
	}
	if config.Column.Type == "" {
		keys := make([]string, len(def.Entries))
		for i, e := range def.Entries {
			keys[i] = e.Name
		}
		if config.Column, err = InferCase(keys...); err != nil {
			return CaseConfig{}, err
		}
	}
	if config.Table.Join == "" && config.Column.Join != "" {
		config.Table.Join = config.Column.Join
	}
	return config, nil
}

// PrimaryKey returns the column identifying base rows in the shadow tables.
func (t *Table) PrimaryKey() string {
	return t.primary
}

// Statements returns every statement needed to create the table, its shadow
// tables and its triggers.
func (t *Table) Statements(b *Builder) ([]string, error) {
	if b.Dialect() != t.Dialect {
		return nil, fmt.Errorf("%w: table %s compiled for %s, builder is %s", ErrUnsupportedDialect, t.Name, t.Dialect, b.Dialect())
	}
	stmts := t.CreateTableSQL(b)
	triggers, err := t.TriggerSQL(b)
	if err != nil {
		return nil, err
	}
	return append(stmts, triggers...), nil
}

// SQL joins Statements into one script.
func (t *Table) SQL(b *Builder) (string, error) {
	stmts, err := t.Statements(b)
	if err != nil {
		return "", err
	}
	return JoinStatements(stmts), nil
}

func JoinStatements(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "\n\n") + "\n"
}
