package schema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDefinition = errors.New("invalid definition")

// ValidationError reports a malformed table or view definition.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid definition: %s", e.Reason)
	}
	return fmt.Sprintf("invalid definition %q: %s", e.Name, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDefinition
}

func invalid(name, format string, args ...any) error {
	return &ValidationError{Name: name, Reason: fmt.Sprintf(format, args...)}
}

type Kind int

const (
	KindColumn Kind = iota
	KindConstraint
)

type Column struct {
	Type string
	Size string
	// Default is a raw SQL expression, nil when the column has no default.
	Default       *string
	NotNull       bool
	Primary       bool
	AutoIncrement bool
	Unique        bool
}

// stripped returns a copy carrying only the type information, as used by
// shadow tables.
func (c Column) stripped() Column {
	return Column{Type: c.Type, Size: c.Size}
}

type ForeignKey struct {
	Columns            []string
	ReferenceTable     string
	ReferenceColumns   []string
	OnDelete, OnUpdate string
}

// Constraint is a table level constraint. It is rendered as given and never
// interpreted by the trigger or shadow table generators.
type Constraint struct {
	SQL        string
	Primary    []string
	Unique     []string
	ForeignKey *ForeignKey
	Check      string
}

type Entry struct {
	Name       string
	Kind       Kind
	Column     Column
	Constraint Constraint
}

// Definition is the renderable shape of one table.
type Definition struct {
	Name    string
	Entries []Entry
}

func (d *Definition) Columns() []Entry {
	var columns []Entry
	for _, e := range d.Entries {
		if e.Kind == KindColumn {
			columns = append(columns, e)
		}
	}
	return columns
}

func (d *Definition) ColumnNames() []string {
	var names []string
	for _, e := range d.Entries {
		if e.Kind == KindColumn {
			names = append(names, e.Name)
		}
	}
	return names
}

func (d *Definition) Has(name string) bool {
	for _, e := range d.Entries {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Primary returns the primary key column, if any. A single column primary key
// constraint counts too.
func (d *Definition) Primary() (Entry, bool) {
	for _, e := range d.Entries {
		if e.Kind == KindColumn && e.Column.Primary {
			return e, true
		}
	}
	for _, e := range d.Entries {
		if e.Kind == KindConstraint && len(e.Constraint.Primary) == 1 {
			for _, c := range d.Entries {
				if c.Kind == KindColumn && c.Name == e.Constraint.Primary[0] {
					return c, true
				}
			}
		}
	}
	return Entry{}, false
}

// HasPrimaryKey reports whether a column or a constraint declares a primary
// key.
func (d *Definition) HasPrimaryKey() bool {
	if _, ok := d.Primary(); ok {
		return true
	}
	for _, e := range d.Entries {
		if e.Kind == KindConstraint && e.Constraint.Primary != nil {
			return true
		}
	}
	return false
}

func (d *Definition) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return invalid(d.Name, "empty table name")
	}
	primaries := 0
	seen := map[string]bool{}
	for _, e := range d.Entries {
		if seen[e.Name] {
			return invalid(d.Name, "duplicate entry %q", e.Name)
		}
		seen[e.Name] = true
		if e.Kind != KindColumn {
			continue
		}
		if e.Column.Type == "" {
			return invalid(d.Name, "column %q has no $type", e.Name)
		}
		if e.Column.Primary {
			primaries++
		}
	}
	for _, e := range d.Entries {
		if e.Kind == KindConstraint && e.Constraint.Primary != nil {
			primaries++
		}
	}
	if primaries > 1 {
		return invalid(d.Name, "%d primary keys declared", primaries)
	}
	return nil
}
