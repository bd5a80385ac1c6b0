package schema

import (
	"fmt"
	"strings"

	"github.com/sqldef/auditdef/util"
)

// Builder renders dialect specific DDL fragments.
type Builder struct {
	dialect          Dialect
	strategy         dialectStrategy
	quoteIdentifiers bool
}

// NewBuilder returns a builder for dialect. When quoteIdentifiers is set,
// table names are quoted too; column names are always quoted.
func NewBuilder(dialect Dialect, quoteIdentifiers bool) (*Builder, error) {
	s, err := dialect.strategy()
	if err != nil {
		return nil, err
	}
	return &Builder{dialect: dialect, strategy: s, quoteIdentifiers: quoteIdentifiers}, nil
}

func (b *Builder) Dialect() Dialect {
	return b.dialect
}

// QuoteChars returns the opening and closing identifier quote.
func (b *Builder) QuoteChars() (string, string) {
	return b.strategy.quote, b.strategy.quote
}

func (b *Builder) QuotesIdentifiers() bool {
	return b.quoteIdentifiers
}

func (b *Builder) SupportsAutoIncrement() bool {
	return b.strategy.autoIncrement != ""
}

// Quote quotes a column identifier.
func (b *Builder) Quote(ident string) string {
	q := b.strategy.quote
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

// Table renders a table identifier according to the quoting policy. Names
// that are not plain identifiers, such as those joined with "-", are quoted
// regardless.
func (b *Builder) Table(name string) string {
	if b.quoteIdentifiers || !isPlainIdentifier(name) {
		return b.Quote(name)
	}
	return name
}

func isPlainIdentifier(name string) bool {
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		return false
	}
	for _, r := range name {
		if r != '_' && !isAlnum(r) {
			return false
		}
	}
	return true
}

// StringConstant renders s as a single quoted SQL literal.
func StringConstant(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (b *Builder) quoteList(idents []string) string {
	return strings.Join(util.TransformSlice(idents, b.Quote), ", ")
}

// ColumnClause renders the column part of CREATE TABLE or ADD COLUMN.
func (b *Builder) ColumnClause(name string, c Column) string {
	var sb strings.Builder
	sb.WriteString(b.Quote(name))
	sb.WriteString(" ")
	sb.WriteString(c.Type)
	if c.Size != "" {
		fmt.Fprintf(&sb, "(%s)", c.Size)
	}
	if c.NotNull {
		sb.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(*c.Default)
	}
	autoIncrement := c.AutoIncrement && b.SupportsAutoIncrement() &&
		(c.Primary || !b.strategy.autoIncrementNeedsPrimary)
	switch b.dialect {
	case DialectSQLite:
		if c.Unique {
			sb.WriteString(" UNIQUE")
		}
		if c.Primary {
			sb.WriteString(" PRIMARY KEY")
		}
		if autoIncrement {
			sb.WriteString(" " + b.strategy.autoIncrement)
		}
	default:
		if autoIncrement {
			sb.WriteString(" " + b.strategy.autoIncrement)
		}
		if c.Unique {
			sb.WriteString(" UNIQUE")
		}
		if c.Primary {
			sb.WriteString(" PRIMARY KEY")
		}
	}
	return sb.String()
}

// ConstraintClause renders a table level constraint.
func (b *Builder) ConstraintClause(name string, c Constraint) string {
	var body string
	switch {
	case c.SQL != "":
		return c.SQL
	case c.Primary != nil:
		body = fmt.Sprintf("PRIMARY KEY (%s)", b.quoteList(c.Primary))
	case c.Unique != nil:
		body = fmt.Sprintf("UNIQUE (%s)", b.quoteList(c.Unique))
	case c.ForeignKey != nil:
		fk := c.ForeignKey
		body = fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			b.quoteList(fk.Columns), b.Table(fk.ReferenceTable), b.quoteList(fk.ReferenceColumns))
		if fk.OnDelete != "" {
			body += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" {
			body += " ON UPDATE " + fk.OnUpdate
		}
	default:
		body = fmt.Sprintf("CHECK (%s)", c.Check)
	}
	return fmt.Sprintf("CONSTRAINT %s %s", b.Quote(name), body)
}

func (b *Builder) entryClause(e Entry) string {
	if e.Kind == KindConstraint {
		return b.ConstraintClause(e.Name, e.Constraint)
	}
	return b.ColumnClause(e.Name, e.Column)
}

// CreateTable renders CREATE TABLE IF NOT EXISTS for def. Columns precede
// constraints.
func (b *Builder) CreateTable(def Definition) string {
	var columns, constraints []string
	for _, e := range def.Entries {
		if e.Kind == KindConstraint {
			constraints = append(constraints, b.entryClause(e))
		} else {
			columns = append(columns, b.entryClause(e))
		}
	}
	lines := append(columns, constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);", b.Table(def.Name), strings.Join(lines, ",\n    "))
}

// AddColumn renders a standalone ALTER TABLE ... ADD COLUMN statement.
func (b *Builder) AddColumn(table, name string, c Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", b.Table(table), b.ColumnClause(name, c))
}

// CreateView renders the view statement for the dialect.
func (b *Builder) CreateView(name, selectSQL string) string {
	return fmt.Sprintf("%s %s AS %s;", b.strategy.createView, b.Table(name), strings.TrimRight(strings.TrimSpace(selectSQL), ";"))
}
