package schema

import (
	"fmt"
	"strings"
)

type Event string

const (
	EventInsert Event = "insert"
	EventUpdate Event = "update"
	EventDelete Event = "delete"
)

type triggerWriter struct {
	t      *Table
	b      *Builder
	s      dialectStrategy
	c      Case
	now    string
	pk     string
	fields []string
}

func (t *Table) triggerWriter(b *Builder) (*triggerWriter, error) {
	s, err := b.Dialect().strategy()
	if err != nil {
		return nil, err
	}
	return &triggerWriter{
		t:      t,
		b:      b,
		s:      s,
		c:      t.Case.Column,
		now:    s.nowValue,
		pk:     t.primary,
		fields: t.ColumnNames(),
	}, nil
}

// Comparison renders the predicate telling whether column changed on event:
// insert checks the new value is not null, delete checks the old value is not
// null, update checks for a different value or a change of nullness.
func (t *Table) Comparison(b *Builder, column string, event Event) string {
	q := b.Quote(column)
	switch event {
	case EventInsert:
		return fmt.Sprintf("(NEW.%s IS NOT NULL)", q)
	case EventDelete:
		return fmt.Sprintf("(OLD.%s IS NOT NULL)", q)
	default:
		return fmt.Sprintf("((NEW.%[1]s != OLD.%[1]s) OR (NEW.%[1]s IS NOT NULL AND OLD.%[1]s IS NULL) OR (NEW.%[1]s IS NULL AND OLD.%[1]s IS NOT NULL))", q)
	}
}

// UpdatedFlag renders the C_updated value of column for a history row: 1 when
// the change predicate holds, 0 otherwise.
func (t *Table) UpdatedFlag(b *Builder, column string, event Event) string {
	return fmt.Sprintf("CASE WHEN %s THEN 1 ELSE 0 END", t.Comparison(b, column, event))
}

// TriggerSQL renders DROP and CREATE statements of the insert, update and
// delete triggers. Tables without auditing have no triggers.
func (t *Table) TriggerSQL(b *Builder) ([]string, error) {
	if t.History == nil && t.Changes == nil {
		return nil, nil
	}
	w, err := t.triggerWriter(b)
	if err != nil {
		return nil, err
	}

	var stmts []string
	for _, event := range []Event{EventInsert, EventUpdate, EventDelete} {
		var body []string
		if t.History != nil {
			body = append(body, w.historyBody(event)...)
		}
		if t.Changes != nil {
			for _, field := range w.fields {
				body = append(body, w.changesBody(event, field)...)
			}
		}
		name := b.Table(t.Case.Table.Suffix(t.Name, string(event)))
		timing := "AFTER"
		if event == EventDelete {
			timing = "BEFORE"
		}
		stmts = append(stmts,
			fmt.Sprintf("DROP TRIGGER IF EXISTS %s;", name),
			fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s\nFOR EACH ROW BEGIN\n%s\nEND;",
				name, timing, strings.ToUpper(string(event)), b.Table(t.Name), strings.Join(body, "\n")),
		)
	}
	return stmts, nil
}

func (w *triggerWriter) q(ident string) string {
	return w.b.Quote(ident)
}

func (w *triggerWriter) list(idents []string, prefix string) []string {
	out := make([]string, len(idents))
	for i, ident := range idents {
		out[i] = prefix + w.q(ident)
	}
	return out
}

func statement(lines ...string) string {
	return "    " + strings.Join(lines, "\n        ") + ";"
}

// shadowLog captures what differs between the history and changes tables
// when closing, inserting and linking versions.
type shadowLog struct {
	table string
	names shadowNames
	// scope restricts the version chain, e.g. to one base row and field.
	scope string
	// guard is an extra condition every statement must satisfy.
	guard string
}

func (w *triggerWriter) where(l shadowLog, conds ...string) string {
	all := append([]string{l.scope}, conds...)
	if l.guard != "" {
		all = append(all, l.guard)
	}
	return "WHERE " + strings.Join(all, " AND ")
}

// closeCurrent ends the open version of the chain.
func (w *triggerWriter) closeCurrent(l shadowLog) string {
	return statement(
		fmt.Sprintf("UPDATE %s SET %s = %s, %s = %s", w.b.Table(l.table),
			w.q(l.names.end), w.now, w.q(l.names.duration), w.s.duration(w.q(l.names.start))),
		w.where(l, w.q(l.names.end)+" IS NULL"),
	)
}

// previousLookup selects the most recently closed, not yet linked version.
func (w *triggerWriter) previousLookup(l shadowLog) string {
	return fmt.Sprintf("(SELECT %s FROM %s %s ORDER BY %s DESC LIMIT 1)",
		w.q(l.names.id), w.b.Table(l.table),
		"WHERE "+strings.Join([]string{l.scope, w.q(l.names.end) + " IS NOT NULL", w.q(l.names.idNext) + " IS NULL"}, " AND "),
		w.q(l.names.id))
}

func (w *triggerWriter) variable(l shadowLog) string {
	return "@" + w.q(l.names.idLast)
}

// previous returns the statements to run before the insert and the
// expression referencing the superseded version id.
func (w *triggerWriter) previous(l shadowLog) ([]string, string) {
	if w.s.sessionVariables {
		return []string{statement(fmt.Sprintf("SET %s = %s", w.variable(l), w.previousLookup(l)))}, w.variable(l)
	}
	return nil, w.previousLookup(l)
}

// link points the superseded version at the row just inserted.
func (w *triggerWriter) link(l shadowLog, assignments ...string) string {
	target := w.variable(l)
	if !w.s.sessionVariables {
		target = fmt.Sprintf("(SELECT %s FROM %s WHERE %s = %s)",
			w.q(l.names.idLast), w.b.Table(l.table), w.q(l.names.id), w.s.lastInsertID)
	}
	set := append([]string{fmt.Sprintf("%s = %s", w.q(l.names.idNext), w.s.lastInsertID)}, assignments...)
	conds := []string{fmt.Sprintf("%s = %s", w.q(l.names.id), target)}
	if l.guard != "" {
		conds = append(conds, l.guard)
	}
	return statement(
		fmt.Sprintf("UPDATE %s SET %s", w.b.Table(l.table), strings.Join(set, ", ")),
		"WHERE "+strings.Join(conds, " AND "),
	)
}

func (w *triggerWriter) historyLog() shadowLog {
	return shadowLog{
		table: w.t.History.Name,
		names: newShadowNames("history", w.c),
		scope: fmt.Sprintf("%s = OLD.%s", w.q(w.pk), w.q(w.pk)),
	}
}

func (w *triggerWriter) historyBody(event Event) []string {
	l := w.historyLog()
	flags := make([]string, len(w.fields))
	updated := make([]string, len(w.fields))
	last := make([]string, len(w.fields))
	next := make([]string, len(w.fields))
	for i, f := range w.fields {
		flags[i] = w.t.UpdatedFlag(w.b, f, event)
		updated[i] = updatedColumn(w.c, f)
		last[i] = lastColumn(w.c, f)
		next[i] = nextColumn(w.c, f)
	}
	table := w.b.Table(l.table)
	eventName := StringConstant(string(event))

	if event == EventInsert {
		columns := append(append([]string{}, updated...), w.fields...)
		columns = append(columns, l.names.start, l.names.event)
		values := append(append([]string{}, flags...), w.list(w.fields, "NEW.")...)
		values = append(values, w.now, eventName)
		return []string{w.insertValues(table, columns, values)}
	}

	stmts := []string{w.closeCurrent(l)}
	before, prev := w.previous(l)
	stmts = append(stmts, before...)

	var columns, values []string
	if event == EventUpdate {
		columns = append(append(append([]string{}, updated...), last...), w.fields...)
		columns = append(columns, l.names.start, l.names.event, l.names.idLast)
		values = append(append(append([]string{}, flags...), w.list(w.fields, "OLD.")...), w.list(w.fields, "NEW.")...)
		values = append(values, w.now, eventName, prev)
	} else {
		columns = append(append([]string{}, updated...), last...)
		columns = append(columns, l.names.start, l.names.end, l.names.duration, l.names.event, l.names.idLast)
		values = append(append([]string{}, flags...), w.list(w.fields, "OLD.")...)
		values = append(values, w.now, w.now, "0", eventName, prev)
	}
	stmts = append(stmts, w.insertValues(table, columns, values))

	var assignments []string
	if event == EventUpdate {
		for i, f := range w.fields {
			assignments = append(assignments, fmt.Sprintf("%s = NEW.%s", w.q(next[i]), w.q(f)))
		}
	}
	return append(stmts, w.link(l, assignments...))
}

func (w *triggerWriter) insertValues(table string, columns, values []string) string {
	return statement(
		fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(w.list(columns, ""), ", ")),
		fmt.Sprintf("VALUES (%s)", strings.Join(values, ", ")),
	)
}

func (w *triggerWriter) insertSelect(table string, columns, values []string, guard string) string {
	return statement(
		fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(w.list(columns, ""), ", ")),
		fmt.Sprintf("SELECT %s%s WHERE %s", strings.Join(values, ", "), w.s.fromDual, guard),
	)
}

func (w *triggerWriter) changesBody(event Event, field string) []string {
	names := newShadowNames("changes", w.c)
	fieldColumn := w.c.Name("field")
	valueColumn := w.c.Name("value")
	predicate := w.t.Comparison(w.b, field, event)
	literal := StringConstant(field)
	table := w.b.Table(w.t.Changes.Name)
	eventName := StringConstant(string(event))

	if event == EventInsert {
		return []string{w.insertSelect(table,
			[]string{w.pk, fieldColumn, valueColumn, names.start, names.event},
			[]string{"NEW." + w.q(w.pk), literal, "NEW." + w.q(field), w.now, eventName},
			predicate,
		)}
	}

	l := shadowLog{
		table: w.t.Changes.Name,
		names: names,
		scope: fmt.Sprintf("%s = OLD.%s AND %s = %s", w.q(w.pk), w.q(w.pk), w.q(fieldColumn), literal),
		guard: predicate,
	}
	stmts := []string{w.closeCurrent(l)}
	before, prev := w.previous(l)
	stmts = append(stmts, before...)

	valueLast := w.c.Suffix("value", "last")
	if event == EventUpdate {
		stmts = append(stmts, w.insertSelect(table,
			[]string{w.pk, fieldColumn, valueLast, valueColumn, names.start, names.event, names.idLast},
			[]string{"NEW." + w.q(w.pk), literal, "OLD." + w.q(field), "NEW." + w.q(field), w.now, eventName, prev},
			predicate,
		))
		return append(stmts, w.link(l, fmt.Sprintf("%s = NEW.%s", w.q(w.c.Suffix("value", "next")), w.q(field))))
	}

	stmts = append(stmts, w.insertSelect(table,
		[]string{w.pk, fieldColumn, valueLast, names.start, names.end, names.duration, names.event, names.idLast},
		[]string{"OLD." + w.q(w.pk), literal, "OLD." + w.q(field), w.now, w.now, "0", eventName, prev},
		predicate,
	))
	return append(stmts, w.link(l))
}
