package schema

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Keys of the definition file format.
const (
	keyTable      = "$table"
	keyDefine     = "$define"
	keyView       = "$view"
	keySelect     = "$select"
	keyPriority   = "$priority"
	keyCase       = "$case"
	keyColumn     = "$column"
	keyConstraint = "$constraint"
)

const DefaultPriority = 1000

// Source is one table or view document as found in a definition file.
type Source struct {
	File     string
	Name     string
	Priority int
	Body     yaml.MapSlice
}

func lookup(m yaml.MapSlice, key string) (any, bool) {
	for _, item := range m {
		if fmt.Sprint(item.Key) == key {
			return item.Value, true
		}
	}
	return nil, false
}

func asMap(v any) (yaml.MapSlice, bool) {
	switch m := v.(type) {
	case yaml.MapSlice:
		return m, true
	case map[any]any:
		// Order is lost for plain maps; only reachable for hand built input.
		var out yaml.MapSlice
		for k, val := range m {
			out = append(out, yaml.MapItem{Key: k, Value: val})
		}
		return out, true
	default:
		return nil, false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	}
	return false
}

// sqlValue renders a scalar from a definition file as raw SQL text.
func sqlValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "NULL", true
	case string:
		return x, true
	case bool:
		if x {
			return "1", true
		}
		return "0", true
	case int, int64, uint64:
		return fmt.Sprint(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

func stringList(v any) ([]string, bool) {
	switch x := v.(type) {
	case string:
		return []string{x}, true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// sourcePriority reads $priority from the top level or from the main key.
func sourcePriority(body yaml.MapSlice, mainKey string) (int, error) {
	raw, ok := lookup(body, keyPriority)
	if !ok {
		if main, isMap := asMap(mustLookup(body, mainKey)); isMap {
			raw, ok = lookup(main, keyPriority)
		}
	}
	if !ok {
		return DefaultPriority, nil
	}
	p, ok := asInt(raw)
	if !ok {
		return 0, fmt.Errorf("$priority must be a number, got %v", raw)
	}
	return p, nil
}

func mustLookup(m yaml.MapSlice, key string) any {
	v, _ := lookup(m, key)
	return v
}

// parseTable validates a table document and returns its declared shape and an
// optional explicit case override.
func parseTable(src Source) (Definition, *CaseConfig, error) {
	rawName, ok := lookup(src.Body, keyTable)
	if !ok {
		return Definition{}, nil, invalid(src.Name, "missing %s", keyTable)
	}
	name, ok := rawName.(string)
	if !ok {
		return Definition{}, nil, invalid(src.Name, "%s must be a string, got %T", keyTable, rawName)
	}
	rawDefine, ok := lookup(src.Body, keyDefine)
	if !ok {
		return Definition{}, nil, invalid(name, "missing %s", keyDefine)
	}
	define, ok := asMap(rawDefine)
	if !ok {
		return Definition{}, nil, invalid(name, "%s must be an object, got %T", keyDefine, rawDefine)
	}

	def := Definition{Name: name}
	for _, item := range define {
		key := fmt.Sprint(item.Key)
		if key == keyPriority {
			continue
		}
		entry, err := parseEntry(name, key, item.Value)
		if err != nil {
			return Definition{}, nil, err
		}
		def.Entries = append(def.Entries, entry)
	}
	if err := def.validate(); err != nil {
		return Definition{}, nil, err
	}

	var override *CaseConfig
	if rawCase, ok := lookup(src.Body, keyCase); ok {
		c, err := parseCaseConfig(name, rawCase)
		if err != nil {
			return Definition{}, nil, err
		}
		override = &c
	}
	return def, override, nil
}

func parseEntry(table, key string, value any) (Entry, error) {
	if key == keyColumn {
		return Entry{}, invalid(table, "%s is reserved and cannot name a column", keyColumn)
	}
	entry, ok := asMap(value)
	if !ok {
		return Entry{}, invalid(table, "entry %q must be an object", key)
	}

	if rawColumn, ok := lookup(entry, keyColumn); ok {
		attrs, ok := asMap(rawColumn)
		if !ok {
			return Entry{}, invalid(table, "%s of %q must be an object", keyColumn, key)
		}
		column, err := parseColumn(table, key, attrs)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Name: key, Kind: KindColumn, Column: column}, nil
	}

	if rawConstraint, ok := lookup(entry, keyConstraint); ok {
		attrs, ok := asMap(rawConstraint)
		if !ok {
			return Entry{}, invalid(table, "%s of %q must be an object", keyConstraint, key)
		}
		constraint, err := parseConstraint(table, key, attrs)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Name: key, Kind: KindConstraint, Constraint: constraint}, nil
	}

	return Entry{}, invalid(table, "entry %q has neither %s nor %s", key, keyColumn, keyConstraint)
}

func parseColumn(table, name string, attrs yaml.MapSlice) (Column, error) {
	var c Column
	for _, item := range attrs {
		key := fmt.Sprint(item.Key)
		switch key {
		case "$type":
			s, ok := item.Value.(string)
			if !ok {
				return Column{}, invalid(table, "$type of %q must be a string", name)
			}
			c.Type = s
		case "$size":
			s, ok := sqlValue(item.Value)
			if !ok || item.Value == nil {
				return Column{}, invalid(table, "$size of %q must be a number or string", name)
			}
			c.Size = s
		case "$default":
			s, ok := sqlValue(item.Value)
			if !ok {
				return Column{}, invalid(table, "$default of %q must be a scalar", name)
			}
			c.Default = &s
		case "$notNull":
			c.NotNull = asBool(item.Value)
		case "$primary":
			c.Primary = asBool(item.Value)
		case "$autoInc":
			c.AutoIncrement = asBool(item.Value)
		case "$unique":
			c.Unique = asBool(item.Value)
		default:
			return Column{}, invalid(table, "unknown column attribute %s on %q", key, name)
		}
	}
	return c, nil
}

func parseConstraint(table, name string, attrs yaml.MapSlice) (Constraint, error) {
	var c Constraint
	for _, item := range attrs {
		key := fmt.Sprint(item.Key)
		switch key {
		case "$sql":
			s, ok := item.Value.(string)
			if !ok {
				return Constraint{}, invalid(table, "$sql of constraint %q must be a string", name)
			}
			c.SQL = s
		case "$check":
			s, ok := item.Value.(string)
			if !ok {
				return Constraint{}, invalid(table, "$check of constraint %q must be a string", name)
			}
			c.Check = s
		case "$primary", "$unique":
			columns, ok := stringList(item.Value)
			if !ok {
				return Constraint{}, invalid(table, "%s of constraint %q must list columns", key, name)
			}
			if key == "$primary" {
				c.Primary = columns
			} else {
				c.Unique = columns
			}
		case "$foreignKey":
			fk, err := parseForeignKey(table, name, item.Value)
			if err != nil {
				return Constraint{}, err
			}
			c.ForeignKey = fk
		default:
			return Constraint{}, invalid(table, "unknown constraint attribute %s on %q", key, name)
		}
	}
	if c.SQL == "" && c.Check == "" && c.Primary == nil && c.Unique == nil && c.ForeignKey == nil {
		return Constraint{}, invalid(table, "constraint %q is empty", name)
	}
	return c, nil
}

func parseForeignKey(table, name string, v any) (*ForeignKey, error) {
	attrs, ok := asMap(v)
	if !ok {
		return nil, invalid(table, "$foreignKey of %q must be an object", name)
	}
	fk := &ForeignKey{}
	for _, item := range attrs {
		key := fmt.Sprint(item.Key)
		switch key {
		case "$columns":
			fk.Columns, ok = stringList(item.Value)
		case "$references":
			ref, isMap := asMap(item.Value)
			if !isMap {
				return nil, invalid(table, "$references of %q must be an object", name)
			}
			refTable, _ := lookup(ref, "$table")
			fk.ReferenceTable, ok = refTable.(string)
			if ok {
				refColumns, _ := lookup(ref, "$columns")
				fk.ReferenceColumns, ok = stringList(refColumns)
			}
		case "$onDelete":
			fk.OnDelete, ok = item.Value.(string)
		case "$onUpdate":
			fk.OnUpdate, ok = item.Value.(string)
		default:
			return nil, invalid(table, "unknown foreign key attribute %s on %q", key, name)
		}
		if !ok {
			return nil, invalid(table, "malformed %s on foreign key %q", key, name)
		}
	}
	if len(fk.Columns) == 0 || fk.ReferenceTable == "" || len(fk.ReferenceColumns) == 0 {
		return nil, invalid(table, "foreign key %q needs $columns and $references", name)
	}
	return fk, nil
}

func parseCaseConfig(table string, v any) (CaseConfig, error) {
	var config CaseConfig
	switch x := v.(type) {
	case string:
		c, err := ParseCase(x)
		if err != nil {
			return CaseConfig{}, invalid(table, "%s: %s", keyCase, err)
		}
		return CaseConfig{Table: c, Column: c}, nil
	default:
		m, ok := asMap(v)
		if !ok {
			return CaseConfig{}, invalid(table, "%s must be a string or an object", keyCase)
		}
		for _, item := range m {
			s, ok := item.Value.(string)
			if !ok {
				return CaseConfig{}, invalid(table, "%s.%v must be a string", keyCase, item.Key)
			}
			c, err := ParseCase(s)
			if err != nil {
				return CaseConfig{}, invalid(table, "%s.%v: %s", keyCase, item.Key, err)
			}
			switch fmt.Sprint(item.Key) {
			case "table":
				config.Table = c
			case "column":
				config.Column = c
			default:
				return CaseConfig{}, invalid(table, "unknown %s key %v", keyCase, item.Key)
			}
		}
	}
	return config, nil
}
