package schema

import "strings"

// View is a compiled view definition.
type View struct {
	Name     string
	Priority int
	Select   string
}

func NewView(src Source) (*View, error) {
	name := src.Name
	if raw, ok := lookup(src.Body, keyView); ok {
		s, isString := raw.(string)
		if !isString {
			return nil, invalid(src.Name, "%s must be a string, got %T", keyView, raw)
		}
		name = s
	}
	raw, ok := lookup(src.Body, keySelect)
	if !ok {
		return nil, invalid(name, "missing %s", keySelect)
	}
	var query string
	switch x := raw.(type) {
	case string:
		query = x
	case []any:
		lines, isList := stringList(x)
		if !isList {
			return nil, invalid(name, "%s must be a string or a list of strings", keySelect)
		}
		query = strings.Join(lines, "\n")
	default:
		return nil, invalid(name, "%s must be a string or a list of strings", keySelect)
	}
	if strings.TrimSpace(query) == "" {
		return nil, invalid(name, "empty %s", keySelect)
	}
	return &View{Name: name, Priority: src.Priority, Select: query}, nil
}

func (v *View) SQL(b *Builder) string {
	return b.CreateView(v.Name, v.Select)
}
