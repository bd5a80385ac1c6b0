package util

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v2"
)

var dateFormats = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})`),
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})`),
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
}

// GetDate finds a date in s and returns it as "YYYY-MM-DD HH:MM:SS". Missing
// time parts are zero.
func GetDate(s string) (string, bool) {
	for _, format := range dateFormats {
		m := format.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		parts := []string{"00", "00", "00"}
		copy(parts, m[4:])
		return fmt.Sprintf("%s-%s-%s %s:%s:%s", m[1], m[2], m[3], parts[0], parts[1], parts[2]), true
	}
	return "", false
}

// FlattenObject joins nested object keys with underscores so that
// {"a": {"b": 1}} becomes {"a_b": 1}, keeping the key order of in. Arrays are
// dropped and date strings are normalized with GetDate.
func FlattenObject(in yaml.MapSlice) yaml.MapSlice {
	var out yaml.MapSlice
	flattenInto(&out, "", in)
	return out
}

func flattenInto(out *yaml.MapSlice, prefix string, in yaml.MapSlice) {
	for _, item := range in {
		key := fmt.Sprint(item.Key)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch v := item.Value.(type) {
		case []any:
		case yaml.MapSlice:
			flattenInto(out, key, v)
		case map[string]any:
			// Plain maps carry no order of their own.
			var nested yaml.MapSlice
			for k, value := range CanonicalMapIter(v) {
				nested = append(nested, yaml.MapItem{Key: k, Value: value})
			}
			flattenInto(out, key, nested)
		case string:
			if date, ok := GetDate(v); ok {
				*out = append(*out, yaml.MapItem{Key: key, Value: date})
			} else {
				*out = append(*out, yaml.MapItem{Key: key, Value: v})
			}
		default:
			*out = append(*out, yaml.MapItem{Key: key, Value: v})
		}
	}
}
