package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrMixedCase = errors.New("mixed case conventions")

type CaseType string

const (
	CaseLower  CaseType = "lower"
	CaseUpper  CaseType = "upper"
	CaseCamel  CaseType = "camel"
	CasePascal CaseType = "pascal"
)

// Case is an identifier convention: how words are cased and what joins them.
type Case struct {
	Type CaseType `yaml:"type"`
	Join string   `yaml:"join"`
}

// CaseConfig holds the conventions used for generated table and column names.
type CaseConfig struct {
	Table  Case `yaml:"table"`
	Column Case `yaml:"column"`
}

// Part is one element of a generated identifier. It is either a word or a
// separator marker.
type Part struct {
	word string
	sep  bool
}

// Sep marks that the following word is prefixed with the join separator, so
// generated suffixes stand out from the words of user supplied names.
var Sep = Part{sep: true}

func Word(s string) Part {
	return Part{word: s}
}

func (c Case) String() string {
	return fmt.Sprintf("%s:%q", c.Type, c.Join)
}

func (c Case) separator() string {
	if c.Join == "" {
		return "_"
	}
	return c.Join
}

// Render builds a single identifier from parts.
func (c Case) Render(parts ...Part) string {
	words := make([]string, 0, len(parts))
	prefix := false
	for i, part := range parts {
		if part.sep {
			prefix = true
			continue
		}
		word := part.word
		if prefix {
			word = c.separator() + word
			prefix = false
		}
		words = append(words, c.renderWord(word, i))
	}
	return strings.Join(words, c.Join)
}

// Name renders plain words without separator markers.
func (c Case) Name(words ...string) string {
	parts := make([]Part, len(words))
	for i, w := range words {
		parts[i] = Word(w)
	}
	return c.Render(parts...)
}

// Suffix renders base followed by each suffix, every suffix marked with a
// separator.
func (c Case) Suffix(base string, suffixes ...string) string {
	parts := make([]Part, 0, 1+2*len(suffixes))
	parts = append(parts, Word(base))
	for _, s := range suffixes {
		parts = append(parts, Sep, Word(s))
	}
	return c.Render(parts...)
}

// renderWord cases one word. index is the position of the word among all
// parts, separators included.
func (c Case) renderWord(word string, index int) string {
	switch c.Type {
	case CaseUpper:
		return strings.ToUpper(word)
	case CasePascal:
		if word == "id" || word == "scd" {
			return strings.ToUpper(word)
		}
		return c.capitalize(word)
	case CaseCamel:
		if index == 0 {
			return lowerFirst(word)
		}
		return c.capitalize(word)
	default:
		return word
	}
}

func (c Case) capitalize(word string) string {
	offset := 0
	if sep := c.separator(); strings.HasPrefix(word, sep) {
		offset = len(sep)
	}
	r, size := utf8.DecodeRuneInString(word[offset:])
	if r == utf8.RuneError {
		return word
	}
	return word[:offset] + string(unicode.ToUpper(r)) + word[offset+size:]
}

func lowerFirst(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	return string(unicode.ToLower(r)) + word[size:]
}

// InferCase derives a convention from example identifiers. All examples must
// agree on the case type, except that upper and pascal resolve to pascal.
// Examples containing a separator must agree on it.
func InferCase(examples ...string) (Case, error) {
	if len(examples) == 0 {
		return Case{Type: CaseLower, Join: "_"}, nil
	}

	var types []CaseType
	var joins []string
	for _, example := range examples {
		typ, join := inferOne(example)
		if !slices.Contains(types, typ) {
			types = append(types, typ)
		}
		if join != "" && !slices.Contains(joins, join) {
			joins = append(joins, join)
		}
	}

	if slices.Contains(types, CaseUpper) && slices.Contains(types, CasePascal) {
		types = slices.DeleteFunc(types, func(t CaseType) bool { return t == CaseUpper })
	}
	if len(types) > 1 {
		return Case{}, fmt.Errorf("%w: types %v in %v", ErrMixedCase, types, examples)
	}
	if len(joins) > 1 {
		return Case{}, fmt.Errorf("%w: joins %q in %v", ErrMixedCase, joins, examples)
	}

	c := Case{Type: types[0]}
	if len(joins) == 1 {
		c.Join = joins[0]
	} else if c.Type == CaseLower || c.Type == CaseUpper {
		c.Join = "_"
	}
	return c, nil
}

func inferOne(example string) (CaseType, string) {
	join := ""
	for _, r := range example {
		if !isAlnum(r) {
			join = string(r)
			break
		}
	}

	switch {
	case strings.ToLower(example) == example:
		return CaseLower, join
	case strings.ToUpper(example) == example:
		return CaseUpper, join
	default:
		first, _ := utf8.DecodeRuneInString(example)
		if unicode.IsUpper(first) {
			return CasePascal, join
		}
		return CaseCamel, join
	}
}

// ParseCase reads an explicit convention written as "type" or "type:join".
func ParseCase(s string) (Case, error) {
	typ, join, hasJoin := strings.Cut(s, ":")
	c := Case{Type: CaseType(strings.ToLower(strings.TrimSpace(typ)))}
	switch c.Type {
	case CaseLower, CaseUpper:
		c.Join = "_"
	case CaseCamel, CasePascal:
	default:
		return Case{}, fmt.Errorf("unknown case type %q", typ)
	}
	if hasJoin {
		c.Join = join
	}
	return c, nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
