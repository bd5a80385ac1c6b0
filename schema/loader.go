package schema

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v2"
)

var definitionExtensions = []string{".json", ".yaml", ".yml"}

// LoadTables reads every table definition under dir.
func LoadTables(ctx context.Context, dir string) ([]Source, error) {
	return loadSources(ctx, dir, keyTable, keyDefine)
}

// LoadViews reads every view definition under dir.
func LoadViews(ctx context.Context, dir string) ([]Source, error) {
	return loadSources(ctx, dir, keyView, keySelect)
}

// definitionFiles lists the definition files of dir in name order. Files
// starting with an underscore are drafts and skipped.
func definitionFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext == ".js" {
			slog.Warn("Skipping script definition file, only JSON and YAML are supported", "file", filepath.Join(dir, name))
			continue
		}
		if slices.Contains(definitionExtensions, ext) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

func loadSources(ctx context.Context, dir, nameKey, mainKey string) ([]Source, error) {
	files, err := definitionFiles(dir)
	if err != nil {
		return nil, err
	}

	docs := make([][]yaml.MapSlice, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			docs[i], err = DecodeDocuments(file, buf)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var sources []Source
	seen := map[string]string{}
	for i, file := range files {
		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		for _, doc := range docs[i] {
			src, err := newSource(file, base, doc, nameKey, mainKey)
			if err != nil {
				return nil, err
			}
			if other, ok := seen[src.Name]; ok {
				return nil, fmt.Errorf("%w: duplicate name %q in %s and %s", ErrInvalidDefinition, src.Name, other, file)
			}
			seen[src.Name] = file
			sources = append(sources, src)
		}
	}

	slices.SortStableFunc(sources, func(a, b Source) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return sources, nil
}

// DecodeDocuments decodes the contents of file, choosing JSON or YAML by its
// extension. Object key order is kept.
func DecodeDocuments(file string, buf []byte) ([]yaml.MapSlice, error) {
	if strings.EqualFold(filepath.Ext(file), ".json") {
		return decodeJSONDocuments(buf)
	}
	return decodeDocuments(buf)
}

// decodeDocuments decodes a file holding one object or an array of objects,
// keeping key order.
func decodeDocuments(buf []byte) ([]yaml.MapSlice, error) {
	var probe any
	if err := yaml.Unmarshal(buf, &probe); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, err)
	}

	switch x := probe.(type) {
	case map[any]any:
		var single yaml.MapSlice
		if err := yaml.Unmarshal(buf, &single); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, err)
		}
		return []yaml.MapSlice{single}, nil
	case []any:
		for i, item := range x {
			if _, ok := item.(map[any]any); !ok {
				return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidDefinition, i)
			}
		}
		var list []yaml.MapSlice
		if err := yaml.Unmarshal(buf, &list); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, err)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%w: expected an object or an array of objects, got %T", ErrInvalidDefinition, probe)
	}
}

// newSource names a document and wraps it when it only holds the main body,
// as in a file containing nothing but column definitions.
func newSource(file, base string, doc yaml.MapSlice, nameKey, mainKey string) (Source, error) {
	if _, ok := lookup(doc, mainKey); !ok {
		doc = yaml.MapSlice{
			{Key: nameKey, Value: base},
			{Key: mainKey, Value: doc},
		}
	}

	name := base
	if raw, ok := lookup(doc, nameKey); ok {
		if s, isString := raw.(string); isString {
			name = s
		}
	}

	priority, err := sourcePriority(doc, mainKey)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", file, invalid(name, "%s", err))
	}
	return Source{File: file, Name: name, Priority: priority, Body: doc}, nil
}

// decodeJSONDocuments is decodeDocuments for JSON input. The YAML decoder
// accepts most JSON but rejects tab indentation, so JSON is walked token by
// token instead.
func decodeJSONDocuments(buf []byte) ([]yaml.MapSlice, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	v, err := jsonValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrInvalidDefinition)
	}

	switch x := v.(type) {
	case yaml.MapSlice:
		return []yaml.MapSlice{x}, nil
	case []any:
		list := make([]yaml.MapSlice, len(x))
		for i, item := range x {
			m, ok := item.(yaml.MapSlice)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is not an object", ErrInvalidDefinition, i)
			}
			list[i] = m
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%w: expected an object or an array of objects, got %T", ErrInvalidDefinition, v)
	}
}

func jsonValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var m yaml.MapSlice
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				value, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				m = append(m, yaml.MapItem{Key: keyTok, Value: value})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			if m == nil {
				m = yaml.MapSlice{}
			}
			return m, nil
		case '[':
			list := []any{}
			for dec.More() {
				value, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		return t.Float64()
	default:
		return t, nil
	}
}
