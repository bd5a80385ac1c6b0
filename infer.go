package auditdef

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/sqldef/auditdef/schema"
	"github.com/sqldef/auditdef/util"
	"gopkg.in/yaml.v2"
)

// varcharMaxSize is the longest sample string still typed as VARCHAR.
const varcharMaxSize = 127

// orderedObject marshals to a JSON object with its keys in slice order.
type orderedObject yaml.MapSlice

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fmt.Sprint(item.Key))
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(item.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type inferredTable struct {
	Define orderedObject `json:"$define"`
	Table  string        `json:"$table"`
}

// InferTable drafts a table definition from a sample row and writes it to
// tables/_<name>.json under root. Columns follow the order of the sample.
// The leading underscore keeps the loader from picking the draft up until it
// is reviewed and renamed.
func InferTable(root, name string, sample yaml.MapSlice) (string, error) {
	def := inferredTable{Define: orderedObject{}, Table: name}
	for _, item := range util.FlattenObject(sample) {
		column := fmt.Sprint(item.Key)
		attrs, ok := inferColumn(item.Value)
		if !ok {
			slog.Warn("Cannot infer column type", "table", name, "column", column, "value", item.Value)
			continue
		}
		def.Define = append(def.Define, yaml.MapItem{
			Key:   column,
			Value: orderedObject{{Key: "$column", Value: attrs}},
		})
	}

	buf, err := json.MarshalIndent(def, "", "    ")
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, TablesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "_"+name+".json")
	if err := writeArtifact(path, string(buf)+"\n"); err != nil {
		return "", err
	}
	return path, nil
}

func columnType(typ string, attrs ...yaml.MapItem) orderedObject {
	return append(orderedObject{{Key: "$type", Value: typ}}, attrs...)
}

func inferColumn(value any) (orderedObject, bool) {
	switch v := value.(type) {
	case string:
		if _, ok := util.GetDate(v); ok {
			return columnType("DATETIME"), true
		}
		if len(v) <= varcharMaxSize {
			return columnType("VARCHAR", yaml.MapItem{Key: "$size", Value: varcharMaxSize}), true
		}
		return columnType("TEXT"), true
	case bool:
		return columnType("TINYINT", yaml.MapItem{Key: "$size", Value: 1}, yaml.MapItem{Key: "$default", Value: "0"}), true
	case int, int32, int64, uint64:
		return columnType("INTEGER"), true
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return columnType("INTEGER"), true
		}
		return columnType("DECIMAL(25,5)"), true
	case float64:
		if v == math.Trunc(v) {
			return columnType("INTEGER"), true
		}
		return columnType("DECIMAL(25,5)"), true
	default:
		return nil, false
	}
}

// ReadSample reads the single JSON or YAML object used as an InferTable
// sample, keeping its key order.
func ReadSample(path string) (yaml.MapSlice, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	docs, err := schema.DecodeDocuments(path, buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(docs) != 1 {
		return nil, fmt.Errorf("%s: expected one sample object, found %d", path, len(docs))
	}
	return docs[0], nil
}
