package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/buger/jsonparser"
)

// NormalizeColumns converts a column representation into canonical columns.
//
// An array is taken as already canonical: each object element passes
// through with its members intact and in order, so it re-serializes as it
// came. An object is keyed by column name; for each entry the name falls
// back to the key, the declared type is original_type, then type, then "",
// and the key flags default to false. Members not consumed are kept in
// Extra. Column names are unique: later columns reusing a name are dropped.
// Anything else, including invalid JSON, yields an empty slice.
func NormalizeColumns(raw json.RawMessage) []Column {
	return normalizeColumns("", raw, Discard)
}

func normalizeColumns(table string, raw json.RawMessage, diag Diagnostics) []Column {
	cols := []Column{}
	seen := make(map[string]bool)
	add := func(col Column) {
		if seen[col.Name] {
			diag.Warn(table, fmt.Sprintf("duplicate column %s dropped", col.Name))
			return
		}
		seen[col.Name] = true
		cols = append(cols, col)
	}

	switch firstByte(raw) {
	case '[':
		_, err := jsonparser.ArrayEach(raw, func(v []byte, dt jsonparser.ValueType, _ int, err error) {
			if err != nil || dt != jsonparser.Object {
				return
			}
			col, err := readColumn(v, false)
			if err != nil || col.Name == "" {
				return
			}
			add(col)
		})
		if err != nil {
			return []Column{}
		}
	case '{':
		err := jsonparser.ObjectEach(raw, func(k, v []byte, dt jsonparser.ValueType, _ int) error {
			key, err := jsonparser.ParseString(k)
			if err != nil {
				return err
			}
			var col Column
			if dt == jsonparser.Object {
				if col, err = readColumn(v, true); err != nil {
					return err
				}
			}
			if col.Name == "" {
				col.Name = key
			}
			if col.Name != "" {
				add(col)
			}
			return nil
		})
		if err != nil {
			return []Column{}
		}
	}
	return cols
}

// canonicalKeys are the members a Column carries as fields, in the order
// they are written when no source order is known.
var canonicalKeys = []string{"name", "type", "is_primary_key", "is_foreign_key"}

func isCanonical(key string) bool {
	return slices.Contains(canonicalKeys, key)
}

// readColumn reads one column record. When fromMap is set the record came
// from the keyed shape: original_type takes precedence over type and
// canonical members of the wrong JSON type are discarded. Otherwise the
// record passes through: such members stay in Extra and the source member
// order is kept.
func readColumn(data []byte, fromMap bool) (Column, error) {
	var (
		col          Column
		typ          string
		originalType string
		hasOriginal  bool
		layout       []string
	)
	err := jsonparser.ObjectEach(data, func(k, v []byte, dt jsonparser.ValueType, _ int) error {
		key, err := jsonparser.ParseString(k)
		if err != nil {
			return err
		}
		layout = append(layout, key)
		switch key {
		case "name":
			if dt == jsonparser.String {
				col.Name, _ = jsonparser.ParseString(v)
				return nil
			}
		case "type":
			if dt == jsonparser.String {
				typ, _ = jsonparser.ParseString(v)
				return nil
			}
		case "is_primary_key":
			col.IsPrimaryKey = truthy(v, dt)
			if dt == jsonparser.Boolean {
				return nil
			}
		case "is_foreign_key":
			col.IsForeignKey = truthy(v, dt)
			if dt == jsonparser.Boolean {
				return nil
			}
		case "original_type":
			if fromMap && dt == jsonparser.String {
				originalType, _ = jsonparser.ParseString(v)
				hasOriginal = true
			}
		}
		if fromMap && isCanonical(key) {
			return nil
		}
		value, err := rawValue(v, dt)
		if err != nil {
			return err
		}
		col.Extra = append(col.Extra, Field{Key: key, Value: value})
		return nil
	})
	if err != nil {
		return Column{}, err
	}
	col.DeclaredType = typ
	if hasOriginal {
		col.DeclaredType = originalType
	}
	if !fromMap && !slices.Equal(layout, defaultLayout(col.Extra)) {
		col.layout = layout
	}
	return col, nil
}

// defaultLayout is the member order of a column without a source order.
func defaultLayout(extra Fields) []string {
	return append(slices.Clip(canonicalKeys), extra.Keys()...)
}

// truthy reports whether a flag value counts as set: true, a non-zero
// number, a non-empty string, or any object or array.
func truthy(v []byte, dt jsonparser.ValueType) bool {
	switch dt {
	case jsonparser.Boolean:
		b, _ := jsonparser.ParseBoolean(v)
		return b
	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(v)
		return err == nil && f != 0
	case jsonparser.String:
		return len(v) > 0
	case jsonparser.Object, jsonparser.Array:
		return true
	}
	return false
}

// rawValue restores the compact JSON text of a value handed out by
// jsonparser, which strips the quotes from strings.
func rawValue(v []byte, dt jsonparser.ValueType) (json.RawMessage, error) {
	if dt == jsonparser.String {
		s, err := jsonparser.ParseString(v)
		if err != nil {
			return nil, err
		}
		return json.Marshal(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func firstByte(raw []byte) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
