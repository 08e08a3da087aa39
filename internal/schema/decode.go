package schema

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// Diagnostics receives a note for every payload fragment that was dropped
// or replaced by a default. Implementations must not fail.
type Diagnostics interface {
	Warn(table, msg string)
}

// Warning is one diagnostic recorded by a Collector.
type Warning struct {
	Table   string
	Message string
}

// Collector is a Diagnostics that keeps every warning in order.
type Collector struct {
	Warnings []Warning
}

// Warn records a warning.
func (c *Collector) Warn(table, msg string) {
	c.Warnings = append(c.Warnings, Warning{Table: table, Message: msg})
}

type discard struct{}

func (discard) Warn(string, string) {}

// Discard drops all diagnostics.
var Discard Diagnostics = discard{}

// Decode reads a schema payload: a JSON object mapping table name to table
// object. Table order follows the payload's key order. Decode never fails;
// malformed parts degrade to empty values and are reported to diag, which
// may be nil.
func Decode(raw json.RawMessage, diag Diagnostics) *Schema {
	if diag == nil {
		diag = Discard
	}
	s := New()
	switch firstByte(raw) {
	case '{':
	case 0, 'n':
		return s
	default:
		diag.Warn("", "schema payload is not an object")
		return s
	}

	err := jsonparser.ObjectEach(raw, func(k, v []byte, dt jsonparser.ValueType, _ int) error {
		name, err := jsonparser.ParseString(k)
		if err != nil {
			return err
		}
		t := &Table{Name: name}
		if dt == jsonparser.Object {
			decodeTable(t, v, diag)
		} else {
			diag.Warn(name, fmt.Sprintf("table payload is %s, not an object", dt))
		}
		s.Add(t)
		return nil
	})
	if err != nil {
		diag.Warn("", fmt.Sprintf("schema payload is malformed: %v", err))
	}
	return s
}

func decodeTable(t *Table, data []byte, diag Diagnostics) {
	err := jsonparser.ObjectEach(data, func(k, v []byte, dt jsonparser.ValueType, _ int) error {
		key, err := jsonparser.ParseString(k)
		if err != nil {
			return err
		}
		switch key {
		case "columns":
			switch dt {
			case jsonparser.Object, jsonparser.Array:
				t.RawColumns = append(json.RawMessage(nil), v...)
			case jsonparser.Null:
			default:
				diag.Warn(t.Name, fmt.Sprintf("columns is %s, expected array or object", dt))
			}
			return nil
		case "foreign_keys":
			switch dt {
			case jsonparser.Array:
				t.ForeignKeys = decodeForeignKeys(t.Name, v, diag)
			case jsonparser.Null:
			default:
				diag.Warn(t.Name, fmt.Sprintf("foreign_keys is %s, expected array", dt))
			}
			return nil
		}
		value, err := rawValue(v, dt)
		if err != nil {
			return err
		}
		t.Extra = append(t.Extra, Field{Key: key, Value: value})
		return nil
	})
	if err != nil {
		diag.Warn(t.Name, fmt.Sprintf("table payload is malformed: %v", err))
	}
}

func decodeForeignKeys(table string, data []byte, diag Diagnostics) []ForeignKey {
	var fks []ForeignKey
	_, err := jsonparser.ArrayEach(data, func(v []byte, dt jsonparser.ValueType, _ int, err error) {
		if err != nil {
			return
		}
		if dt != jsonparser.Object {
			diag.Warn(table, fmt.Sprintf("foreign key entry is %s, not an object", dt))
			return
		}
		var fk ForeignKey
		fk.Column, _ = jsonparser.GetString(v, "column")
		fk.ReferredTable, _ = jsonparser.GetString(v, "referred_table")
		fk.ReferredColumn, _ = jsonparser.GetString(v, "referred_column")
		fks = append(fks, fk)
	})
	if err != nil {
		diag.Warn(table, fmt.Sprintf("foreign_keys is malformed: %v", err))
	}
	return fks
}
