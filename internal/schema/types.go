package schema

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Field is a single raw JSON member kept verbatim from a payload.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Fields is an ordered list of raw members, in payload order.
type Fields []Field

// Get returns the raw value stored under key.
func (f Fields) Get(key string) (json.RawMessage, bool) {
	for _, fld := range f {
		if fld.Key == key {
			return fld.Value, true
		}
	}
	return nil, false
}

// Keys returns the member names in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, fld := range f {
		keys[i] = fld.Key
	}
	return keys
}

// Column is the canonical column record.
type Column struct {
	Name         string
	DeclaredType string // raw type label from the source, "" when unknown
	IsPrimaryKey bool
	IsForeignKey bool

	// Extra holds every other member of the source record (references,
	// original_type, description, stats, ...) in source order, plus any
	// canonical member of a passed-through record whose value had the
	// wrong JSON type.
	Extra Fields

	// layout is the source member order of a passed-through record, nil
	// when it matches the default order.
	layout []string
}

// Reference is the target of a column-level foreign key.
type Reference struct {
	Table  string
	Column string
}

// Reference parses the column's "references" member, which is either
// "table.column" or {"table": ..., "column": ...}.
func (c Column) Reference() (Reference, bool) {
	raw, ok := c.Extra.Get("references")
	if !ok {
		return Reference{}, false
	}
	return parseReference(raw)
}

func parseReference(raw json.RawMessage) (Reference, bool) {
	var ref Reference
	switch firstByte(raw) {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil || s == "" {
			return Reference{}, false
		}
		ref.Table, ref.Column, _ = strings.Cut(s, ".")
	case '{':
		ref.Table, _ = jsonparser.GetString(raw, "table")
		ref.Column, _ = jsonparser.GetString(raw, "column")
	default:
		return Reference{}, false
	}
	if ref.Table == "" {
		return Reference{}, false
	}
	return ref, true
}

// MarshalJSON writes the members in source order when the column was passed
// through from a record, otherwise the canonical members first and then
// Extra in order.
func (c Column) MarshalJSON() ([]byte, error) {
	layout := c.layout
	if layout == nil {
		layout = defaultLayout(c.Extra)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		return writeMember(&buf, key, value)
	}

	j := 0
	for _, key := range layout {
		var err error
		if j < len(c.Extra) && c.Extra[j].Key == key {
			err = write(key, c.Extra[j].Value)
			j++
		} else if isCanonical(key) {
			err = write(key, c.canonicalValue(key))
		}
		if err != nil {
			return nil, err
		}
	}
	for ; j < len(c.Extra); j++ {
		if err := write(c.Extra[j].Key, c.Extra[j].Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c Column) canonicalValue(key string) any {
	switch key {
	case "name":
		return c.Name
	case "type":
		return c.DeclaredType
	case "is_primary_key":
		return c.IsPrimaryKey
	default:
		return c.IsForeignKey
	}
}

// UnmarshalJSON reads a canonical column record.
func (c *Column) UnmarshalJSON(data []byte) error {
	col, err := readColumn(data, false)
	if err != nil {
		return err
	}
	*c = col
	return nil
}

func writeMember(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// ForeignKey is a table-level foreign key declaration.
type ForeignKey struct {
	Column         string `json:"column"`
	ReferredTable  string `json:"referred_table"`
	ReferredColumn string `json:"referred_column"`
}

// Table is one entry of a schema payload.
type Table struct {
	Name string

	// RawColumns is the column representation as delivered: an array of
	// column records or an object keyed by column name.
	RawColumns  json.RawMessage
	ForeignKeys []ForeignKey

	// Extra holds the remaining table members (row_count, description, ...).
	Extra Fields
}

// Columns returns the normalized columns of the table.
func (t *Table) Columns() []Column {
	return t.ColumnsWithDiagnostics(Discard)
}

// ColumnsWithDiagnostics is Columns, reporting dropped duplicate columns to
// diag.
func (t *Table) ColumnsWithDiagnostics(diag Diagnostics) []Column {
	if t == nil {
		return []Column{}
	}
	if diag == nil {
		diag = Discard
	}
	return normalizeColumns(t.Name, t.RawColumns, diag)
}

// Schema maps table names to tables, keeping insertion order.
type Schema struct {
	tables *orderedmap.OrderedMap[string, *Table]
}

// New returns a schema holding the given tables in order.
func New(tables ...*Table) *Schema {
	s := &Schema{tables: orderedmap.New[string, *Table]()}
	for _, t := range tables {
		s.Add(t)
	}
	return s
}

// Add inserts t. A table with the same name is replaced in place.
func (s *Schema) Add(t *Table) {
	if t == nil {
		return
	}
	if s.tables == nil {
		s.tables = orderedmap.New[string, *Table]()
	}
	s.tables.Set(t.Name, t)
}

// Lookup returns the table with the given name.
func (s *Schema) Lookup(name string) (*Table, bool) {
	if s == nil || s.tables == nil {
		return nil, false
	}
	return s.tables.Get(name)
}

// Has reports whether a table with the given name exists.
func (s *Schema) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Len returns the number of tables.
func (s *Schema) Len() int {
	if s == nil || s.tables == nil {
		return 0
	}
	return s.tables.Len()
}

// Tables returns the tables in insertion order.
func (s *Schema) Tables() []*Table {
	out := make([]*Table, 0, s.Len())
	if s.Len() == 0 {
		return out
	}
	for pair := s.tables.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Names returns the table names in insertion order.
func (s *Schema) Names() []string {
	tables := s.Tables()
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}
