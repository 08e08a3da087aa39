// Package introspect reads table, column and foreign-key metadata from a
// live database and emits it in the pipeline's schema_raw payload shape.
package introspect

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Column is one catalog column.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
}

// ForeignKey is one column pair of a foreign-key constraint. Composite
// constraints yield one ForeignKey per column pair.
type ForeignKey struct {
	Column         string `json:"column"`
	ReferredTable  string `json:"referred_table"`
	ReferredColumn string `json:"referred_column"`
}

// Table is one catalog table.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
}

// Catalog holds introspected tables in catalog order.
type Catalog struct {
	tables *orderedmap.OrderedMap[string, *Table]
}

func newCatalog() *Catalog {
	return &Catalog{tables: orderedmap.New[string, *Table]()}
}

// table returns the named table, adding an empty one at the end if absent.
func (c *Catalog) table(name string) *Table {
	if t, ok := c.tables.Get(name); ok {
		return t
	}
	t := &Table{Name: name}
	c.tables.Set(name, t)
	return t
}

// lookup returns the named table without adding it.
func (c *Catalog) lookup(name string) (*Table, bool) {
	return c.tables.Get(name)
}

// Tables returns the tables in catalog order.
func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, c.tables.Len())
	for p := c.tables.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Value)
	}
	return out
}

// Len returns the number of tables.
func (c *Catalog) Len() int {
	return c.tables.Len()
}

// Exclude removes the named tables and every foreign key pointing at them.
func (c *Catalog) Exclude(names map[string]bool) {
	if len(names) == 0 {
		return
	}
	for name := range names {
		c.tables.Delete(name)
	}
	for p := c.tables.Oldest(); p != nil; p = p.Next() {
		kept := p.Value.ForeignKeys[:0]
		for _, fk := range p.Value.ForeignKeys {
			if !names[fk.ReferredTable] {
				kept = append(kept, fk)
			}
		}
		p.Value.ForeignKeys = kept
	}
}

type columnPayload struct {
	Name         string   `json:"name"`
	OriginalType string   `json:"original_type"`
	Nullable     bool     `json:"nullable"`
	IsPrimaryKey bool     `json:"is_primary_key"`
	IsForeignKey bool     `json:"is_foreign_key"`
	Tags         []string `json:"tags"`
}

type tablePayload struct {
	TableName   string                                         `json:"table_name"`
	Columns     *orderedmap.OrderedMap[string, columnPayload] `json:"columns"`
	ForeignKeys []ForeignKey                                   `json:"foreign_keys"`
}

// MarshalJSON writes the catalog as a schema_raw payload:
// {table: {table_name, columns: {name: {...}}, foreign_keys: [...]}}.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	out := orderedmap.New[string, tablePayload](orderedmap.WithCapacity[string, tablePayload](c.tables.Len()))
	for _, t := range c.Tables() {
		fkCols := make(map[string]bool, len(t.ForeignKeys))
		for _, fk := range t.ForeignKeys {
			fkCols[fk.Column] = true
		}

		cols := orderedmap.New[string, columnPayload]()
		for _, col := range t.Columns {
			tags := []string{}
			if col.PrimaryKey {
				tags = append(tags, "PK")
			}
			if fkCols[col.Name] {
				tags = append(tags, "FK")
			}
			cols.Set(col.Name, columnPayload{
				Name:         col.Name,
				OriginalType: col.Type,
				Nullable:     col.Nullable,
				IsPrimaryKey: col.PrimaryKey,
				IsForeignKey: fkCols[col.Name],
				Tags:         tags,
			})
		}

		fks := t.ForeignKeys
		if fks == nil {
			fks = []ForeignKey{}
		}
		out.Set(t.Name, tablePayload{TableName: t.Name, Columns: cols, ForeignKeys: fks})
	}
	return json.Marshal(out)
}

// Payload returns the catalog as raw schema_raw JSON.
func (c *Catalog) Payload() (json.RawMessage, error) {
	return c.MarshalJSON()
}
