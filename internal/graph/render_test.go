package graph

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponents(t *testing.T) {
	g := Build(decode(t, `{
		"audit_log": {},
		"orders": {"foreign_keys": [{"column": "user_id", "referred_table": "users"}]},
		"users": {},
		"tags": {"foreign_keys": [{"column": "parent_id", "referred_table": "tags"}]}
	}`))

	comps := g.Components()
	require.Len(t, comps, 3)
	assert.Equal(t, []string{"audit_log"}, comps[0].Tables)
	assert.Equal(t, []string{"orders", "users"}, comps[1].Tables)
	assert.Equal(t, []string{"tags"}, comps[2].Tables)
}

func TestTopoSortReferencedFirst(t *testing.T) {
	g := Build(decode(t, `{
		"order_items": {"foreign_keys": [
			{"column": "order_id", "referred_table": "orders"},
			{"column": "product_id", "referred_table": "products"}
		]},
		"orders": {"foreign_keys": [{"column": "user_id", "referred_table": "users"}]},
		"products": {},
		"users": {"foreign_keys": [{"column": "manager_id", "referred_table": "users"}]}
	}`))

	result := g.TopoSortAll()
	assert.False(t, result.HasCycle)
	assert.Equal(t, []string{"products", "users", "orders", "order_items"}, result.Order)
}

func TestTopoSortReportsCycle(t *testing.T) {
	g := Build(decode(t, `{
		"a": {"foreign_keys": [{"column": "b_id", "referred_table": "b"}]},
		"b": {"foreign_keys": [{"column": "a_id", "referred_table": "a"}]},
		"c": {"foreign_keys": [{"column": "a_id", "referred_table": "a"}]},
		"d": {}
	}`))

	result := g.TopoSortAll()
	assert.True(t, result.HasCycle)
	assert.Equal(t, []string{"d"}, result.Order)
	assert.Equal(t, []string{"a", "b", "c"}, result.CycleTables)
}

func TestWriteMermaid(t *testing.T) {
	g := Build(decode(t, `{
		"users": {"columns": {"id": {"is_primary_key": true}}},
		"orders": {"foreign_keys": [{"column": "user_id", "referred_table": "users"}]},
		"audit log": {}
	}`))

	var buf bytes.Buffer
	require.NoError(t, WriteMermaid(&buf, g))

	want := `graph TD
    subgraph component_1
        audit_log["audit log"]
    end

    subgraph component_2
        orders -->|user_id| users
    end
`
	assert.Equal(t, want, buf.String())
}

func TestWriteMermaidLabelsConnectedNodes(t *testing.T) {
	g := Build(decode(t, `{
		"orders": {"columns": {"id": {"is_primary_key": true}}},
		"order-items": {"foreign_keys": [{"column": "order_id", "referred_table": "orders"}]}
	}`))

	var buf bytes.Buffer
	require.NoError(t, WriteMermaid(&buf, g))

	want := `graph TD
    subgraph component_1
        order_items["order-items"]
        order_items -->|order_id| orders
    end
`
	assert.Equal(t, want, buf.String())
}

func TestWriteMermaidDistinctIDs(t *testing.T) {
	g := Build(decode(t, `{
		"a-b": {"foreign_keys": [{"column": "ref", "referred_table": "a_b"}]},
		"a_b": {},
		"a b": {}
	}`))

	var buf bytes.Buffer
	require.NoError(t, WriteMermaid(&buf, g))

	want := `graph TD
    subgraph component_1
        a_b_3["a b"]
    end

    subgraph component_2
        a_b_2["a-b"]
        a_b_2 -->|ref| a_b
    end
`
	assert.Equal(t, want, buf.String())
}

func TestWriteText(t *testing.T) {
	g := Build(decode(t, `{
		"users": {"columns": {"id": {"is_primary_key": true}, "email": {}}},
		"orders": {
			"columns": {"id": {"is_primary_key": true}, "user_id": {"is_foreign_key": true, "references": "users.id"}},
			"foreign_keys": [{"column": "user_id", "referred_table": "users"}]
		},
		"categories": {"columns": [{"name": "parent_id", "is_foreign_key": true, "references": "categories.id"}]}
	}`))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, g))

	want := `Tables: 3
Foreign Keys: 2
Connected Components: 2

WARNING: Tables without primary key: [categories]

Self-referencing tables: [categories]

Root tables (no FK parents): [categories users]

=== Component 1 (1 tables) ===
  Topological order:
    1. categories (1 cols, no PK, 0 FKs)

=== Component 2 (2 tables) ===
  Topological order:
    1. users (2 cols, PK: id, 0 FKs)
    2. orders (2 cols, PK: id, 1 FKs)

`
	assert.Equal(t, want, buf.String())
}

func TestWriteJSONShape(t *testing.T) {
	g := Build(decode(t, `{
		"users": {"columns": {"id": {"original_type": "INTEGER", "is_primary_key": true}}},
		"orders": {"foreign_keys": [{"column": "user_id", "referred_table": "users"}]}
	}`))

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, g))

	want := `{
		"nodes": [
			{"id": "users", "position": {"x": 0, "y": 0}, "columns": [
				{"name": "id", "type": "INTEGER", "is_primary_key": true, "is_foreign_key": false, "original_type": "INTEGER"}
			]},
			{"id": "orders", "position": {"x": 300, "y": 0}, "columns": []}
		],
		"edges": [
			{"id": "orders-user_id-users", "source": "orders", "target": "users", "label": "user_id"}
		]
	}`
	assert.JSONEq(t, want, buf.String())

	var decoded struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Nodes, 2)
}
