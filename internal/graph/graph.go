package graph

import (
	"fmt"
	"math"
	"slices"

	"github.com/hurou927/schemalens/internal/schema"
)

// Grid spacing between table nodes. Sized so the column list of a typical
// table card does not overlap its neighbours.
const (
	cellWidth  = 300
	cellHeight = 350
)

// Position is a node's top-left corner in layout units.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Node represents a table.
type Node struct {
	ID       string          `json:"id"`
	Position Position        `json:"position"`
	Columns  []schema.Column `json:"columns"`
}

// Edge represents a foreign key relationship, directed from the
// referencing table to the referenced table.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Graph is the table relationship graph derived from a schema.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	nodeIndex map[string]int
	edgeIndex map[string]int

	// parents maps table → referenced tables, self references excluded
	parents map[string][]string
	// children maps table → referencing tables, self references excluded
	children map[string][]string
	// selfRefs maps table → its self-referencing edges
	selfRefs map[string][]Edge
}

func newGraph(tableCount int) *Graph {
	return &Graph{
		Nodes:     make([]Node, 0, tableCount),
		Edges:     []Edge{},
		nodeIndex: make(map[string]int, tableCount),
		edgeIndex: make(map[string]int),
		parents:   make(map[string][]string),
		children:  make(map[string][]string),
		selfRefs:  make(map[string][]Edge),
	}
}

// Build constructs the graph for s. It never fails: dangling references are
// dropped and malformed parts of the payload degrade to empty values.
func Build(s *schema.Schema) *Graph {
	return BuildWithDiagnostics(s, nil)
}

// BuildWithDiagnostics is Build, reporting every dropped or degraded
// relationship to diag. The resulting graph is identical to Build's.
//
// Tables are laid out on a square-ish grid in schema order. Edges come from
// the table-level foreign_keys list first, then from columns flagged
// is_foreign_key with a references value; an edge whose ID was already
// emitted is not emitted again.
func BuildWithDiagnostics(s *schema.Schema, diag schema.Diagnostics) *Graph {
	if diag == nil {
		diag = schema.Discard
	}

	tables := s.Tables()
	g := newGraph(len(tables))
	perRow := columnsPerRow(len(tables))

	for i, tbl := range tables {
		cols := tbl.ColumnsWithDiagnostics(diag)
		g.addNode(Node{
			ID:       tbl.Name,
			Position: gridPosition(i, perRow),
			Columns:  cols,
		})

		for _, fk := range tbl.ForeignKeys {
			switch {
			case fk.ReferredTable == "":
				diag.Warn(tbl.Name, fmt.Sprintf("foreign key on column %q has no referred table", fk.Column))
				continue
			case !s.Has(fk.ReferredTable):
				diag.Warn(tbl.Name, fmt.Sprintf("foreign key %s → %s dropped: table not in schema", fk.Column, fk.ReferredTable))
				continue
			case fk.Column == "":
				diag.Warn(tbl.Name, fmt.Sprintf("foreign key to %s has no column", fk.ReferredTable))
			}
			g.addEdge(tbl.Name, fk.Column, fk.ReferredTable)
		}

		for _, col := range cols {
			if !col.IsForeignKey {
				continue
			}
			ref, ok := col.Reference()
			if !ok {
				if _, present := col.Extra.Get("references"); present {
					diag.Warn(tbl.Name, fmt.Sprintf("column %s has an unreadable references value", col.Name))
				}
				continue
			}
			if !s.Has(ref.Table) {
				diag.Warn(tbl.Name, fmt.Sprintf("column %s references %s dropped: table not in schema", col.Name, ref.Table))
				continue
			}
			g.addEdge(tbl.Name, col.Name, ref.Table)
		}
	}

	return g
}

// EdgeID is the identity of the relationship source.column → target.
// Table-level and column-level declarations of the same relationship share it.
func EdgeID(source, column, target string) string {
	return source + "-" + column + "-" + target
}

// columnsPerRow returns ceil(sqrt(n)), at least 1.
func columnsPerRow(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}

func gridPosition(i, perRow int) Position {
	return Position{
		X: (i % perRow) * cellWidth,
		Y: (i / perRow) * cellHeight,
	}
}

func (g *Graph) addNode(n Node) {
	g.nodeIndex[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

// addEdge appends the edge unless one with the same ID exists.
func (g *Graph) addEdge(source, column, target string) {
	id := EdgeID(source, column, target)
	if _, dup := g.edgeIndex[id]; dup {
		return
	}
	e := Edge{ID: id, Source: source, Target: target, Label: column}
	g.edgeIndex[id] = len(g.Edges)
	g.Edges = append(g.Edges, e)

	if source == target {
		g.selfRefs[source] = append(g.selfRefs[source], e)
		return
	}
	if !slices.Contains(g.parents[source], target) {
		g.parents[source] = append(g.parents[source], target)
		g.children[target] = append(g.children[target], source)
	}
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.nodeIndex[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Edge returns the edge with the given ID.
func (g *Graph) Edge(id string) (Edge, bool) {
	i, ok := g.edgeIndex[id]
	if !ok {
		return Edge{}, false
	}
	return g.Edges[i], true
}

// Parents returns the tables referenced by table, self references excluded.
func (g *Graph) Parents(table string) []string {
	return g.parents[table]
}

// Children returns the tables referencing table, self references excluded.
func (g *Graph) Children(table string) []string {
	return g.children[table]
}

// Roots returns tables that reference no other table, in node order.
func (g *Graph) Roots() []string {
	var roots []string
	for _, n := range g.Nodes {
		if len(g.parents[n.ID]) == 0 {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// SelfReferences returns the self-referencing edges of table.
func (g *Graph) SelfReferences(table string) []Edge {
	return g.selfRefs[table]
}
