package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteJSON writes the nodes and edges as indented JSON, the shape a
// rendering layer consumes directly.
func WriteJSON(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

// WriteMermaid writes the graph in Mermaid format to w.
// Each connected component is a subgraph. Tables whose names are not valid
// Mermaid IDs are declared with their name as label before any edge uses them.
func WriteMermaid(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	components := sortedComponents(g)
	ids := mermaidIDs(g)

	fmt.Fprintln(bw, "graph TD")

	for i, comp := range components {
		fmt.Fprintf(bw, "    subgraph component_%d\n", i+1)

		tableSet := make(map[string]bool, len(comp.Tables))
		for _, t := range comp.Tables {
			tableSet[t] = true
			if ids[t] != t {
				fmt.Fprintf(bw, "        %s[%q]\n", ids[t], t)
			}
		}

		connected := make(map[string]bool)
		for _, e := range g.Edges {
			if !tableSet[e.Source] {
				continue
			}
			connected[e.Source] = true
			connected[e.Target] = true
			fmt.Fprintf(bw, "        %s -->|%s| %s\n",
				ids[e.Source], mermaidLabel(e.Label), ids[e.Target])
		}

		// Standalone nodes (no edges in this component)
		for _, t := range comp.Tables {
			if !connected[t] && ids[t] == t {
				fmt.Fprintf(bw, "        %s\n", t)
			}
		}

		fmt.Fprintln(bw, "    end")
		if i < len(components)-1 {
			fmt.Fprintln(bw)
		}
	}

	return bw.Flush()
}

// WriteText writes a text summary of the graph to w.
func WriteText(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	components := sortedComponents(g)

	fmt.Fprintf(bw, "Tables: %d\n", len(g.Nodes))
	fmt.Fprintf(bw, "Foreign Keys: %d\n", len(g.Edges))
	fmt.Fprintf(bw, "Connected Components: %d\n\n", len(components))

	topoResult := g.TopoSortAll()
	if topoResult.HasCycle {
		fmt.Fprintf(bw, "WARNING: Circular dependencies detected: %v\n\n", topoResult.CycleTables)
	}

	var noPKTables []string
	for _, n := range g.Nodes {
		if len(primaryKey(n)) == 0 {
			noPKTables = append(noPKTables, n.ID)
		}
	}
	if len(noPKTables) > 0 {
		sort.Strings(noPKTables)
		fmt.Fprintf(bw, "WARNING: Tables without primary key: %v\n\n", noPKTables)
	}

	var selfRefTables []string
	for t := range g.selfRefs {
		selfRefTables = append(selfRefTables, t)
	}
	if len(selfRefTables) > 0 {
		sort.Strings(selfRefTables)
		fmt.Fprintf(bw, "Self-referencing tables: %v\n\n", selfRefTables)
	}

	roots := g.Roots()
	sort.Strings(roots)
	fmt.Fprintf(bw, "Root tables (no FK parents): %v\n\n", roots)

	for i, comp := range components {
		fmt.Fprintf(bw, "=== Component %d (%d tables) ===\n", i+1, len(comp.Tables))

		topoComp := g.TopoSort(comp.Tables)
		if topoComp.HasCycle {
			fmt.Fprintf(bw, "  Topological order (partial, has cycle):\n")
		} else {
			fmt.Fprintf(bw, "  Topological order:\n")
		}
		for j, t := range topoComp.Order {
			n, _ := g.Node(t)
			pkInfo := "no PK"
			if pk := primaryKey(n); len(pk) > 0 {
				pkInfo = fmt.Sprintf("PK: %s", strings.Join(pk, ", "))
			}
			fmt.Fprintf(bw, "    %d. %s (%d cols, %s, %d FKs)\n",
				j+1, t, len(n.Columns), pkInfo, len(g.parents[t]))
		}
		if topoComp.HasCycle {
			fmt.Fprintf(bw, "  Cycle tables: %v\n", topoComp.CycleTables)
		}
		fmt.Fprintln(bw)
	}

	return bw.Flush()
}

// sortedComponents returns components with sorted tables, ordered by their
// first table for deterministic output.
func sortedComponents(g *Graph) []Component {
	components := g.Components()
	for i := range components {
		sort.Strings(components[i].Tables)
	}
	sort.Slice(components, func(i, j int) bool {
		if len(components[i].Tables) == 0 {
			return true
		}
		if len(components[j].Tables) == 0 {
			return false
		}
		return components[i].Tables[0] < components[j].Tables[0]
	})
	return components
}

func primaryKey(n Node) []string {
	var pk []string
	for _, c := range n.Columns {
		if c.IsPrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// mermaidID converts a table name to a Mermaid-safe node ID.
func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

// mermaidIDs assigns every table a distinct Mermaid ID. Names that are
// already valid IDs keep them; rewritten names that collide get a numeric
// suffix in node order.
func mermaidIDs(g *Graph) map[string]string {
	ids := make(map[string]string, len(g.Nodes))
	used := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if mermaidID(n.ID) == n.ID {
			ids[n.ID] = n.ID
			used[n.ID] = true
		}
	}
	for _, n := range g.Nodes {
		if _, ok := ids[n.ID]; ok {
			continue
		}
		base := mermaidID(n.ID)
		id := base
		for k := 2; used[id]; k++ {
			id = fmt.Sprintf("%s_%d", base, k)
		}
		ids[n.ID] = id
		used[id] = true
	}
	return ids
}

func mermaidLabel(label string) string {
	return strings.NewReplacer("|", "/", "\"", "'").Replace(label)
}
