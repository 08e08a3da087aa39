package graph

// Component represents a connected component of tables.
type Component struct {
	Tables []string
}

// Components detects connected components using undirected BFS. Components
// are returned in the order of their first node; tables within a component
// in BFS order.
func (g *Graph) Components() []Component {
	visited := make(map[string]bool, len(g.Nodes))
	var components []Component

	for _, n := range g.Nodes {
		if visited[n.ID] {
			continue
		}
		comp := g.bfs(n.ID, visited)
		components = append(components, Component{Tables: comp})
	}

	return components
}

func (g *Graph) bfs(start string, visited map[string]bool) []string {
	queue := []string{start}
	visited[start] = true
	var result []string

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.neighbors(node) {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	return result
}

func (g *Graph) neighbors(table string) []string {
	out := make([]string, 0, len(g.parents[table])+len(g.children[table]))
	out = append(out, g.parents[table]...)
	return append(out, g.children[table]...)
}
