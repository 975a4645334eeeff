package dependencies

import "sort"

// Order returns every node in a deterministic total order in which, for each
// edge consumer -> provider of an acyclic graph, the provider comes first.
//
// A depth-first traversal runs from each provider to its consumers and gives
// every node a finish index; a later finish sorts earlier. Roots and
// consumer lists are walked in reverse insertion order so that unrelated
// nodes keep their discovery order. Cycles do not stop the traversal: their
// members are ordered by discovery and reported separately by Cycles.
func (g *Graph) Order() []string {
	finish := g.finishIndexes()

	order := g.Nodes()
	sort.SliceStable(order, func(i, j int) bool {
		return finish[order[i]] > finish[order[j]]
	})
	return order
}

func (g *Graph) finishIndexes() map[string]int {
	finish := make(map[string]int, len(g.nodes))
	visited := make(map[string]bool, len(g.nodes))
	next := 0

	var visit func(string)
	visit = func(id string) {
		visited[id] = true
		in := g.consumers[id]
		for i := len(in) - 1; i >= 0; i-- {
			if c := in[i].Consumer; !visited[c] {
				visit(c)
			}
		}
		finish[id] = next
		next++
	}

	for i := len(g.nodes) - 1; i >= 0; i-- {
		if id := g.nodes[i]; !visited[id] {
			visit(id)
		}
	}

	return finish
}

// Violations returns the edges whose provider does not precede its consumer
// in order. It is empty for every acyclic graph.
func (g *Graph) Violations(order []string) []Edge {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}

	var bad []Edge
	for _, e := range g.Edges() {
		if pos[e.Provider] >= pos[e.Consumer] && e.Provider != e.Consumer {
			bad = append(bad, e)
		}
	}
	return bad
}
