package dependencies

import (
	"fmt"
	"sort"
)

// Edge is a directed dependency: Consumer depends on Provider
type Edge struct {
	Consumer string `json:"consumer"`
	Provider string `json:"provider"`
	Optional bool   `json:"optional,omitempty"`
}

// Graph is a directed dependency graph over string ids. Node and edge
// insertion order is preserved so every traversal is deterministic.
type Graph struct {
	nodes     []string
	index     map[string]int
	providers map[string][]Edge // consumer -> outgoing edges
	consumers map[string][]Edge // provider -> incoming edges
}

// NewGraph creates an empty dependency graph
func NewGraph() *Graph {
	return &Graph{
		index:     make(map[string]int),
		providers: make(map[string][]Edge),
		consumers: make(map[string][]Edge),
	}
}

// AddNode adds a node; adding an existing node is a no-op
func (g *Graph) AddNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
}

// AddEdge adds consumer -> provider. Both nodes must already exist. A second
// edge between the same pair only upgrades an optional edge to required.
func (g *Graph) AddEdge(consumer, provider string, optional bool) error {
	if !g.HasNode(consumer) {
		return fmt.Errorf("unknown consumer node: %s", consumer)
	}
	if !g.HasNode(provider) {
		return fmt.Errorf("unknown provider node: %s", provider)
	}

	for i, e := range g.providers[consumer] {
		if e.Provider != provider {
			continue
		}
		if e.Optional && !optional {
			g.providers[consumer][i].Optional = false
			for j, in := range g.consumers[provider] {
				if in.Consumer == consumer {
					g.consumers[provider][j].Optional = false
				}
			}
		}
		return nil
	}

	edge := Edge{Consumer: consumer, Provider: provider, Optional: optional}
	g.providers[consumer] = append(g.providers[consumer], edge)
	g.consumers[provider] = append(g.consumers[provider], edge)
	return nil
}

// HasNode reports whether id is a node of the graph
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns all nodes in insertion order
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Edges returns every edge, grouped by consumer in node order
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, id := range g.nodes {
		edges = append(edges, g.providers[id]...)
	}
	return edges
}

// Dependencies returns the direct outgoing edges of id
func (g *Graph) Dependencies(id string) []Edge {
	return append([]Edge(nil), g.providers[id]...)
}

// Dependents returns the direct incoming edges of id
func (g *Graph) Dependents(id string) []Edge {
	return append([]Edge(nil), g.consumers[id]...)
}

// TransitiveDependencies returns every node reachable from id, sorted
func (g *Graph) TransitiveDependencies(id string) []string {
	return g.reach(id, g.providers, func(e Edge) string { return e.Provider })
}

// TransitiveDependents returns every node that reaches id, sorted. These are
// the nodes affected when id becomes unavailable.
func (g *Graph) TransitiveDependents(id string) []string {
	return g.reach(id, g.consumers, func(e Edge) string { return e.Consumer })
}

func (g *Graph) reach(id string, adj map[string][]Edge, next func(Edge) string) []string {
	visited := make(map[string]bool)
	result := make([]string, 0)

	var traverse func(string)
	traverse = func(key string) {
		for _, e := range adj[key] {
			n := next(e)
			if visited[n] || n == id {
				continue
			}
			visited[n] = true
			result = append(result, n)
			traverse(n)
		}
	}

	traverse(id)
	sort.Strings(result)
	return result
}
