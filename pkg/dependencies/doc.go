// Package dependencies provides the plugin dependency graph and its analyses.
//
// # Overview
//
// Graph is a directed graph over plugin ids where an edge points from a
// consumer to the provider it depends on. Edges carry an Optional flag so a
// single edge type serves ordering, cascade checks and loader composition.
//
// # Key Features
//
// Ordering: deterministic total order with providers before consumers
// Cycle Detection: strongly connected components reported, never fatal
// Impact Analysis: transitive dependents of a node
// Visualization: Cytoscape.js export
//
// # Usage Example
//
//	g := dependencies.NewGraph()
//	g.AddNode("core")
//	g.AddNode("git")
//	g.AddEdge("git", "core", false)
//
//	order := g.Order() // [core git]
//	for _, cycle := range g.Cycles() {
//		fmt.Printf("cycle: %s\n", strings.Join(cycle, " -> "))
//	}
//
// # Related Packages
//
//   - pkg/resolver: builds the graph from plugin records
package dependencies
