package dependencies

// CytoscapeNode represents a node in Cytoscape.js format
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData contains node data for Cytoscape.js
type CytoscapeNodeData struct {
	ID       string `json:"id"`
	Position int    `json:"position"` // index in load order
	Type     string `json:"type"`     // "root", "plugin", "cycle"
}

// CytoscapeEdge represents an edge in Cytoscape.js format
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData contains edge data for Cytoscape.js
type CytoscapeEdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"` // "required", "optional"
}

// CytoscapeGraph represents the complete graph in Cytoscape.js format
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// Cytoscape converts the graph to Cytoscape.js format. Nodes appear in load
// order; edges point from consumer to provider.
func (g *Graph) Cytoscape() CytoscapeGraph {
	inCycle := make(map[string]bool)
	for _, cycle := range g.Cycles() {
		for _, id := range cycle {
			inCycle[id] = true
		}
	}

	order := g.Order()
	out := CytoscapeGraph{
		Nodes: make([]CytoscapeNode, 0, len(order)),
		Edges: make([]CytoscapeEdge, 0),
	}

	for i, id := range order {
		nodeType := "plugin"
		switch {
		case inCycle[id]:
			nodeType = "cycle"
		case len(g.providers[id]) == 0:
			nodeType = "root"
		}
		out.Nodes = append(out.Nodes, CytoscapeNode{Data: CytoscapeNodeData{
			ID:       id,
			Position: i,
			Type:     nodeType,
		}})
	}

	for _, e := range g.Edges() {
		edgeType := "required"
		if e.Optional {
			edgeType = "optional"
		}
		out.Edges = append(out.Edges, CytoscapeEdge{Data: CytoscapeEdgeData{
			ID:     e.Consumer + "->" + e.Provider,
			Source: e.Consumer,
			Target: e.Provider,
			Type:   edgeType,
		}})
	}

	return out
}
