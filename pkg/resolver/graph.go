package resolver

import (
	"github.com/platinummonkey/pluginhost/pkg/dependencies"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
)

// BuildGraph builds the dependency graph over the given records. Nodes keep
// the order of ids. Every non-core plugin implicitly depends on core; declared
// dependencies become edges only when the provider is itself in records.
func BuildGraph(coreID string, ids []string, records map[string]*plugins.Record) *dependencies.Graph {
	g := dependencies.NewGraph()
	for _, id := range ids {
		if _, ok := records[id]; ok {
			g.AddNode(id)
		}
	}

	_, hasCore := records[coreID]
	for _, id := range g.Nodes() {
		if id != coreID && hasCore {
			// Both nodes exist, so AddEdge cannot fail
			_ = g.AddEdge(id, coreID, false)
		}
		for _, e := range records[id].Edges() {
			if !g.HasNode(e.Provider) {
				continue
			}
			_ = g.AddEdge(e.Consumer, e.Provider, e.Optional)
		}
	}

	return g
}
