package dependencies

import (
	"errors"
	"sort"
	"strings"
)

// ErrCircularDependency is returned by CheckAcyclic when the graph has a cycle
var ErrCircularDependency = errors.New("circular dependency detected")

// Cycles returns every strongly connected component with more than one node,
// plus single nodes that depend on themselves. Members of each cycle are
// listed in node insertion order and cycles are ordered by their first member.
func (g *Graph) Cycles() [][]string {
	index := 0
	indexes := make(map[string]int, len(g.nodes))
	lowlink := make(map[string]int, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	stack := make([]string, 0, len(g.nodes))
	var cycles [][]string

	var strongConnect func(string)
	strongConnect = func(v string) {
		indexes[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range g.providers[v] {
			w := e.Provider
			if _, seen := indexes[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indexes[w])
			}
		}

		if lowlink[v] != indexes[v] {
			return
		}

		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}

		if len(component) > 1 || g.hasSelfLoop(v) {
			sort.Slice(component, func(i, j int) bool {
				return g.index[component[i]] < g.index[component[j]]
			})
			cycles = append(cycles, component)
		}
	}

	for _, id := range g.nodes {
		if _, seen := indexes[id]; !seen {
			strongConnect(id)
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return g.index[cycles[i][0]] < g.index[cycles[j][0]]
	})
	return cycles
}

// CheckAcyclic returns ErrCircularDependency naming the first cycle, if any
func (g *Graph) CheckAcyclic() error {
	cycles := g.Cycles()
	if len(cycles) == 0 {
		return nil
	}
	return &CycleError{Members: cycles[0]}
}

// CycleError names the members of one dependency cycle
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return ErrCircularDependency.Error() + ": " + strings.Join(e.Members, " -> ")
}

func (e *CycleError) Unwrap() error {
	return ErrCircularDependency
}

func (g *Graph) hasSelfLoop(id string) bool {
	for _, e := range g.providers[id] {
		if e.Provider == id {
			return true
		}
	}
	return false
}
