package plugins

import "context"

// Descriptor describes one plugin as discovered on disk or supplied in memory
type Descriptor struct {
	ID              string   `yaml:"id"`               // Unique ID (e.g., "org.example.git")
	Name            string   `yaml:"name"`             // Display name
	Version         string   `yaml:"version"`          // Plugin version
	Vendor          string   `yaml:"vendor"`           // Vendor name
	Description     string   `yaml:"description"`      // Short description
	Category        string   `yaml:"category"`         // Category used by selection overrides
	Depends         []string `yaml:"depends"`          // Required plugin IDs
	OptionalDepends []string `yaml:"optional_depends"` // Optional plugin IDs
	SinceBuild      string   `yaml:"since_build"`      // First compatible build (inclusive)
	UntilBuild      string   `yaml:"until_build"`      // Last compatible build (inclusive)
	CodeRoots       []string `yaml:"code_roots"`       // Ordered code roots
	SharedLoader    bool     `yaml:"shared_loader"`    // Load into the shared unit instead of an isolated one

	// Set by the source, never read from the manifest file
	Path    string `yaml:"-"` // Directory the descriptor was read from
	Bundled bool   `yaml:"-"` // Shipped with the host rather than installed by the user
}

// Edge is a dependency relationship: Consumer requires or optionally uses Provider
type Edge struct {
	Consumer string
	Provider string
	Optional bool
}

// Edges returns the declared dependency edges in declaration order, required first.
// Duplicate declarations collapse into one edge; a required declaration wins
// over an optional one for the same provider.
func (d *Descriptor) Edges() []Edge {
	edges := make([]Edge, 0, len(d.Depends)+len(d.OptionalDepends))
	seen := make(map[string]bool, cap(edges))

	for _, dep := range d.Depends {
		if dep == "" || seen[dep] {
			continue
		}
		seen[dep] = true
		edges = append(edges, Edge{Consumer: d.ID, Provider: dep})
	}
	for _, dep := range d.OptionalDepends {
		if dep == "" || seen[dep] {
			continue
		}
		seen[dep] = true
		edges = append(edges, Edge{Consumer: d.ID, Provider: dep, Optional: true})
	}

	return edges
}

// Source supplies raw descriptors in discovery order
type Source interface {
	Descriptors(ctx context.Context) ([]*Descriptor, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context) ([]*Descriptor, error)

// Descriptors implements Source
func (f SourceFunc) Descriptors(ctx context.Context) ([]*Descriptor, error) {
	return f(ctx)
}

// StaticSource serves a fixed descriptor list
type StaticSource []*Descriptor

// Descriptors implements Source
func (s StaticSource) Descriptors(ctx context.Context) ([]*Descriptor, error) {
	out := make([]*Descriptor, len(s))
	copy(out, s)
	return out, nil
}

// ValidationError represents a descriptor validation problem
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}
