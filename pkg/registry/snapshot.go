package registry

import (
	"fmt"
	"time"

	"github.com/platinummonkey/pluginhost/pkg/dependencies"
	"github.com/platinummonkey/pluginhost/pkg/loader"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/resolver"
)

// Snapshot is the published, read-only outcome of one resolution run. Every
// plugin it lists as active has a fully built loading unit.
type Snapshot struct {
	RunID      string
	Build      string
	CoreID     string
	ResolvedAt time.Time
	Duration   time.Duration

	discovered []*plugins.Record          // every record, discovery order
	active     []*plugins.Record          // load order
	byID       map[string]*plugins.Record // active records
	excluded   []*plugins.Record
	units      map[string]*loader.Unit
	bootstrap  *loader.Unit
	shared     *loader.Unit
	graph      *dependencies.Graph
	cycles     [][]string
	rounds     int
	problems   []*resolver.Problem
	diag       *resolver.Diagnostics
}

func newSnapshot(runID string, opts resolver.Options, discovered []*plugins.Record, res *resolver.Resolution, composed *loader.Result) *Snapshot {
	coreID := opts.CoreID
	if coreID == "" {
		coreID = resolver.DefaultCoreID
	}

	s := &Snapshot{
		RunID:      runID,
		Build:      opts.Build,
		CoreID:     coreID,
		discovered: discovered,
		active:     composed.Bound,
		byID:       make(map[string]*plugins.Record, len(composed.Bound)),
		excluded:   append([]*plugins.Record(nil), res.Excluded...),
		units:      composed.Units,
		bootstrap:  composed.Bootstrap,
		shared:     composed.Shared,
		graph:      res.Graph,
		cycles:     res.Cycles,
		rounds:     res.Rounds,
		problems:   res.Diagnostics.Problems(),
		diag:       res.Diagnostics,
	}

	for _, rec := range composed.Bound {
		s.byID[rec.ID()] = rec
	}
	for _, rec := range res.Order {
		if rec.Status() == plugins.StatusLoaderFailed {
			s.excluded = append(s.excluded, rec)
		}
	}
	return s
}

// Plugins returns the active plugins in load order
func (s *Snapshot) Plugins() []*plugins.Record {
	return append([]*plugins.Record(nil), s.active...)
}

// Order returns the ids of the active plugins in load order
func (s *Snapshot) Order() []string {
	ids := make([]string, 0, len(s.active))
	for _, rec := range s.active {
		ids = append(ids, rec.ID())
	}
	return ids
}

// Plugin returns the active plugin with the given id
func (s *Snapshot) Plugin(id string) (*plugins.Record, bool) {
	rec, ok := s.byID[id]
	return rec, ok
}

// Record returns the active plugin with the given id, or else the first
// excluded record carrying it
func (s *Snapshot) Record(id string) (*plugins.Record, bool) {
	if rec, ok := s.byID[id]; ok {
		return rec, true
	}
	for _, rec := range s.excluded {
		if rec.ID() == id {
			return rec, true
		}
	}
	return nil, false
}

// Excluded returns every record that did not become active: filtered,
// cascade-disabled and loader-failed, in that order
func (s *Snapshot) Excluded() []*plugins.Record {
	return append([]*plugins.Record(nil), s.excluded...)
}

// Discovered returns every record seen by the run in discovery order
func (s *Snapshot) Discovered() []*plugins.Record {
	return append([]*plugins.Record(nil), s.discovered...)
}

// Unit returns the loading unit of an active plugin
func (s *Snapshot) Unit(id string) (*loader.Unit, bool) {
	if _, ok := s.byID[id]; !ok {
		return nil, false
	}
	unit, ok := s.units[id]
	return unit, ok
}

// Units returns the loading units of all active plugins keyed by id
func (s *Snapshot) Units() map[string]*loader.Unit {
	out := make(map[string]*loader.Unit, len(s.byID))
	for id := range s.byID {
		out[id] = s.units[id]
	}
	return out
}

// Bootstrap returns the unit of the core plugin
func (s *Snapshot) Bootstrap() *loader.Unit { return s.bootstrap }

// Shared returns the unit shared-loader plugins were appended to
func (s *Snapshot) Shared() *loader.Unit { return s.shared }

// Resolve looks name up through the unit of the active plugin id
func (s *Snapshot) Resolve(id, name string) (*loader.Resource, error) {
	unit, ok := s.Unit(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPluginNotActive, id)
	}
	return unit.Resolve(name)
}

// Graph returns the final dependency graph over the plugins that survived
// the cascade
func (s *Snapshot) Graph() *dependencies.Graph { return s.graph }

// Cycles returns the tolerated dependency cycles
func (s *Snapshot) Cycles() [][]string { return s.cycles }

// Rounds returns the number of cascade rounds the run needed
func (s *Snapshot) Rounds() int { return s.rounds }

// Problems returns every non-fatal problem found during the run
func (s *Snapshot) Problems() []*resolver.Problem {
	return append([]*resolver.Problem(nil), s.problems...)
}

// Diagnostics returns the aggregated diagnostic text, empty when clean
func (s *Snapshot) Diagnostics() string {
	return s.diag.String()
}

// Err returns the problems joined into one error, or nil
func (s *Snapshot) Err() error {
	return s.diag.Err()
}

// StatusCounts counts discovered records by final status
func (s *Snapshot) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for _, rec := range s.discovered {
		counts[rec.Status().String()]++
	}
	return counts
}
