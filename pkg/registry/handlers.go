package registry

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/pluginhost/pkg/dependencies"
	"github.com/platinummonkey/pluginhost/pkg/httputil"
	"github.com/platinummonkey/pluginhost/pkg/loader"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/resolver"
)

// UnitInfo is the serializable view of a loading unit
type UnitInfo struct {
	ID      string   `json:"id"`
	Roots   []string `json:"roots"`
	Parents []string `json:"parents"`
}

// PluginDetail is the response of GET /plugins/{id}
type PluginDetail struct {
	Plugin                 plugins.RecordInfo  `json:"plugin"`
	Unit                   *UnitInfo           `json:"unit,omitempty"`
	Dependencies           []dependencies.Edge `json:"dependencies"`
	Dependents             []dependencies.Edge `json:"dependents"`
	TransitiveDependencies []string            `json:"transitive_dependencies"`
	TransitiveDependents   []string            `json:"transitive_dependents"`
}

// Handlers serves a registry's snapshot over a read-only JSON API
type Handlers struct {
	registry *Registry
}

// NewHandlers creates handlers for reg
func NewHandlers(reg *Registry) *Handlers {
	return &Handlers{registry: reg}
}

// RegisterRoutes registers the registry routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/plugins", h.listPlugins).Methods("GET")
	router.HandleFunc("/plugins/{id}", h.getPlugin).Methods("GET")
	router.HandleFunc("/plugins/{id}/resolve", h.resolveResource).Methods("GET")
	router.HandleFunc("/order", h.getOrder).Methods("GET")
	router.HandleFunc("/excluded", h.listExcluded).Methods("GET")
	router.HandleFunc("/diagnostics", h.getDiagnostics).Methods("GET")
	router.HandleFunc("/graph", h.getGraph).Methods("GET")
}

// snapshot writes 503 and returns false until the registry is initialized
func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request) (*Snapshot, bool) {
	snap, ok := h.registry.Snapshot()
	if !ok {
		httputil.WriteUnavailable(w, r, ErrNotInitialized)
		return nil, false
	}
	return snap, true
}

func infos(records []*plugins.Record) []plugins.RecordInfo {
	out := make([]plugins.RecordInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Info())
	}
	return out
}

func unitInfo(u *loader.Unit) *UnitInfo {
	return &UnitInfo{ID: u.ID(), Roots: u.Roots(), Parents: u.ParentIDs()}
}

// listPlugins handles GET /plugins[?excluded=true]
func (h *Handlers) listPlugins(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	withExcluded, ok := httputil.QueryFlag(w, r, "excluded", false)
	if !ok {
		return
	}

	records := snap.Plugins()
	if withExcluded {
		records = snap.Discovered()
	}

	httputil.WriteJSON(w, r, http.StatusOK, map[string]interface{}{
		"plugins": infos(records),
		"count":   len(records),
	})
}

// getPlugin handles GET /plugins/{id}
func (h *Handlers) getPlugin(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathParam(w, r, "id")
	if !ok {
		return
	}

	rec, found := snap.Record(id)
	if !found {
		httputil.WriteNotFound(w, r, "plugin %q not found", id)
		return
	}

	detail := PluginDetail{
		Plugin:                 rec.Info(),
		Dependencies:           []dependencies.Edge{},
		Dependents:             []dependencies.Edge{},
		TransitiveDependencies: []string{},
		TransitiveDependents:   []string{},
	}
	if unit, ok := snap.Unit(id); ok {
		detail.Unit = unitInfo(unit)
	}
	if g := snap.Graph(); g != nil && g.HasNode(id) {
		detail.Dependencies = append(detail.Dependencies, g.Dependencies(id)...)
		detail.Dependents = append(detail.Dependents, g.Dependents(id)...)
		detail.TransitiveDependencies = append(detail.TransitiveDependencies, g.TransitiveDependencies(id)...)
		detail.TransitiveDependents = append(detail.TransitiveDependents, g.TransitiveDependents(id)...)
	}

	httputil.WriteJSON(w, r, http.StatusOK, detail)
}

// resolveResource handles GET /plugins/{id}/resolve?name=
func (h *Handlers) resolveResource(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathParam(w, r, "id")
	if !ok {
		return
	}
	name, ok := httputil.RequiredQueryParam(w, r, "name")
	if !ok {
		return
	}

	res, err := snap.Resolve(id, name)
	switch {
	case err == nil:
		httputil.WriteJSON(w, r, http.StatusOK, res)
	case errors.Is(err, loader.ErrInvalidName):
		httputil.WriteBadRequest(w, r, "%v", err)
	case errors.Is(err, ErrPluginNotActive), errors.Is(err, loader.ErrNotFound):
		httputil.WriteNotFound(w, r, "%v", err)
	default:
		httputil.WriteInternalError(w, r, err)
	}
}

// getOrder handles GET /order
func (h *Handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	cycles := snap.Cycles()
	if cycles == nil {
		cycles = [][]string{}
	}
	order := snap.Order()
	httputil.WriteJSON(w, r, http.StatusOK, map[string]interface{}{
		"run_id": snap.RunID,
		"build":  snap.Build,
		"order":  order,
		"count":  len(order),
		"cycles": cycles,
		"rounds": snap.Rounds(),
	})
}

// listExcluded handles GET /excluded
func (h *Handlers) listExcluded(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	excluded := snap.Excluded()
	httputil.WriteJSON(w, r, http.StatusOK, map[string]interface{}{
		"plugins": infos(excluded),
		"count":   len(excluded),
	})
}

// getDiagnostics handles GET /diagnostics[?severity=error|warning]
func (h *Handlers) getDiagnostics(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	severity, ok := httputil.QueryChoice(w, r, "severity", "", resolver.SeverityError, resolver.SeverityWarning)
	if !ok {
		return
	}
	type problem struct {
		Kind     string `json:"kind"`
		PluginID string `json:"plugin_id,omitempty"`
		Message  string `json:"message"`
		Severity string `json:"severity"`
	}
	problems := make([]problem, 0)
	for _, p := range snap.Problems() {
		if severity != "" && p.Severity != severity {
			continue
		}
		problems = append(problems, problem{
			Kind:     p.KindName(),
			PluginID: p.PluginID,
			Message:  p.Message,
			Severity: p.Severity,
		})
	}

	httputil.WriteJSON(w, r, http.StatusOK, map[string]interface{}{
		"problems": problems,
		"count":    len(problems),
		"text":     snap.Diagnostics(),
	})
}

// getGraph handles GET /graph in Cytoscape.js format
func (h *Handlers) getGraph(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	if snap.Graph() == nil {
		httputil.WriteNotFound(w, r, "no dependency graph")
		return
	}
	httputil.WriteJSON(w, r, http.StatusOK, snap.Graph().Cytoscape())
}
