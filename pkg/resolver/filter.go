package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/pluginhost/pkg/plugins"
)

// FilterResult holds the candidates that passed the compatibility filter
type FilterResult struct {
	Candidates map[string]*plugins.Record // id -> candidate record
	Order      []string                   // candidate ids in discovery order
	Excluded   []*plugins.Record          // records dropped by the filter, in discovery order
}

// Filter drops duplicate, id-less, deselected, user-disabled and
// build-incompatible descriptors. Survivors move to the candidate state.
func (r *Resolver) Filter(ctx context.Context, records []*plugins.Record, diag *Diagnostics) *FilterResult {
	_, span := tracer.Start(ctx, "resolver.filter")
	defer span.End()

	res := &FilterResult{Candidates: make(map[string]*plugins.Record)}
	selected := r.selectionMatcher(records)
	seen := make(map[string]bool, len(records))

	exclude := func(rec *plugins.Record, status plugins.Status, kind error, severity, msg string) {
		if err := rec.Transition(status, msg); err != nil {
			r.log.WithError(err).Warn("Unexpected plugin status")
		}
		res.Excluded = append(res.Excluded, rec)
		diag.add(kind, rec.ID(), severity, msg)
	}

	for _, rec := range records {
		id := rec.ID()
		desc := rec.Descriptor()

		if id == "" {
			diag.AddMissingID()
			if err := rec.Transition(plugins.StatusDisabledMissingID, "descriptor has no id"); err == nil {
				res.Excluded = append(res.Excluded, rec)
			}
			r.log.WithField("path", desc.Path).Warn("Skipping plugin descriptor without id")
			continue
		}

		if seen[id] {
			exclude(rec, plugins.StatusDisabledDuplicate, ErrDuplicateID, SeverityError,
				fmt.Sprintf("Duplicate plugin %q: only the first descriptor is used", id))
			r.log.WithFields(logrus.Fields{"plugin": id, "path": desc.Path}).Warn("Duplicate plugin id")
			continue
		}
		seen[id] = true

		if !selected(rec) {
			exclude(rec, plugins.StatusDisabledSelection, ErrDisabledBySelection, SeverityWarning,
				fmt.Sprintf("Plugin %q is not part of the active plugin selection", id))
			r.log.WithField("plugin", id).Debug("Plugin excluded by selection")
			continue
		}

		if r.opts.Disabled[id] && id != r.opts.CoreID {
			exclude(rec, plugins.StatusDisabledByUser, ErrDisabledByUser, SeverityWarning,
				fmt.Sprintf("Plugin %q is disabled", id))
			r.log.WithField("plugin", id).Debug("Plugin disabled by user")
			continue
		}

		if check := CheckBuildRange(r.opts.Build, desc.SinceBuild, desc.UntilBuild); !check.Compatible {
			var msg string
			if check.TooOld {
				msg = fmt.Sprintf("Plugin %q requires build %s or newer, current build is %s", id, desc.SinceBuild, r.opts.Build)
			} else {
				msg = fmt.Sprintf("Plugin %q supports builds up to %s, current build is %s", id, desc.UntilBuild, r.opts.Build)
			}
			exclude(rec, plugins.StatusIncompatible, ErrIncompatible, SeverityError, msg)
			r.log.WithField("plugin", id).Warn(msg)
			continue
		}

		if err := rec.Transition(plugins.StatusCandidate, ""); err != nil {
			r.log.WithError(err).Warn("Unexpected plugin status")
			continue
		}
		res.Candidates[id] = rec
		res.Order = append(res.Order, id)
	}

	span.SetAttributes(
		attribute.Int("plugins.candidates", len(res.Order)),
		attribute.Int("plugins.excluded", len(res.Excluded)),
	)
	return res
}

// selectionMatcher returns the predicate for the active selection override.
// Id and category selections keep the transitive required dependencies of
// every selected plugin so the selection can actually load.
func (r *Resolver) selectionMatcher(records []*plugins.Record) func(*plugins.Record) bool {
	sel := r.opts.Selection
	if !sel.Active() {
		return func(*plugins.Record) bool { return true }
	}

	var keep map[string]bool
	if len(sel.OnlyIDs) > 0 || sel.OnlyCategory != "" {
		byID := make(map[string]*plugins.Descriptor, len(records))
		var seeds []string
		for _, rec := range records {
			d := rec.Descriptor()
			if d.ID == "" {
				continue
			}
			if _, dup := byID[d.ID]; dup {
				continue
			}
			byID[d.ID] = d
			if sel.OnlyCategory != "" && strings.EqualFold(d.Category, sel.OnlyCategory) {
				seeds = append(seeds, d.ID)
			}
		}
		seeds = append(seeds, sel.OnlyIDs...)

		keep = make(map[string]bool)
		var walk func(string)
		walk = func(id string) {
			if keep[id] {
				return
			}
			keep[id] = true
			if d, ok := byID[id]; ok {
				for _, dep := range d.Depends {
					walk(dep)
				}
			}
		}
		for _, id := range seeds {
			walk(strings.TrimSpace(id))
		}
	}

	return func(rec *plugins.Record) bool {
		if rec.ID() == r.opts.CoreID {
			return true
		}
		if sel.DisableExternal && !rec.Descriptor().Bundled {
			return false
		}
		if keep != nil && !keep[rec.ID()] {
			return false
		}
		return true
	}
}
