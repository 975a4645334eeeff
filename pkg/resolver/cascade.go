package resolver

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/pluginhost/pkg/dependencies"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
)

// CascadeResult is the fixed point of cascade disabling
type CascadeResult struct {
	Graph   *dependencies.Graph
	Order   []string          // surviving ids, providers first
	Removed []*plugins.Record // records disabled by the cascade, in removal order
	Rounds  int
}

// missing classifies why a required dependency is unavailable
type missing int

const (
	missingNotInstalled missing = iota
	missingDisabled
	missingIncompatible
)

// Cascade removes every candidate whose required dependency is unavailable,
// round after round, until a full scan removes nothing. Ids removed in a
// round are appended to the disabled-id store before the next round starts.
// The surviving set shrinks every round, so the loop ends after at most
// len(candidates) rounds.
func (r *Resolver) Cascade(ctx context.Context, fr *FilterResult, diag *Diagnostics) (*CascadeResult, error) {
	ctx, span := tracer.Start(ctx, "resolver.cascade")
	defer span.End()

	surviving := make(map[string]*plugins.Record, len(fr.Candidates))
	for id, rec := range fr.Candidates {
		surviving[id] = rec
	}

	excludedStatus := make(map[string]plugins.Status, len(fr.Excluded))
	for _, rec := range fr.Excluded {
		if _, ok := excludedStatus[rec.ID()]; !ok && rec.ID() != "" {
			excludedStatus[rec.ID()] = rec.Status()
		}
	}

	res := &CascadeResult{}
	for {
		res.Rounds++

		var removed []*plugins.Record
		for _, id := range fr.Order {
			rec, ok := surviving[id]
			if !ok {
				continue
			}

			for _, e := range rec.Edges() {
				if e.Optional {
					continue
				}
				if _, ok := surviving[e.Provider]; ok {
					continue
				}

				kind := r.classify(e.Provider, excludedStatus)
				msg := r.unsatisfiedMessage(id, e.Provider, kind)
				if err := rec.Transition(plugins.StatusDisabledCascade, msg); err != nil {
					return nil, err
				}
				diag.Add(ErrUnsatisfiedDependency, id, "%s", msg)
				r.log.WithFields(logrus.Fields{"plugin": id, "dependency": e.Provider}).Warn(msg)
				removed = append(removed, rec)
				break
			}
		}

		if len(removed) == 0 {
			break
		}

		ids := make([]string, 0, len(removed))
		for _, rec := range removed {
			delete(surviving, rec.ID())
			excludedStatus[rec.ID()] = rec.Status()
			ids = append(ids, rec.ID())
		}
		res.Removed = append(res.Removed, removed...)

		if _, ok := surviving[r.opts.CoreID]; !ok {
			return nil, fmt.Errorf("%w: %q was disabled: %s", ErrCoreMissing, r.opts.CoreID, removed[0].Reason())
		}

		r.persist(ctx, ids, diag)
	}

	res.Graph = BuildGraph(r.opts.CoreID, fr.Order, surviving)
	res.Order = res.Graph.Order()

	span.SetAttributes(
		attribute.Int("cascade.rounds", res.Rounds),
		attribute.Int("cascade.removed", len(res.Removed)),
	)
	return res, nil
}

func (r *Resolver) classify(provider string, excluded map[string]plugins.Status) missing {
	if r.opts.Disabled[provider] {
		return missingDisabled
	}
	switch excluded[provider] {
	case plugins.StatusDisabledByUser, plugins.StatusDisabledSelection, plugins.StatusDisabledCascade:
		return missingDisabled
	case plugins.StatusIncompatible:
		return missingIncompatible
	}
	return missingNotInstalled
}

func (r *Resolver) unsatisfiedMessage(consumer, provider string, kind missing) string {
	switch kind {
	case missingDisabled:
		return fmt.Sprintf("Plugin %q requires plugin %q which is disabled", consumer, provider)
	case missingIncompatible:
		return fmt.Sprintf("Plugin %q requires plugin %q which is incompatible with build %s", consumer, provider, r.opts.Build)
	default:
		return fmt.Sprintf("Plugin %q requires plugin %q which is not installed", consumer, provider)
	}
}

// persist appends ids to the disabled-id store. A failing store is reported
// but never stops resolution.
func (r *Resolver) persist(ctx context.Context, ids []string, diag *Diagnostics) {
	if r.store == nil {
		return
	}
	if err := r.store.Append(ctx, ids...); err != nil {
		diag.Warn(ErrStoreWrite, "", "Failed to save disabled plugins %s: %v", quoteAll(ids), err)
		r.log.WithError(err).WithField("plugins", ids).Error("Failed to persist disabled plugins")
	}
}
