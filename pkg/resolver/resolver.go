package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/platinummonkey/pluginhost/pkg/dependencies"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
)

// DefaultCoreID is the id of the platform plugin every other plugin depends on
const DefaultCoreID = "core"

var tracer = otel.Tracer("pluginhost/resolver")

// Selection restricts which plugins may load during one pass
type Selection struct {
	OnlyIDs         []string // load only these plugins and their required dependencies
	OnlyCategory    string   // load only plugins of this category and their required dependencies
	DisableExternal bool     // load only bundled plugins
}

// Active reports whether any override is set
func (s Selection) Active() bool {
	return len(s.OnlyIDs) > 0 || s.OnlyCategory != "" || s.DisableExternal
}

// Options configures a resolution pass
type Options struct {
	CoreID    string          // defaults to DefaultCoreID
	Build     string          // current build identifier
	Disabled  map[string]bool // persisted user-disabled ids
	Selection Selection
}

// Persister appends newly disabled plugin ids to durable storage
type Persister interface {
	Append(ctx context.Context, ids ...string) error
}

// Resolution is the outcome of filtering, cascade disabling and ordering
type Resolution struct {
	Order       []*plugins.Record          // surviving records, providers first
	Records     map[string]*plugins.Record // surviving records by id
	Excluded    []*plugins.Record          // every record that did not survive, in discovery order
	Graph       *dependencies.Graph        // final dependency graph over the survivors
	Cycles      [][]string                 // tolerated cycles
	Rounds      int                        // cascade rounds until the fixed point
	Diagnostics *Diagnostics
}

// Resolver runs the compatibility filter, the cascade fixed point and the orderer
type Resolver struct {
	opts  Options
	store Persister
	log   *logrus.Logger
}

// New creates a resolver. store may be nil, in which case cascade-disabled
// ids are not persisted.
func New(opts Options, store Persister, log *logrus.Logger) *Resolver {
	if opts.CoreID == "" {
		opts.CoreID = DefaultCoreID
	}
	if opts.Disabled == nil {
		opts.Disabled = make(map[string]bool)
	}
	if log == nil {
		log = logrus.New()
	}

	return &Resolver{opts: opts, store: store, log: log}
}

// CoreID returns the id of the core plugin
func (r *Resolver) CoreID() string {
	return r.opts.CoreID
}

// Resolve runs the pipeline up to a total load order. Only a missing core
// plugin is returned as an error; every other problem lands in the
// resolution's diagnostics.
func (r *Resolver) Resolve(ctx context.Context, records []*plugins.Record) (*Resolution, error) {
	ctx, span := tracer.Start(ctx, "resolver.resolve")
	defer span.End()
	start := time.Now()

	diag := NewDiagnostics()

	filtered := r.Filter(ctx, records, diag)
	if _, ok := filtered.Candidates[r.opts.CoreID]; !ok {
		err := r.coreMissing(filtered.Excluded)
		span.RecordError(err)
		span.SetStatus(codes.Error, "core missing")
		return nil, err
	}

	cascaded, err := r.Cascade(ctx, filtered, diag)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cascade failed")
		return nil, err
	}

	res := &Resolution{
		Order:       make([]*plugins.Record, 0, len(cascaded.Order)),
		Records:     make(map[string]*plugins.Record, len(cascaded.Order)),
		Excluded:    filtered.Excluded,
		Graph:       cascaded.Graph,
		Cycles:      cascaded.Graph.Cycles(),
		Rounds:      cascaded.Rounds,
		Diagnostics: diag,
	}

	for _, cycle := range res.Cycles {
		diag.Warn(ErrCycleTolerated, cycle[0],
			"Plugins %s depend on each other; they are loaded in discovery order",
			quoteAll(cycle))
		r.log.WithField("plugins", cycle).Warn("Dependency cycle tolerated")
	}

	for _, id := range cascaded.Order {
		rec := filtered.Candidates[id]
		if err := rec.Transition(plugins.StatusOrdered, ""); err != nil {
			return nil, err
		}
		res.Order = append(res.Order, rec)
		res.Records[id] = rec
	}
	res.Excluded = append(res.Excluded, cascaded.Removed...)

	span.SetAttributes(
		attribute.Int("plugins.discovered", len(records)),
		attribute.Int("plugins.ordered", len(res.Order)),
		attribute.Int("plugins.excluded", len(res.Excluded)),
		attribute.Int("cascade.rounds", res.Rounds),
	)
	r.log.WithFields(logrus.Fields{
		"ordered":  len(res.Order),
		"excluded": len(res.Excluded),
		"rounds":   res.Rounds,
		"duration": time.Since(start),
	}).Info("Resolved plugin load order")

	return res, nil
}

func (r *Resolver) coreMissing(excluded []*plugins.Record) error {
	for _, rec := range excluded {
		if rec.ID() == r.opts.CoreID {
			return fmt.Errorf("%w: %q is %s: %s", ErrCoreMissing, r.opts.CoreID, rec.Status(), rec.Reason())
		}
	}
	return fmt.Errorf("%w: %q was not discovered", ErrCoreMissing, r.opts.CoreID)
}

func quoteAll(ids []string) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, fmt.Sprintf("%q", id))
	}
	return strings.Join(quoted, ", ")
}
