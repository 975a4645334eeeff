package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/pluginhost/pkg/observability"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/resolver"
)

// DefaultConcurrency bounds the goroutines canonicalizing code roots
const DefaultConcurrency = 8

var tracer = otel.Tracer("pluginhost/loader")

// Options configures a Composer
type Options struct {
	CoreID      string         // defaults to resolver.DefaultCoreID
	Bootstrap   *Unit          // unit of the core plugin; built from the core record when nil
	Shared      *Unit          // unit for shared-loader plugins; defaults to Bootstrap
	Concurrency int            // canonicalization workers
	CacheSize   int            // positive lookups cached per unit
	Observer    LookupObserver // attached to every unit the composer creates

	// OnBind runs after a plugin's unit is built. An error or panic fails
	// that plugin only.
	OnBind func(rec *plugins.Record, unit *Unit) error
}

// Result is the outcome of composing loading units
type Result struct {
	Bootstrap *Unit
	Shared    *Unit
	Units     map[string]*Unit  // plugin id -> unit
	Bound     []*plugins.Record // records with a unit, in load order
	Failed    map[string]error  // plugin id -> construction failure
}

// Composer builds one loading unit per ordered plugin
type Composer struct {
	opts Options
	log  *logrus.Logger
}

// NewComposer creates a composer
func NewComposer(opts Options, log *logrus.Logger) *Composer {
	if opts.CoreID == "" {
		opts.CoreID = resolver.DefaultCoreID
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logrus.New()
	}
	return &Composer{opts: opts, log: log}
}

// composition is the state of one Compose call
type composition struct {
	res      *Result
	present  map[string]bool
	roots    [][]string
	rootErrs []error
	diag     *resolver.Diagnostics
}

// Compose builds units for records in load order. Records must be in the
// ordered state; each one ends up loader-bound or loader-failed. A failure
// affects only that plugin and the plugins requiring it. Compose itself fails
// only when ctx is cancelled or the core plugin's unit cannot be built or bound.
func (c *Composer) Compose(ctx context.Context, order []*plugins.Record, diag *resolver.Diagnostics) (*Result, error) {
	ctx, span := tracer.Start(ctx, "loader.compose")
	defer span.End()

	if diag == nil {
		diag = resolver.NewDiagnostics()
	}

	roots, rootErrs, err := c.canonicalize(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "canonicalization cancelled")
		return nil, err
	}

	cs := &composition{
		res: &Result{
			Units:  make(map[string]*Unit, len(order)),
			Failed: make(map[string]error),
		},
		present:  make(map[string]bool, len(order)),
		roots:    roots,
		rootErrs: rootErrs,
		diag:     diag,
	}
	for _, rec := range order {
		cs.present[rec.ID()] = true
	}

	bootstrap, err := c.bootstrap(order, cs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bootstrap failed")
		return nil, err
	}
	cs.res.Bootstrap = bootstrap
	cs.res.Shared = c.opts.Shared
	if cs.res.Shared == nil {
		cs.res.Shared = bootstrap
	}
	cs.res.Units[c.opts.CoreID] = bootstrap

	for i, rec := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		unit, err := c.build(cs, i, rec)
		if err == nil {
			err = rec.Transition(plugins.StatusLoaderBound, "")
		}
		if err != nil {
			c.fail(cs, rec, err)
			if rec.ID() == c.opts.CoreID {
				err = coreFailed(rec.ID(), err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "core plugin failed")
				return nil, err
			}
			continue
		}
		cs.res.Units[rec.ID()] = unit
		cs.res.Bound = append(cs.res.Bound, rec)
	}

	span.SetAttributes(
		attribute.Int("loader.bound", len(cs.res.Bound)),
		attribute.Int("loader.failed", len(cs.res.Failed)),
	)
	c.log.WithFields(logrus.Fields{
		"bound":  len(cs.res.Bound),
		"failed": len(cs.res.Failed),
	}).Info("Composed plugin loaders")

	return cs.res, nil
}

// bootstrap returns the configured bootstrap unit, or builds one from the
// core record's roots
func (c *Composer) bootstrap(order []*plugins.Record, cs *composition) (*Unit, error) {
	if c.opts.Bootstrap != nil {
		return c.opts.Bootstrap, nil
	}

	for i, rec := range order {
		if rec.ID() != c.opts.CoreID {
			continue
		}
		if err := cs.rootErrs[i]; err != nil {
			return nil, coreFailed(rec.ID(), err)
		}
		return c.newUnit(rec.ID(), cs.roots[i], nil), nil
	}

	return c.newUnit(c.opts.CoreID, nil, nil), nil
}

// coreFailed is the fatal error for a core plugin whose unit could not be built
func coreFailed(id string, err error) error {
	return fmt.Errorf("%w: %w: core plugin %q: %v", resolver.ErrCoreMissing, resolver.ErrLoaderConstruction, id, err)
}

// build creates the unit for one record. Panics are recovered into errors.
// On failure, roots the record added to the shared unit are removed again.
func (c *Composer) build(cs *composition, i int, rec *plugins.Record) (unit *Unit, err error) {
	var added []string
	defer func() {
		if r := recover(); r != nil {
			err = observability.MustRecover(r)
			unit = nil
			c.log.WithFields(logrus.Fields{
				"plugin": rec.ID(),
				"panic":  r,
				"stack":  string(debug.Stack()),
			}).Error("PANIC recovered while building plugin loader")
		}
		if err != nil && len(added) > 0 {
			cs.res.Shared.RemoveRoots(added...)
		}
	}()

	id := rec.ID()
	if id == c.opts.CoreID {
		unit = cs.res.Bootstrap
	} else {
		if err := cs.rootErrs[i]; err != nil {
			return nil, err
		}

		parents, err := c.parents(cs, rec)
		if err != nil {
			return nil, err
		}

		switch s := StrategyFor(rec.Descriptor(), cs.roots[i], parents).(type) {
		case Shared:
			added = cs.res.Shared.AddRoots(s.Roots...)
			unit = cs.res.Shared
		case Isolated:
			unit = c.newUnit(id, s.Roots, s.Parents)
		}
	}

	if c.opts.OnBind != nil {
		if err := c.opts.OnBind(rec, unit); err != nil {
			return nil, err
		}
	}
	return unit, nil
}

// parents returns the units of the record's required dependencies in
// declared order, then those of its present optional dependencies
func (c *Composer) parents(cs *composition, rec *plugins.Record) ([]*Unit, error) {
	id := rec.ID()
	var parents []*Unit
	seen := make(map[*Unit]bool)

	for _, e := range rec.Edges() {
		if e.Provider == id {
			continue
		}

		if _, failed := cs.res.Failed[e.Provider]; failed {
			if e.Optional {
				c.log.WithFields(logrus.Fields{"plugin": id, "dependency": e.Provider}).
					Debug("Skipping failed optional dependency")
				continue
			}
			return nil, fmt.Errorf("dependency %q failed to load", e.Provider)
		}

		unit, ok := cs.res.Units[e.Provider]
		if !ok {
			switch {
			case e.Optional:
			case cs.present[e.Provider]:
				// provider comes later in a tolerated cycle
				cs.diag.Warn(resolver.ErrCycleTolerated, id,
					"Plugin %q loads before its dependency %q; resources of %q are not visible to it",
					id, e.Provider, e.Provider)
				c.log.WithFields(logrus.Fields{"plugin": id, "dependency": e.Provider}).
					Warn("Dependency not built yet, skipping parent")
			default:
				return nil, fmt.Errorf("dependency %q is not loaded", e.Provider)
			}
			continue
		}

		if !seen[unit] {
			seen[unit] = true
			parents = append(parents, unit)
		}
	}

	if len(parents) == 0 {
		c.log.WithField("plugin", id).Warn("Plugin has no dependency units, using the bootstrap unit as parent")
		parents = append(parents, cs.res.Bootstrap)
	}
	return parents, nil
}

func (c *Composer) fail(cs *composition, rec *plugins.Record, err error) {
	id := rec.ID()
	cs.res.Failed[id] = err
	if terr := rec.Transition(plugins.StatusLoaderFailed, err.Error()); terr != nil {
		c.log.WithError(terr).Warn("Unexpected plugin status")
	}
	cs.diag.Add(resolver.ErrLoaderConstruction, id, "Plugin %q failed to load: %v", id, err)
	c.log.WithError(err).WithField("plugin", id).Error("Failed to build plugin loader")
}

func (c *Composer) newUnit(id string, roots []string, parents []*Unit) *Unit {
	opts := []UnitOption{WithLookupObserver(c.opts.Observer)}
	if c.opts.CacheSize > 0 {
		opts = append(opts, WithCacheSize(c.opts.CacheSize))
	}
	return NewUnit(id, roots, parents, opts...)
}

// canonicalize resolves every record's code roots concurrently. Per-record
// failures are returned in errs; the error result is set only on cancellation.
func (c *Composer) canonicalize(ctx context.Context, order []*plugins.Record) (roots [][]string, errs []error, err error) {
	roots = make([][]string, len(order))
	errs = make([]error, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, rec := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			roots[i], errs[i] = CanonicalRoots(rec.Descriptor().CodeRoots)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return roots, errs, nil
}

// CanonicalRoots makes roots absolute and resolves symlinks, dropping
// duplicates. A root that does not exist is an error.
func CanonicalRoots(roots []string) ([]string, error) {
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("code root %q: %w", root, err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("code root %q: %w", root, err)
		}
		if !contains(out, resolved) {
			out = append(out, resolved)
		}
	}
	return out, nil
}
