package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/pluginhost/pkg/disabled"
	"github.com/platinummonkey/pluginhost/pkg/loader"
	"github.com/platinummonkey/pluginhost/pkg/observability"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/resolver"
)

var (
	// ErrNotInitialized is returned before the first successful Init
	ErrNotInitialized = errors.New("plugin registry not initialized")

	// ErrPluginNotActive is returned for lookups against plugins without a unit
	ErrPluginNotActive = errors.New("plugin is not active")
)

var tracer = otel.Tracer("pluginhost/registry")

// Registry resolves plugins once and keeps the resulting snapshot
type Registry struct {
	source plugins.Source
	store  disabled.Store

	resolverOpts resolver.Options
	loaderOpts   loader.Options

	log         *logrus.Logger
	metrics     *observability.Metrics
	otelMetrics *observability.OTelMetrics

	done     atomic.Bool
	mu       sync.Mutex
	snapshot *Snapshot
	err      error
}

// Option configures a Registry
type Option func(*Registry)

// WithBuild sets the current build identifier checked against plugin build ranges
func WithBuild(build string) Option {
	return func(r *Registry) { r.resolverOpts.Build = build }
}

// WithCoreID overrides the id of the core plugin
func WithCoreID(id string) Option {
	return func(r *Registry) {
		r.resolverOpts.CoreID = id
		r.loaderOpts.CoreID = id
	}
}

// WithSelection restricts which plugins may load
func WithSelection(sel resolver.Selection) Option {
	return func(r *Registry) { r.resolverOpts.Selection = sel }
}

// WithBootstrap supplies the unit used for the core plugin
func WithBootstrap(unit *loader.Unit) Option {
	return func(r *Registry) { r.loaderOpts.Bootstrap = unit }
}

// WithSharedUnit supplies the unit shared-loader plugins are appended to
func WithSharedUnit(unit *loader.Unit) Option {
	return func(r *Registry) { r.loaderOpts.Shared = unit }
}

// WithLoadConcurrency bounds the goroutines preparing code roots
func WithLoadConcurrency(n int) Option {
	return func(r *Registry) { r.loaderOpts.Concurrency = n }
}

// WithUnitCacheSize sets the per-unit lookup cache size
func WithUnitCacheSize(n int) Option {
	return func(r *Registry) { r.loaderOpts.CacheSize = n }
}

// WithOnBind runs fn for every plugin once its unit exists. An error or
// panic fails that plugin only.
func WithOnBind(fn func(rec *plugins.Record, unit *loader.Unit) error) Option {
	return func(r *Registry) { r.loaderOpts.OnBind = fn }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithMetrics records Prometheus metrics for each run and unit lookup
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithOTelMetrics records OpenTelemetry metrics for each run
func WithOTelMetrics(m *observability.OTelMetrics) Option {
	return func(r *Registry) { r.otelMetrics = m }
}

// New creates a registry. store may be nil, in which case nothing is read
// from or persisted to a disabled set.
func New(source plugins.Source, store disabled.Store, opts ...Option) *Registry {
	r := &Registry{
		source: source,
		store:  store,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logrus.New()
	}
	if r.metrics != nil {
		r.loaderOpts.Observer = r.metrics.ObserveLookup
	}
	return r
}

// Init resolves plugins on the first call and returns the cached outcome on
// every later call. Concurrent callers block until the first run finishes.
// A run aborted by context cancellation is not cached, so a later call
// retries.
func (r *Registry) Init(ctx context.Context) (*Snapshot, error) {
	if r.done.Load() {
		return r.snapshot, r.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done.Load() {
		return r.snapshot, r.err
	}

	snap, err := r.run(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil, err
	}

	r.snapshot, r.err = snap, err
	r.done.Store(true)
	return snap, err
}

// Snapshot returns the published snapshot without blocking
func (r *Registry) Snapshot() (*Snapshot, bool) {
	if !r.done.Load() || r.snapshot == nil {
		return nil, false
	}
	return r.snapshot, true
}

// Ready reports whether Init completed successfully. It fits
// observability.CheckFunc.
func (r *Registry) Ready(ctx context.Context) error {
	if !r.done.Load() {
		return ErrNotInitialized
	}
	return r.err
}

func (r *Registry) run(ctx context.Context) (*Snapshot, error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)
	ctx = observability.WithLogger(ctx, r.log)

	ctx, span := tracer.Start(ctx, "registry.init", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("build", r.resolverOpts.Build),
	))
	defer span.End()

	log := observability.FromContext(ctx)
	start := time.Now()

	snap, err := r.resolve(ctx, log, runID)
	duration := time.Since(start)
	r.record(ctx, snap, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "plugin resolution failed")
		log.WithError(err).Error("Plugin registry initialization failed")
		return nil, err
	}

	snap.ResolvedAt = start
	snap.Duration = duration

	span.SetAttributes(
		attribute.Int("plugins.active", len(snap.active)),
		attribute.Int("plugins.excluded", len(snap.excluded)),
		attribute.Int("problems", len(snap.problems)),
	)
	log.WithFields(logrus.Fields{
		"active":   len(snap.active),
		"excluded": len(snap.excluded),
		"problems": len(snap.problems),
		"duration": duration,
	}).Info("Plugin registry initialized")

	return snap, nil
}

func (r *Registry) resolve(ctx context.Context, log *logrus.Entry, runID string) (*Snapshot, error) {
	descs, err := r.source.Descriptors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover plugins: %w", err)
	}
	log.WithField("descriptors", len(descs)).Debug("Discovered plugin descriptors")

	opts := r.resolverOpts
	var storeErr error
	var persister resolver.Persister
	if r.store != nil {
		persister = r.store
		opts.Disabled, storeErr = r.store.Load(ctx)
		if storeErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(storeErr).Warn("Failed to load disabled plugins, continuing with none disabled")
			opts.Disabled = nil
		}
	}

	records := plugins.NewRecords(descs)
	res, err := resolver.New(opts, persister, r.log).Resolve(ctx, records)
	if err != nil {
		return nil, err
	}
	if storeErr != nil {
		res.Diagnostics.Warn(resolver.ErrStoreRead, "", "Disabled plugins could not be loaded: %v", storeErr)
	}

	composed, err := loader.NewComposer(r.loaderOpts, r.log).Compose(ctx, res.Order, res.Diagnostics)
	if err != nil {
		return nil, err
	}

	for _, rec := range composed.Bound {
		if err := rec.Transition(plugins.StatusActive, ""); err != nil {
			return nil, err
		}
	}

	return newSnapshot(runID, opts, records, res, composed), nil
}

// record publishes run metrics; snap is nil when the run failed
func (r *Registry) record(ctx context.Context, snap *Snapshot, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	if r.metrics != nil {
		r.metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
		r.metrics.ResolutionDuration.Observe(duration.Seconds())
		if snap != nil {
			r.metrics.CascadeRounds.Set(float64(snap.rounds))
			r.metrics.SetPluginCounts(snap.StatusCounts())
			for _, p := range snap.problems {
				r.metrics.ProblemsTotal.WithLabelValues(p.KindName(), p.Severity).Inc()
			}
		}
	}

	if r.otelMetrics != nil {
		r.otelMetrics.RecordResolution(ctx, duration, err != nil)
		if snap != nil {
			for _, p := range snap.problems {
				r.otelMetrics.RecordProblem(ctx, p.KindName(), p.Severity)
			}
		}
	}
}
