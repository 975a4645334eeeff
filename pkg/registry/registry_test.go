package registry

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/platinummonkey/pluginhost/pkg/disabled"
	"github.com/platinummonkey/pluginhost/pkg/loader"
	"github.com/platinummonkey/pluginhost/pkg/observability"
	"github.com/platinummonkey/pluginhost/pkg/plugins"
	"github.com/platinummonkey/pluginhost/pkg/resolver"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// makeRoot creates a code root holding the given files
func makeRoot(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o644))
	}
	return root
}

// countingSource wraps descriptors and counts discovery calls
type countingSource struct {
	descs []*plugins.Descriptor
	calls atomic.Int32
}

func (s *countingSource) Descriptors(ctx context.Context) ([]*plugins.Descriptor, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// fresh copies so every run starts from pristine descriptors
	out := make([]*plugins.Descriptor, 0, len(s.descs))
	for _, d := range s.descs {
		c := *d
		out = append(out, &c)
	}
	return out, nil
}

// failingStore fails every operation
type failingStore struct{}

func (failingStore) Load(ctx context.Context) (map[string]bool, error) {
	return nil, errors.New("store offline")
}
func (failingStore) Append(ctx context.Context, ids ...string) error { return errors.New("store offline") }
func (failingStore) Close() error                                    { return nil }

// chain returns core <- A <- B where B optionally uses the missing Z
func chain(t *testing.T) *countingSource {
	return &countingSource{descs: []*plugins.Descriptor{
		{ID: "core", CodeRoots: []string{makeRoot(t, "core.txt")}},
		{ID: "A", Depends: []string{"core"}, CodeRoots: []string{makeRoot(t, "a.txt")}},
		{ID: "B", Depends: []string{"A"}, OptionalDepends: []string{"Z"}, CodeRoots: []string{makeRoot(t, "b.txt")}},
	}}
}

func TestInit_ResolvesAndComposes(t *testing.T) {
	src := chain(t)
	reg := New(src, nil, WithLogger(quietLogger()), WithBuild("241.1"))

	snap, err := reg.Init(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "A", "B"}, snap.Order())
	assert.Equal(t, "241.1", snap.Build)
	assert.Equal(t, resolver.DefaultCoreID, snap.CoreID)
	assert.NotEmpty(t, snap.RunID)
	assert.Empty(t, snap.Excluded())
	assert.Empty(t, snap.Diagnostics())
	assert.NoError(t, snap.Err())

	for _, rec := range snap.Plugins() {
		assert.Equal(t, plugins.StatusActive, rec.Status(), rec.ID())
		unit, ok := snap.Unit(rec.ID())
		require.True(t, ok, rec.ID())
		assert.NotNil(t, unit)
	}

	unitB, ok := snap.Unit("B")
	require.True(t, ok)
	assert.Equal(t, []string{"A"}, unitB.ParentIDs())

	res, err := snap.Resolve("B", "core.txt")
	require.NoError(t, err)
	assert.Equal(t, "core", res.Unit)

	_, err = snap.Resolve("B", "nope.txt")
	assert.True(t, errors.Is(err, loader.ErrNotFound))

	_, err = snap.Resolve("Z", "core.txt")
	assert.True(t, errors.Is(err, ErrPluginNotActive))

	assert.Equal(t, map[string]int{"active": 3}, snap.StatusCounts())
	assert.Len(t, snap.Units(), 3)
	assert.Equal(t, snap.Bootstrap(), snap.Shared())
	assert.NoError(t, reg.Ready(context.Background()))
}

func TestInit_Idempotent(t *testing.T) {
	src := chain(t)
	var mu sync.Mutex
	binds := make(map[string]int)
	reg := New(src, nil,
		WithLogger(quietLogger()),
		WithOnBind(func(rec *plugins.Record, unit *loader.Unit) error {
			mu.Lock()
			defer mu.Unlock()
			binds[rec.ID()]++
			return nil
		}),
	)

	const callers = 20
	snaps := make([]*Snapshot, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = reg.Init(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, snaps[0], snaps[i])
	}
	// each unit is constructed and bound exactly once
	assert.Equal(t, map[string]int{"core": 1, "A": 1, "B": 1}, binds)

	again, err := reg.Init(context.Background())
	require.NoError(t, err)
	assert.Same(t, snaps[0], again)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, map[string]int{"core": 1, "A": 1, "B": 1}, binds)
}

func TestInit_CoreMissingIsCached(t *testing.T) {
	src := &countingSource{descs: []*plugins.Descriptor{
		{ID: "A", Depends: []string{"core"}},
	}}
	reg := New(src, nil, WithLogger(quietLogger()))

	assert.True(t, errors.Is(reg.Ready(context.Background()), ErrNotInitialized))

	snap, err := reg.Init(context.Background())
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolver.ErrCoreMissing))

	_, err2 := reg.Init(context.Background())
	assert.Equal(t, err, err2)
	assert.Equal(t, int32(1), src.calls.Load())

	_, ok := reg.Snapshot()
	assert.False(t, ok)
	assert.True(t, errors.Is(reg.Ready(context.Background()), resolver.ErrCoreMissing))
}

func TestInit_CancelledRunIsRetried(t *testing.T) {
	src := chain(t)
	reg := New(src, nil, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.Init(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	snap, err := reg.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "A", "B"}, snap.Order())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestInit_DisabledStore(t *testing.T) {
	ctx := context.Background()
	store := disabled.NewFileStore(filepath.Join(t.TempDir(), disabled.DefaultFileName))
	require.NoError(t, store.Append(ctx, "A"))

	reg := New(chain(t), store, WithLogger(quietLogger()))
	snap, err := reg.Init(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"core"}, snap.Order())

	excluded := map[string]plugins.Status{}
	for _, rec := range snap.Excluded() {
		excluded[rec.ID()] = rec.Status()
	}
	assert.Equal(t, map[string]plugins.Status{
		"A": plugins.StatusDisabledByUser,
		"B": plugins.StatusDisabledCascade,
	}, excluded)
	assert.Contains(t, snap.Diagnostics(), `Plugin "B" requires plugin "A" which is disabled`)

	ids, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, disabled.SortedIDs(ids))

	rec, ok := snap.Record("B")
	require.True(t, ok)
	assert.Equal(t, plugins.StatusDisabledCascade, rec.Status())
	_, ok = snap.Plugin("B")
	assert.False(t, ok)
}

func TestInit_StoreFailureIsAWarning(t *testing.T) {
	src := &countingSource{descs: []*plugins.Descriptor{
		{ID: "core"},
		{ID: "A", Depends: []string{"missing"}},
	}}
	reg := New(src, failingStore{}, WithLogger(quietLogger()))

	snap, err := reg.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, snap.Order())

	kinds := map[error]string{}
	for _, p := range snap.Problems() {
		kinds[p.Kind] = p.Severity
	}
	assert.Equal(t, resolver.SeverityWarning, kinds[resolver.ErrStoreRead])
	assert.Equal(t, resolver.SeverityWarning, kinds[resolver.ErrStoreWrite])
	assert.Equal(t, resolver.SeverityError, kinds[resolver.ErrUnsatisfiedDependency])
}

func TestInit_LoaderFailureExcludesDependents(t *testing.T) {
	src := &countingSource{descs: []*plugins.Descriptor{
		{ID: "core"},
		{ID: "broken", Depends: []string{"core"}, CodeRoots: []string{filepath.Join(t.TempDir(), "gone")}},
		{ID: "user", Depends: []string{"broken"}},
		{ID: "ok", Depends: []string{"core"}},
	}}
	reg := New(src, nil, WithLogger(quietLogger()))

	snap, err := reg.Init(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "ok"}, snap.Order())
	var failed []string
	for _, rec := range snap.Excluded() {
		assert.Equal(t, plugins.StatusLoaderFailed, rec.Status())
		failed = append(failed, rec.ID())
	}
	assert.ElementsMatch(t, []string{"broken", "user"}, failed)

	_, ok := snap.Unit("broken")
	assert.False(t, ok)
	assert.Equal(t, 2, countKind(snap, resolver.ErrLoaderConstruction))
}

func TestInit_OnBindPanicFailsOnePlugin(t *testing.T) {
	reg := New(chain(t), nil,
		WithLogger(quietLogger()),
		WithOnBind(func(rec *plugins.Record, unit *loader.Unit) error {
			if rec.ID() == "B" {
				panic("extension registration exploded")
			}
			return nil
		}),
	)

	snap, err := reg.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "A"}, snap.Order())
	assert.Equal(t, 1, countKind(snap, resolver.ErrLoaderConstruction))
}

func TestInit_CoreBindFailureIsFatal(t *testing.T) {
	src := chain(t)
	reg := New(src, nil,
		WithLogger(quietLogger()),
		WithOnBind(func(rec *plugins.Record, unit *loader.Unit) error {
			if rec.ID() == "core" {
				return errors.New("core bind failed")
			}
			return nil
		}),
	)

	snap, err := reg.Init(context.Background())
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, errors.Is(err, resolver.ErrCoreMissing))
	assert.True(t, errors.Is(err, resolver.ErrLoaderConstruction))
	assert.Contains(t, err.Error(), "core bind failed")

	_, ok := reg.Snapshot()
	assert.False(t, ok)
	assert.True(t, errors.Is(reg.Ready(context.Background()), resolver.ErrCoreMissing))
}

func TestInit_FailedSharedPluginIsNotReachable(t *testing.T) {
	src := &countingSource{descs: []*plugins.Descriptor{
		{ID: "core", CodeRoots: []string{makeRoot(t, "core.txt")}},
		{ID: "bad", Depends: []string{"core"}, SharedLoader: true, CodeRoots: []string{makeRoot(t, "secret.txt")}},
		{ID: "app", Depends: []string{"core"}, CodeRoots: []string{makeRoot(t, "app.txt")}},
	}}
	reg := New(src, nil,
		WithLogger(quietLogger()),
		WithOnBind(func(rec *plugins.Record, unit *loader.Unit) error {
			if rec.ID() == "bad" {
				return errors.New("extension registration failed")
			}
			return nil
		}),
	)

	snap, err := reg.Init(context.Background())
	require.NoError(t, err)

	_, active := snap.Plugin("bad")
	assert.False(t, active)
	rec, ok := snap.Record("bad")
	require.True(t, ok)
	assert.Equal(t, plugins.StatusLoaderFailed, rec.Status())

	_, err = snap.Resolve("app", "secret.txt")
	assert.True(t, errors.Is(err, loader.ErrNotFound))
	_, err = snap.Resolve("core", "secret.txt")
	assert.True(t, errors.Is(err, loader.ErrNotFound))
	res, err := snap.Resolve("app", "core.txt")
	require.NoError(t, err)
	assert.Equal(t, "core", res.Unit)
}

func TestInit_Metrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)
	otelMetrics, err := observability.NewOTelMetrics()
	require.NoError(t, err)

	src := &countingSource{descs: []*plugins.Descriptor{
		{ID: "core", CodeRoots: []string{makeRoot(t, "core.txt")}},
		{ID: "A", Depends: []string{"core"}},
		{ID: "old", UntilBuild: "100"},
	}}
	reg := New(src, nil,
		WithLogger(quietLogger()),
		WithBuild("200"),
		WithMetrics(metrics),
		WithOTelMetrics(otelMetrics),
	)

	snap, err := reg.Init(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ResolutionsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Plugins.WithLabelValues("active")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Plugins.WithLabelValues("incompatible")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CascadeRounds))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.ProblemsTotal.WithLabelValues(resolver.ErrIncompatible.Error(), resolver.SeverityError)))

	_, err = snap.Resolve("A", "core.txt")
	require.NoError(t, err)
	_, err = snap.Resolve("A", "core.txt")
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.UnitLookupsTotal.WithLabelValues(loader.LookupFound)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.UnitLookupsTotal.WithLabelValues(loader.LookupHit)))
}

func TestInit_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	reg := New(chain(t), nil, WithLogger(quietLogger()))
	_, err := reg.Init(context.Background())
	require.NoError(t, err)

	names := map[string]bool{}
	var root sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
		if span.Name() == "registry.init" {
			root = span
		}
	}
	for _, want := range []string{"registry.init", "resolver.resolve", "resolver.filter", "resolver.cascade", "loader.compose"} {
		assert.True(t, names[want], want)
	}

	require.NotNil(t, root)
	for _, span := range recorder.Ended() {
		assert.Equal(t, root.SpanContext().TraceID(), span.SpanContext().TraceID(), span.Name())
	}
}

func countKind(snap *Snapshot, kind error) int {
	n := 0
	for _, p := range snap.Problems() {
		if errors.Is(p, kind) {
			n++
		}
	}
	return n
}
