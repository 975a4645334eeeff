package resolver

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/pluginhost/pkg/plugins"
)

type memoryStore struct {
	appended [][]string
	err      error
}

func (m *memoryStore) Append(ctx context.Context, ids ...string) error {
	if m.err != nil {
		return m.err
	}
	m.appended = append(m.appended, append([]string(nil), ids...))
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newResolver(opts Options, store Persister) *Resolver {
	return New(opts, store, quietLogger())
}

func records(descs ...*plugins.Descriptor) []*plugins.Record {
	return plugins.NewRecords(descs)
}

func orderIDs(res *Resolution) []string {
	ids := make([]string, 0, len(res.Order))
	for _, rec := range res.Order {
		ids = append(ids, rec.ID())
	}
	return ids
}

func excludedStatus(res *Resolution) map[string]plugins.Status {
	out := make(map[string]plugins.Status)
	for _, rec := range res.Excluded {
		if _, ok := out[rec.ID()]; !ok {
			out[rec.ID()] = rec.Status()
		}
	}
	return out
}

func TestResolve_ScenarioOptionalMissing(t *testing.T) {
	r := newResolver(Options{}, nil)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "core"},
		&plugins.Descriptor{ID: "A", Depends: []string{"core"}},
		&plugins.Descriptor{ID: "B", Depends: []string{"A"}, OptionalDepends: []string{"Z"}},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"core", "A", "B"}, orderIDs(res))
	assert.Empty(t, res.Excluded)
	assert.Equal(t, 0, res.Diagnostics.Len())
	assert.Equal(t, 1, res.Rounds)
	for _, rec := range res.Order {
		assert.Equal(t, plugins.StatusOrdered, rec.Status())
	}
}

func TestResolve_MissingRequiredDependency(t *testing.T) {
	store := &memoryStore{}
	r := newResolver(Options{}, store)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "core"},
		&plugins.Descriptor{ID: "X", Depends: []string{"Y"}},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"core"}, orderIDs(res))
	assert.NotContains(t, res.Records, "X")
	assert.Equal(t, plugins.StatusDisabledCascade, excludedStatus(res)["X"])

	text := res.Diagnostics.String()
	assert.Contains(t, text, `"Y"`)
	assert.Contains(t, text, "not installed")
	assert.NotContains(t, text, "disabled")
	assert.Equal(t, 1, res.Diagnostics.Count(ErrUnsatisfiedDependency))
	assert.Equal(t, [][]string{{"X"}}, store.appended)
}

func TestResolve_DependencyDisabledByUser(t *testing.T) {
	r := newResolver(Options{Disabled: map[string]bool{"B": true}}, nil)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "core"},
		&plugins.Descriptor{ID: "A", Depends: []string{"B"}},
		&plugins.Descriptor{ID: "B"},
	))
	require.NoError(t, err)

	status := excludedStatus(res)
	assert.Equal(t, plugins.StatusDisabledByUser, status["B"])
	assert.Equal(t, plugins.StatusDisabledCascade, status["A"])

	var msg string
	for _, p := range res.Diagnostics.Problems() {
		if errors.Is(p, ErrUnsatisfiedDependency) {
			msg = p.Message
		}
	}
	assert.Contains(t, msg, `requires plugin "B" which is disabled`)
	assert.NotContains(t, msg, "not installed")
}

func TestResolve_TransitiveCascade(t *testing.T) {
	store := &memoryStore{}
	r := newResolver(Options{Build: "150"}, store)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "core"},
		&plugins.Descriptor{ID: "A", Depends: []string{"B"}},
		&plugins.Descriptor{ID: "B", Depends: []string{"C"}},
		&plugins.Descriptor{ID: "C", SinceBuild: "200"},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"core"}, orderIDs(res))
	status := excludedStatus(res)
	assert.Equal(t, plugins.StatusIncompatible, status["C"])
	assert.Equal(t, plugins.StatusDisabledCascade, status["B"])
	assert.Equal(t, plugins.StatusDisabledCascade, status["A"])

	// B goes in round one, A in round two, round three finds nothing
	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, [][]string{{"B"}, {"A"}}, store.appended)
	assert.Equal(t, 1, res.Diagnostics.Count(ErrIncompatible))
	assert.Equal(t, 2, res.Diagnostics.Count(ErrUnsatisfiedDependency))
	assert.Contains(t, res.Diagnostics.String(), `requires plugin "C" which is incompatible with build 150`)
	assert.Contains(t, res.Diagnostics.String(), `requires plugin "B" which is disabled`)
}

func TestResolve_DuplicateIDs(t *testing.T) {
	first := &plugins.Descriptor{ID: "X", Version: "1"}
	second := &plugins.Descriptor{ID: "X", Version: "2"}
	r := newResolver(Options{}, nil)
	res, err := r.Resolve(context.Background(), records(&plugins.Descriptor{ID: "core"}, first, second))
	require.NoError(t, err)

	require.Contains(t, res.Records, "X")
	assert.Same(t, first, res.Records["X"].Descriptor())
	assert.Len(t, res.Order, 2)
	assert.Equal(t, 1, res.Diagnostics.Count(ErrDuplicateID))
	assert.Contains(t, res.Diagnostics.String(), `"X"`)
}

func TestResolve_MissingIDsSummarizedOnce(t *testing.T) {
	r := newResolver(Options{}, nil)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "core"},
		&plugins.Descriptor{Name: "nameless"},
		&plugins.Descriptor{Name: "also nameless"},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Diagnostics.Count(ErrMissingID))
	assert.Contains(t, res.Diagnostics.String(), "2 plugin descriptors without id were skipped")
	assert.Len(t, res.Excluded, 2)
}

func TestResolve_CoreMissing(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		descs []*plugins.Descriptor
	}{
		{
			name:  "not discovered",
			descs: []*plugins.Descriptor{{ID: "A"}},
		},
		{
			name:  "incompatible",
			opts:  Options{Build: "10"},
			descs: []*plugins.Descriptor{{ID: "core", SinceBuild: "100"}},
		},
		{
			name:  "cascade removes core",
			descs: []*plugins.Descriptor{{ID: "core", Depends: []string{"nowhere"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(tt.opts, nil)
			res, err := r.Resolve(context.Background(), records(tt.descs...))
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrCoreMissing))
		})
	}
}

func TestResolve_CoreCannotBeUserDisabled(t *testing.T) {
	r := newResolver(Options{Disabled: map[string]bool{"core": true}}, nil)
	res, err := r.Resolve(context.Background(), records(&plugins.Descriptor{ID: "core"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, orderIDs(res))
}

func TestResolve_CustomCoreID(t *testing.T) {
	r := newResolver(Options{CoreID: "platform"}, nil)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "git"},
		&plugins.Descriptor{ID: "platform"},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"platform", "git"}, orderIDs(res))
	assert.Equal(t, "platform", r.CoreID())
}

func TestResolve_CycleTolerated(t *testing.T) {
	r := newResolver(Options{}, nil)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "core"},
		&plugins.Descriptor{ID: "A", Depends: []string{"B"}},
		&plugins.Descriptor{ID: "B", Depends: []string{"A"}},
		&plugins.Descriptor{ID: "C", Depends: []string{"A"}},
	))
	require.NoError(t, err)

	ids := orderIDs(res)
	assert.ElementsMatch(t, []string{"core", "A", "B", "C"}, ids)
	assert.Equal(t, "core", ids[0])
	assert.Equal(t, [][]string{{"A", "B"}}, res.Cycles)
	assert.Equal(t, 1, res.Diagnostics.Count(ErrCycleTolerated))

	problems := res.Diagnostics.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, SeverityWarning, problems[0].Severity)
}

func TestResolve_StoreFailureIsNotFatal(t *testing.T) {
	store := &memoryStore{err: errors.New("read-only filesystem")}
	r := newResolver(Options{}, store)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "core"},
		&plugins.Descriptor{ID: "X", Depends: []string{"Y"}},
	))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Diagnostics.Count(ErrStoreWrite))
	assert.Contains(t, res.Diagnostics.String(), "read-only filesystem")
}

func TestResolve_OrderRespectsEdges(t *testing.T) {
	r := newResolver(Options{}, nil)
	res, err := r.Resolve(context.Background(), records(
		&plugins.Descriptor{ID: "ui", Depends: []string{"vcs", "editor"}},
		&plugins.Descriptor{ID: "git", Depends: []string{"vcs"}, OptionalDepends: []string{"ui"}},
		&plugins.Descriptor{ID: "vcs", Depends: []string{"editor"}},
		&plugins.Descriptor{ID: "editor"},
		&plugins.Descriptor{ID: "core"},
	))
	require.NoError(t, err)

	assert.Empty(t, res.Graph.Violations(res.Graph.Order()))
	pos := make(map[string]int)
	for i, id := range orderIDs(res) {
		pos[id] = i
	}
	for _, e := range res.Graph.Edges() {
		assert.Less(t, pos[e.Provider], pos[e.Consumer], "%s -> %s", e.Consumer, e.Provider)
	}
	assert.Equal(t, "core", orderIDs(res)[0])
}

func TestFilter_Selection(t *testing.T) {
	descs := func() []*plugins.Record {
		return records(
			&plugins.Descriptor{ID: "core", Bundled: true},
			&plugins.Descriptor{ID: "vcs", Category: "VCS", Bundled: true},
			&plugins.Descriptor{ID: "git", Category: "VCS", Depends: []string{"vcs"}},
			&plugins.Descriptor{ID: "editor", Category: "Editing", Depends: []string{"lang"}},
			&plugins.Descriptor{ID: "lang", Category: "Languages", Bundled: true},
		)
	}

	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{name: "no selection", sel: Selection{}, want: []string{"core", "vcs", "git", "editor", "lang"}},
		{name: "only id keeps required deps", sel: Selection{OnlyIDs: []string{"editor"}}, want: []string{"core", "editor", "lang"}},
		{name: "only category", sel: Selection{OnlyCategory: "vcs"}, want: []string{"core", "vcs", "git"}},
		{name: "disable external", sel: Selection{DisableExternal: true}, want: []string{"core", "vcs", "lang"}},
		{name: "combined", sel: Selection{OnlyIDs: []string{"git"}, DisableExternal: true}, want: []string{"core", "vcs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(Options{Selection: tt.sel}, nil)
			diag := NewDiagnostics()
			fr := r.Filter(context.Background(), descs(), diag)
			assert.Equal(t, tt.want, fr.Order)

			for _, rec := range fr.Excluded {
				assert.Equal(t, plugins.StatusDisabledSelection, rec.Status())
				assert.NotEmpty(t, rec.Reason())
			}
			assert.Equal(t, len(fr.Excluded), diag.Count(ErrDisabledBySelection))
		})
	}
}

func TestFilter_BuildRange(t *testing.T) {
	tests := []struct {
		name       string
		build      string
		since      string
		until      string
		compatible bool
	}{
		{name: "inside range", build: "150", since: "100", until: "200", compatible: true},
		{name: "before since", build: "50", since: "100", until: "200", compatible: false},
		{name: "after until", build: "250", since: "100", until: "200", compatible: false},
		{name: "bounds inclusive low", build: "100", since: "100", until: "200", compatible: true},
		{name: "bounds inclusive high", build: "200", since: "100", until: "200", compatible: true},
		{name: "non-numeric since skipped", build: "50", since: "beta", until: "200", compatible: true},
		{name: "non-numeric until skipped", build: "250", since: "100", until: "2.x", compatible: true},
		{name: "no bounds", build: "1", compatible: true},
		{name: "prefixed current build", build: "IC-150.2034", since: "100", until: "200", compatible: true},
		{name: "non-numeric current build", build: "SNAPSHOT", since: "100", until: "200", compatible: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResolver(Options{Build: tt.build}, nil)
			diag := NewDiagnostics()
			fr := r.Filter(context.Background(), records(
				&plugins.Descriptor{ID: "core"},
				&plugins.Descriptor{ID: "p", SinceBuild: tt.since, UntilBuild: tt.until},
			), diag)

			_, included := fr.Candidates["p"]
			assert.Equal(t, tt.compatible, included)
			if !tt.compatible {
				assert.Equal(t, plugins.StatusIncompatible, fr.Excluded[0].Status())
				assert.Equal(t, 1, diag.Count(ErrIncompatible))
			}
		})
	}
}

func TestDiagnostics(t *testing.T) {
	d := NewDiagnostics()
	assert.NoError(t, d.Err())
	assert.Equal(t, "", d.String())

	d.Add(ErrDuplicateID, "a", "Duplicate plugin %q", "a")
	d.Warn(ErrCycleTolerated, "b", "cycle")
	d.AddMissingID()

	problems := d.Problems()
	require.Len(t, problems, 3)
	assert.Equal(t, "a", problems[0].PluginID)
	assert.Equal(t, SeverityWarning, problems[1].Severity)
	assert.Equal(t, "1 plugin descriptor without id were skipped", problems[2].Message)
	assert.Equal(t, "duplicate plugin id", problems[0].KindName())

	err := d.Err()
	assert.True(t, errors.Is(err, ErrDuplicateID))
	assert.True(t, errors.Is(err, ErrMissingID))
	assert.False(t, errors.Is(err, ErrCoreMissing))
	assert.Equal(t, 3, len(strings.Split(d.String(), "\n")))
}

func TestParseBuild(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"150", 150, true},
		{" 150 ", 150, true},
		{"150.2034", 150, true},
		{"IC-150.2034.12", 150, true},
		{"beta", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseBuild(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
