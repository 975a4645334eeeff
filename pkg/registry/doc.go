// Package registry runs plugin resolution once per process and publishes the
// result as an immutable Snapshot.
//
// A Registry ties the pipeline together: descriptors come from a
// plugins.Source, the persisted disabled set from a disabled.Store, the
// resolver filters, cascades and orders them, and the loader composer builds
// one loading unit per surviving plugin. Init runs the pipeline at most once;
// concurrent callers wait for the first run and share its outcome.
//
//	reg := registry.New(source, store,
//		registry.WithBuild("241.15989"),
//		registry.WithLogger(logger),
//	)
//	snap, err := reg.Init(ctx)
//	if err != nil {
//		return err // core plugin missing or discovery failed
//	}
//	for _, rec := range snap.Plugins() {
//		fmt.Println(rec.ID())
//	}
//	fmt.Println(snap.Diagnostics())
//
// Handlers exposes a snapshot over a read-only JSON API built on gorilla/mux.
package registry
