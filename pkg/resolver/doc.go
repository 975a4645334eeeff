// Package resolver turns discovered plugin records into a load order.
//
// Resolution runs in three stages:
//
//  1. Filter drops descriptors without id, repeated ids, plugins outside an
//     active Selection, user-disabled plugins and plugins whose build range
//     excludes the current build.
//  2. Cascade removes candidates with an unavailable required dependency,
//     repeating until a full pass removes nothing. Ids removed in a round are
//     appended to the Persister before the next round.
//  3. The dependency graph of the survivors yields the order: providers before
//     consumers, discovery order between independent plugins. Cycles are
//     tolerated and reported as warnings.
//
// Every non-fatal condition is collected in Diagnostics and unwraps to one of
// the Err* sentinels. Only a missing core plugin fails Resolve.
//
//	r := resolver.New(resolver.Options{Build: "231", Disabled: disabled}, store, log)
//	res, err := r.Resolve(ctx, plugins.NewRecords(descs))
//	if errors.Is(err, resolver.ErrCoreMissing) {
//		return err
//	}
//	for _, rec := range res.Order {
//		fmt.Println(rec.ID())
//	}
package resolver
