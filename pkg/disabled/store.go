// Package disabled persists the ids of plugins that must not load.
//
// The store is append-only during resolution: the cascade appends every
// plugin it disables so the next start skips it without re-evaluating.
// Backends:
//
//   - FileStore: one id per line in a text file (the default)
//   - RedisStore: a Redis set, shared between hosts
//   - SQLStore: a table in SQLite or PostgreSQL
package disabled

import (
	"context"
	"sort"
)

// Store loads and appends disabled plugin ids
type Store interface {
	// Load returns the persisted set of disabled ids
	Load(ctx context.Context) (map[string]bool, error)

	// Append adds ids to the set; ids already present are ignored
	Append(ctx context.Context, ids ...string) error

	// Close releases the backend
	Close() error
}

// SortedIDs returns the members of a set in lexical order
func SortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
