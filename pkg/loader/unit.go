package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrNotFound is returned when no root reachable from a unit holds the name
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidName is returned for names that are not slash-separated relative paths
	ErrInvalidName = errors.New("invalid resource name")
)

// DefaultCacheSize is the number of positive lookups each unit remembers
const DefaultCacheSize = 256

// Lookup results passed to a LookupObserver
const (
	LookupHit      = "hit"
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupInvalid  = "invalid"
)

// LookupObserver is notified of the outcome of every Resolve call
type LookupObserver func(result string)

// Resource is a named file found under one of a unit's roots
type Resource struct {
	Name string `json:"name"` // requested name
	Path string `json:"path"` // absolute file path
	Unit string `json:"unit"` // id of the unit whose root holds the file
}

// Open opens the resource for reading
func (r *Resource) Open() (*os.File, error) {
	return os.Open(r.Path)
}

// Unit is a loading unit: an ordered set of code roots plus an ordered list
// of parent units consulted after its own roots.
type Unit struct {
	id       string
	mu       sync.RWMutex
	roots    []string
	parents  []*Unit
	cache    *lru.Cache[string, *Resource]
	observer LookupObserver

	cacheSize int
}

// UnitOption configures a unit
type UnitOption func(*Unit)

// WithCacheSize sets the number of cached positive lookups
func WithCacheSize(size int) UnitOption {
	return func(u *Unit) {
		if size > 0 {
			u.cacheSize = size
		}
	}
}

// WithLookupObserver reports each lookup result to fn
func WithLookupObserver(fn LookupObserver) UnitOption {
	return func(u *Unit) {
		u.observer = fn
	}
}

// NewUnit creates a unit. Roots are used as given; callers canonicalize them
// first (see CanonicalRoots).
func NewUnit(id string, roots []string, parents []*Unit, opts ...UnitOption) *Unit {
	u := &Unit{
		id:        id,
		roots:     append([]string(nil), roots...),
		parents:   append([]*Unit(nil), parents...),
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(u)
	}
	// lru.New only fails for a non-positive size
	u.cache, _ = lru.New[string, *Resource](u.cacheSize)
	return u
}

// ID returns the id of the plugin (or bootstrap) owning the unit
func (u *Unit) ID() string { return u.id }

// Roots returns a copy of the unit's own roots
func (u *Unit) Roots() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return append([]string(nil), u.roots...)
}

// Parents returns a copy of the unit's parents in lookup order
func (u *Unit) Parents() []*Unit {
	return append([]*Unit(nil), u.parents...)
}

// ParentIDs returns the ids of the unit's parents in lookup order
func (u *Unit) ParentIDs() []string {
	ids := make([]string, 0, len(u.parents))
	for _, p := range u.parents {
		ids = append(ids, p.id)
	}
	return ids
}

// AddRoots appends roots not already present and returns the ones it added.
// Used for the shared unit.
func (u *Unit) AddRoots(roots ...string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()

	var added []string
	for _, root := range roots {
		if !contains(u.roots, root) {
			u.roots = append(u.roots, root)
			added = append(added, root)
		}
	}
	u.cache.Purge()
	return added
}

// RemoveRoots drops the given roots and purges the lookup cache
func (u *Unit) RemoveRoots(roots ...string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	kept := u.roots[:0]
	for _, root := range u.roots {
		if !contains(roots, root) {
			kept = append(kept, root)
		}
	}
	u.roots = kept
	u.cache.Purge()
}

// Resolve finds name in the unit's own roots, then in each parent depth-first
// in order. Every unit is consulted at most once per lookup.
func (u *Unit) Resolve(name string) (*Resource, error) {
	if !fs.ValidPath(name) || name == "." {
		u.observe(LookupInvalid)
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if res, ok := u.cache.Get(name); ok {
		u.observe(LookupHit)
		return res, nil
	}

	res := u.search(name, make(map[*Unit]bool))
	if res == nil {
		u.observe(LookupNotFound)
		return nil, fmt.Errorf("%w: %q in unit %q", ErrNotFound, name, u.id)
	}

	u.cache.Add(name, res)
	u.observe(LookupFound)
	return res, nil
}

func (u *Unit) search(name string, visited map[*Unit]bool) *Resource {
	if visited[u] {
		return nil
	}
	visited[u] = true

	if res := u.local(name); res != nil {
		return res
	}
	for _, p := range u.parents {
		if res := p.search(name, visited); res != nil {
			return res
		}
	}
	return nil
}

// local looks in the unit's own roots only
func (u *Unit) local(name string) *Resource {
	u.mu.RLock()
	defer u.mu.RUnlock()

	rel := filepath.FromSlash(name)
	for _, root := range u.roots {
		path := filepath.Join(root, rel)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		return &Resource{Name: name, Path: path, Unit: u.id}
	}
	return nil
}

func (u *Unit) observe(result string) {
	if u.observer != nil {
		u.observer(result)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
