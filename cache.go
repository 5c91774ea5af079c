package dryml

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheEntry holds the build instructions of one template. Entries are
// never modified after they are stored; a rebuild replaces them.
type CacheEntry struct {
	Path         string        `json:"path" yaml:"path"`
	ModTime      time.Time     `json:"modTime" yaml:"modTime"`
	Instructions []Instruction `json:"instructions" yaml:"instructions"`
	Modules      []ModuleRef   `json:"modules,omitempty" yaml:"modules,omitempty"`
	Source       string        `json:"-" yaml:"-"`
	BuiltAt      time.Time     `json:"builtAt" yaml:"builtAt"`
}

// fresh reports whether the entry was built from a source no older than
// mtime. A zero mtime is never fresh.
func (e *CacheEntry) fresh(mtime time.Time) bool {
	return !mtime.IsZero() && !e.ModTime.IsZero() && !mtime.After(e.ModTime)
}

func (e *CacheEntry) clone() *CacheEntry {
	c := *e
	c.Instructions = append([]Instruction(nil), e.Instructions...)
	c.Modules = append([]ModuleRef(nil), e.Modules...)
	return &c
}

// CacheStats is a snapshot of cache usage.
type CacheStats struct {
	Hits    int64 `json:"hits" yaml:"hits"`
	Misses  int64 `json:"misses" yaml:"misses"`
	Entries int   `json:"entries" yaml:"entries"`
}

// BuildCache maps template paths to their latest build instructions. It is
// safe for concurrent use; concurrent loads of the same path and mtime share
// one build.
type BuildCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	group   singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewBuildCache returns an empty cache.
func NewBuildCache() *BuildCache {
	return &BuildCache{entries: make(map[string]*CacheEntry)}
}

// Get returns a copy of the entry for path if it is fresh for mtime.
func (c *BuildCache) Get(path string, mtime time.Time) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok || !e.fresh(mtime) {
		return nil, false
	}
	return e.clone(), true
}

// Load returns the stored entry for path when it is fresh for mtime, and
// otherwise runs build and stores its result. cached reports whether build
// was skipped. A failed build leaves the cache untouched.
func (c *BuildCache) Load(path string, mtime time.Time, build func() (*CacheEntry, error)) (entry *CacheEntry, cached bool, err error) {
	if e, ok := c.Get(path, mtime); ok {
		c.hits.Add(1)
		return e, true, nil
	}
	c.misses.Add(1)

	if mtime.IsZero() {
		e, err := c.build(path, mtime, build)
		if err != nil {
			return nil, false, err
		}
		return e.clone(), false, nil
	}

	key := path + "@" + strconv.FormatInt(mtime.UnixNano(), 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent load may have stored the entry meanwhile.
		if e, ok := c.Get(path, mtime); ok {
			return e, nil
		}
		return c.build(path, mtime, build)
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*CacheEntry).clone(), false, nil
}

func (c *BuildCache) build(path string, mtime time.Time, build func() (*CacheEntry, error)) (*CacheEntry, error) {
	e, err := build()
	if err != nil {
		return nil, err
	}
	e.Path = path
	e.ModTime = mtime
	if e.BuiltAt.IsZero() {
		e.BuiltAt = time.Now()
	}
	c.store(e)
	return e, nil
}

// store replaces the entry for e.Path unless the stored one was built from
// a newer source.
func (c *BuildCache) store(e *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[e.Path]; ok && !e.ModTime.IsZero() && old.ModTime.After(e.ModTime) {
		return
	}
	c.entries[e.Path] = e.clone()
}

// Invalidate drops the entry for path and reports whether there was one.
func (c *BuildCache) Invalidate(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[path]
	delete(c.entries, path)
	return ok
}

// Clear drops all entries. Stats are kept.
func (c *BuildCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
}

// Len returns the number of cached entries.
func (c *BuildCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Paths returns the cached template paths in no particular order.
func (c *BuildCache) Paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for p := range c.entries {
		out = append(out, p)
	}
	return out
}

// Stats returns the hit and miss counters and the entry count.
func (c *BuildCache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.Len(),
	}
}
