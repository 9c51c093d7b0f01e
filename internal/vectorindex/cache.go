package vectorindex

import (
	"sync"
	"sync/atomic"
)

type snapshot struct {
	hash  string
	index *FlatIndex
}

type entry struct {
	build   sync.Mutex
	current atomic.Pointer[snapshot]
}

// Cache keeps one built index per key, valid only for the content hash it was
// built from. Rebuilds for a key are serialised; readers always see a complete
// index because entries are swapped whole.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

// Get returns the index for key when it was built from hash.
func (c *Cache) Get(key, hash string) (*FlatIndex, bool) {
	snap := c.entry(key).current.Load()
	if snap == nil || snap.hash != hash {
		return nil, false
	}
	return snap.index, true
}

// GetOrBuild returns the cached index for key and hash, calling build at most
// once per concurrent miss.
func (c *Cache) GetOrBuild(key, hash string, build func() (*FlatIndex, error)) (*FlatIndex, error) {
	if idx, ok := c.Get(key, hash); ok {
		return idx, nil
	}

	e := c.entry(key)
	e.build.Lock()
	defer e.build.Unlock()
	if snap := e.current.Load(); snap != nil && snap.hash == hash {
		return snap.index, nil
	}

	idx, err := build()
	if err != nil {
		return nil, err
	}
	e.current.Store(&snapshot{hash: hash, index: idx})
	return idx, nil
}

// Invalidate drops the cached index for key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.current.Store(nil)
	}
}

func (c *Cache) entry(key string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}
