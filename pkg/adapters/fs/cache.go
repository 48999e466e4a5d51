package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// indexEntry is what the index remembers about one post document.
type indexEntry struct {
	PostID       string    `json:"post_id"`
	Instances    []string  `json:"instances,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// index is the persistent cache state.
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"` // key is the relative path, e.g. "posts/42.md"
	dirty   bool
	mu      sync.RWMutex
}

// cache maps block instances to the post documents that hold them, so
// attribute reads by instance ID do not scan every post. It is rebuilt from
// disk on Initialize and only trusted for files whose mtime has not moved.
type cache struct {
	Path       string
	index      *index
	byInstance map[string]string // instance ID -> post ID
}

func newCache(root, systemDir string) *cache {
	return &cache{
		Path: filepath.Join(root, systemDir, "index.json"),
		index: &index{
			Version: 1,
			Entries: make(map[string]*indexEntry),
		},
		byInstance: make(map[string]string),
	}
}

// Load reads the index from disk. A missing or corrupt index starts empty.
func (c *cache) Load() error {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(data, c.index); err != nil || c.index.Entries == nil {
		c.index.Entries = make(map[string]*indexEntry)
	}
	c.index.dirty = false
	c.reverse()
	return nil
}

// Save persists the index if it changed since the last save.
func (c *cache) Save() error {
	c.index.mu.RLock()
	if !c.index.dirty {
		c.index.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.index.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := writeFileAtomic(c.Path, data, 0o644); err != nil {
		return err
	}

	c.index.mu.Lock()
	c.index.dirty = false
	c.index.mu.Unlock()
	return nil
}

// Get returns the entry for relPath if it is still fresh for mtime.
func (c *cache) Get(relPath string, mtime time.Time) (*indexEntry, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	entry, ok := c.index.Entries[relPath]
	if !ok || !entry.LastModified.Equal(mtime) {
		return nil, false
	}
	return entry, true
}

// Peek returns the entry for relPath regardless of freshness.
func (c *cache) Peek(relPath string) (*indexEntry, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	entry, ok := c.index.Entries[relPath]
	return entry, ok
}

// Set records entry under relPath and updates the instance lookup.
func (c *cache) Set(relPath string, entry *indexEntry) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if prev, ok := c.index.Entries[relPath]; ok {
		for _, id := range prev.Instances {
			if c.byInstance[id] == prev.PostID {
				delete(c.byInstance, id)
			}
		}
	}
	c.index.Entries[relPath] = entry
	for _, id := range entry.Instances {
		c.byInstance[id] = entry.PostID
	}
	c.index.dirty = true
}

// Delete forgets relPath.
func (c *cache) Delete(relPath string) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if prev, ok := c.index.Entries[relPath]; ok {
		for _, id := range prev.Instances {
			if c.byInstance[id] == prev.PostID {
				delete(c.byInstance, id)
			}
		}
	}
	delete(c.index.Entries, relPath)
	c.index.dirty = true
}

// Prune removes entries that are not in keep.
func (c *cache) Prune(keep map[string]bool) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	for path := range c.index.Entries {
		if !keep[path] {
			delete(c.index.Entries, path)
			c.index.dirty = true
		}
	}
	c.reverse()
}

// PostOf returns the post holding instanceID.
func (c *cache) PostOf(instanceID string) (string, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	id, ok := c.byInstance[instanceID]
	return id, ok
}

// Len returns the number of indexed posts.
func (c *cache) Len() int {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	return len(c.index.Entries)
}

// reverse rebuilds byInstance. Callers hold the write lock.
func (c *cache) reverse() {
	c.byInstance = make(map[string]string)
	for _, e := range c.index.Entries {
		for _, id := range e.Instances {
			c.byInstance[id] = e.PostID
		}
	}
}
