package storage

import (
	"bytes"
	"container/list"
	"sync"
)

// MediaCache maps source ids to assets for the lifetime of the process.
// With maxEntries == 0 it grows without bound; otherwise the least recently
// written entry is evicted once the limit is exceeded.
type MediaCache struct {
	maxEntries int

	mu    sync.RWMutex
	order *list.List
	items map[string]*list.Element
}

func NewMediaCache(maxEntries int) *MediaCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &MediaCache{
		maxEntries: maxEntries,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Bounded reports whether an eviction limit is configured.
func (c *MediaCache) Bounded() bool {
	return c.maxEntries > 0
}

// Put inserts or overwrites by source id and returns the evicted id, if any.
// The cache keeps asset.Data without copying.
func (c *MediaCache) Put(asset MediaAsset) (evicted string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[asset.SourceID]; ok {
		elem.Value = asset
		c.order.MoveToBack(elem)
		return ""
	}

	c.items[asset.SourceID] = c.order.PushBack(asset)

	if c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Front()
		old := c.order.Remove(oldest).(MediaAsset)
		delete(c.items, old.SourceID)
		return old.SourceID
	}
	return ""
}

// Get returns a copy of the cached asset; callers cannot mutate the cached bytes.
func (c *MediaCache) Get(sourceID string) (MediaAsset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elem, ok := c.items[sourceID]
	if !ok {
		return MediaAsset{}, false
	}
	asset := elem.Value.(MediaAsset)
	asset.Data = bytes.Clone(asset.Data)
	return asset, true
}

func (c *MediaCache) Delete(sourceID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[sourceID]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.items, sourceID)
	return true
}

// Keys lists source ids from the oldest write to the newest.
func (c *MediaCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(MediaAsset).SourceID)
	}
	return keys
}

func (c *MediaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
