/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package store

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"
)

// CachedKey is the in-memory summary of a key's append cursor and
// not-yet-compacted data objects, kept so every Append doesn't need to
// re-list the key's objects from scratch.
type CachedKey struct {
	Metadata            KeyMetadata
	UncompactedObjects  uint64
	UncompactedRecords  uint64
	UncompactedSize     uint64
	PriorStartOffset    uint64
	Watermark           Watermark
}

type cacheKey struct {
	keyspace string
	key      string
}

// KeyLoader reconstructs a CachedKey from the object store, used on a cold
// cache miss.
type KeyLoader func(keyspace, key string) (CachedKey, error)

// KeyStateCache is a least-recently-used, size-bounded cache mapping
// (keyspace,key) to its CachedKey, with cold-miss loads deduplicated across
// concurrent callers for the same key.
type KeyStateCache struct {
	mu     sync.Mutex
	lru    *lru.LRU[cacheKey, CachedKey]
	load   KeyLoader
	single singleflight.Group
}

// NewKeyStateCache builds a cache bounded to maxCachedKeys entries (at least
// one is always kept, matching the original "never evict below one" rule),
// backed by loader for cold misses.
func NewKeyStateCache(maxCachedKeys int, loader KeyLoader) *KeyStateCache {
	if maxCachedKeys < 1 {
		maxCachedKeys = 1
	}
	l, _ := lru.NewLRU[cacheKey, CachedKey](maxCachedKeys, nil)
	return &KeyStateCache{lru: l, load: loader}
}

// GetOrLoad returns the cached state for (keyspace,key), loading it via the
// configured loader on a miss. Concurrent misses for the same key collapse
// into a single loader call.
func (c *KeyStateCache) GetOrLoad(keyspace, key string) (CachedKey, error) {
	mapKey := cacheKey{keyspace, key}

	c.mu.Lock()
	if v, ok := c.lru.Get(mapKey); ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err, _ := c.single.Do(keyspace+"\x00"+key, func() (any, error) {
		// re-check: another goroutine may have populated it while we queued on singleflight
		c.mu.Lock()
		if v, ok := c.lru.Get(mapKey); ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		loaded, err := c.load(keyspace, key)
		if err != nil {
			return CachedKey{}, err
		}
		c.mu.Lock()
		c.lru.Add(mapKey, loaded)
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return CachedKey{}, err
	}
	return v.(CachedKey), nil
}

// Set overwrites the cached state for (keyspace,key), as a writer does after
// a successful append or compaction.
func (c *KeyStateCache) Set(keyspace, key string, value CachedKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(cacheKey{keyspace, key}, value)
}

func (k cacheKey) String() string { return fmt.Sprintf("%s/%s", k.keyspace, k.key) }
