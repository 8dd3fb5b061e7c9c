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

package objstore

import (
	"sort"
	"strings"
	"sync"

	klstore "github.com/launix-de/klog/store"
)

// MemStore is an in-process ObjectStore backed by a plain map, guarded by a
// single RWMutex. It exists for unit tests that want no filesystem or
// network I/O while still exercising the real prefix/start-after/
// continuation-token LIST contract the other two backends implement.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string][]byte)}
}

// Put implements store.ObjectStore.
func (s *MemStore) Put(key string, body []byte) error {
	cp := make([]byte, len(body))
	copy(cp, body)
	s.mu.Lock()
	s.objects[key] = cp
	s.mu.Unlock()
	return nil
}

// Get implements store.ObjectStore.
func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.objects[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(body))
	copy(cp, body)
	return cp, true, nil
}

// Delete implements store.ObjectStore.
func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// CountPrefix reports how many objects currently have the given prefix, for
// tests asserting a compaction has bounded object count.
func (s *MemStore) CountPrefix(prefix string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			n++
		}
	}
	return n
}

// ListPage implements store.ObjectStore.
func (s *MemStore) ListPage(prefix, startAfter, continuation string, maxResults int) (klstore.ListPageResult, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(keys)

	after := startAfter
	if continuation != "" {
		after = continuation
	}
	start := 0
	if after != "" {
		start = sort.SearchStrings(keys, after)
		if start < len(keys) && keys[start] == after {
			start++
		}
	}
	keys = keys[start:]

	limit := maxResults
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}
	page := keys[:limit]

	s.mu.RLock()
	objects := make([]klstore.ListedObject, 0, len(page))
	for _, key := range page {
		objects = append(objects, klstore.ListedObject{Key: key, Size: int64(len(s.objects[key]))})
	}
	s.mu.RUnlock()

	result := klstore.ListPageResult{Objects: objects}
	if limit < len(keys) {
		last := page[len(page)-1]
		result.Continuation = &last
	}
	return result, nil
}

var _ klstore.ObjectStore = (*MemStore)(nil)
