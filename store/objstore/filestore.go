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
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	klstore "github.com/launix-de/klog/store"
)

// FileStore is an ObjectStore rooted at a directory on the local filesystem:
// one file per object key, directories created on demand. It exists for
// local development and as a test double that still exercises the real
// prefix/lexicographic-order LIST contract (unlike MemStore, which holds
// everything in a plain map and never touches a filesystem's own ordering).
type FileStore struct {
	baseDir string
}

// NewFileStore roots a FileStore at baseDir, creating it if necessary.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, klstore.NewIOError("creating %s: %v", baseDir, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

// Put implements store.ObjectStore.
func (s *FileStore) Put(key string, body []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0750); err != nil {
		return klstore.NewIOError("creating directory for %s: %v", key, err)
	}
	if err := os.WriteFile(p, body, 0640); err != nil {
		return klstore.NewIOError("writing %s: %v", key, err)
	}
	return nil
}

// Get implements store.ObjectStore.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	body, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, klstore.NewIOError("reading %s: %v", key, err)
	}
	return body, true, nil
}

// Delete implements store.ObjectStore.
func (s *FileStore) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return klstore.NewIOError("deleting %s: %v", key, err)
	}
	return nil
}

// ListPage implements store.ObjectStore by walking the whole tree under
// baseDir on every call. This is the right tradeoff for a development/test
// backend (simplicity, always-correct lexicographic order) and the wrong one
// for a production-scale store, which is exactly why S3Store exists.
func (s *FileStore) ListPage(prefix, startAfter, continuation string, maxResults int) (klstore.ListPageResult, error) {
	var keys []string
	err := filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return klstore.ListPageResult{}, klstore.NewIOError("listing %s: %v", prefix, err)
	}
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

	objects := make([]klstore.ListedObject, 0, len(page))
	for _, key := range page {
		info, err := os.Stat(s.path(key))
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		objects = append(objects, klstore.ListedObject{Key: key, Size: size})
	}

	result := klstore.ListPageResult{Objects: objects}
	if limit < len(keys) {
		last := page[len(page)-1]
		result.Continuation = &last
	}
	return result, nil
}

var _ klstore.ObjectStore = (*FileStore)(nil)
