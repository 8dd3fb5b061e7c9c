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
	"strconv"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/ini.v1"
)

// Config holds the thresholds that govern one store's cache sizing and
// compaction behavior. It is read from the "[s3]" section of the store's INI
// configuration file (see LoadConfig); a keyspace's own configuration object
// holds only its "[keyspace]" section.
type Config struct {
	ObjectPrefix            string
	MaxCachedKeys           int
	CompactRecordsThreshold uint64
	CompactSizeThreshold    uint64
	CompactObjectsThreshold uint64
	DefaultMaxResults       uint64
}

// DefaultConfig returns the same defaults as the original implementation:
// 100k cached keys, compaction at 1000 records or 1MiB or 100 pending
// objects, and 1000 records per page when a caller doesn't ask for fewer.
func DefaultConfig() Config {
	return Config{
		MaxCachedKeys:           100 * 1024,
		CompactRecordsThreshold: 1000,
		CompactSizeThreshold:    1024 * 1024,
		CompactObjectsThreshold: 100,
		DefaultMaxResults:       1000,
	}
}

// LoadConfig reads Config from the "[s3]" section of an already-parsed INI
// file. Byte-size fields accept either a bare integer or a human-readable
// size string ("1MiB", "512KB").
func LoadConfig(file *ini.File) (Config, error) {
	section, err := file.GetSection("s3")
	if err != nil {
		return Config{}, errBadConfig("[s3] config missing")
	}
	cfg := DefaultConfig()

	if section.HasKey("object_prefix") {
		cfg.ObjectPrefix = section.Key("object_prefix").String()
	}
	if section.HasKey("max_cached_keys") {
		v, err := strconv.Atoi(section.Key("max_cached_keys").String())
		if err != nil {
			return Config{}, errBadConfig("s3 max_cached_keys")
		}
		cfg.MaxCachedKeys = v
	}
	if section.HasKey("compact_records_threshold") {
		v, err := strconv.ParseUint(section.Key("compact_records_threshold").String(), 10, 64)
		if err != nil {
			return Config{}, errBadConfig("s3 compact_records_threshold")
		}
		cfg.CompactRecordsThreshold = v
	}
	if section.HasKey("compact_size_threshold") {
		v, err := parseByteSize(section.Key("compact_size_threshold").String())
		if err != nil {
			return Config{}, errBadConfig("s3 compact_size_threshold")
		}
		cfg.CompactSizeThreshold = v
	}
	if section.HasKey("compact_objects_threshold") {
		v, err := strconv.ParseUint(section.Key("compact_objects_threshold").String(), 10, 64)
		if err != nil {
			return Config{}, errBadConfig("s3 compact_objects_threshold")
		}
		cfg.CompactObjectsThreshold = v
	}
	if section.HasKey("default_page_size") {
		v, err := strconv.ParseUint(section.Key("default_page_size").String(), 10, 64)
		if err != nil {
			return Config{}, errBadConfig("s3 default_page_size")
		}
		cfg.DefaultMaxResults = v
	}
	return cfg, nil
}

// parseByteSize accepts a plain integer (bytes) or a human-readable size
// string such as "1MiB"/"512KB", falling back from the latter to the former.
func parseByteSize(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	v, err := units.RAMInBytes(s)
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// keyspaceMetadataFromINI reads the "[keyspace]" section's `created` key,
// the only field a keyspace's own configuration object stores.
func keyspaceMetadataFromINI(buffer []byte) (KeyspaceMetadata, error) {
	file, err := ini.Load(buffer)
	if err != nil {
		return KeyspaceMetadata{}, errBadData("invalid keyspace config: %v", err)
	}
	section, err := file.GetSection("keyspace")
	if err != nil {
		return KeyspaceMetadata{}, errBadData("missing [keyspace] in config")
	}
	if !section.HasKey("created") {
		return KeyspaceMetadata{}, errBadData("missing keyspace created_timestamp")
	}
	created, err := section.Key("created").Int64()
	if err != nil {
		return KeyspaceMetadata{}, errBadData("invalid keyspace created_timestamp")
	}
	return KeyspaceMetadata{CreatedTimestamp: created}, nil
}

// ReloadableConfig watches an INI file on disk and atomically swaps in a
// freshly parsed, validated Config whenever it changes, so compaction and
// cache-sizing thresholds can be tuned without restarting the process.
type ReloadableConfig struct {
	mu      sync.RWMutex
	current Config
	watcher *fsnotify.Watcher
}

// WatchReload parses path once synchronously, then watches it for writes,
// re-parsing and swapping in the new Config on each change. onError (if
// non-nil) is called with any parse error on a reload; the previously loaded
// Config is kept in that case. Call Close to stop watching.
func WatchReload(path string, onError func(error)) (*ReloadableConfig, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, errBadConfig("loading %s: %v", path, err)
	}
	cfg, err := LoadConfig(file)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errIO("creating config watcher: %v", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, errIO("watching %s: %v", path, err)
	}
	rc := &ReloadableConfig{current: cfg, watcher: watcher}
	go rc.run(path, onError)
	return rc, nil
}

func (rc *ReloadableConfig) run(path string, onError func(error)) {
	for {
		select {
		case event, ok := <-rc.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// editors often replace-then-rewrite; a brief settle avoids reading a half-written file
			time.Sleep(50 * time.Millisecond)
			file, err := ini.Load(path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			cfg, err := LoadConfig(file)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			rc.mu.Lock()
			rc.current = cfg
			rc.mu.Unlock()
		case err, ok := <-rc.watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Current returns the most recently loaded Config.
func (rc *ReloadableConfig) Current() Config {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.current
}

// Close stops watching the config file.
func (rc *ReloadableConfig) Close() error {
	return rc.watcher.Close()
}
