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
	"log"
	"time"

	"github.com/google/uuid"
)

// ObjectWriter is the synchronous Writer implementation: every Append is a
// single object-store PUT plus whatever compaction it happens to trigger,
// with no asynchronous batching of its own (see the batching package for
// that layer). Binding one key to a single ObjectWriter instance (or to one
// batching lane) at a time is the caller's responsibility; nothing here
// defends against concurrent writers racing the same key.
type ObjectWriter struct {
	os     ObjectStore
	config Config
	cache  *KeyStateCache
}

// NewObjectWriter builds a writer over os using cfg's thresholds, with a
// fresh KeyState cache bounded to cfg.MaxCachedKeys.
func NewObjectWriter(os ObjectStore, cfg Config) *ObjectWriter {
	w := &ObjectWriter{os: os, config: cfg}
	w.cache = NewKeyStateCache(cfg.MaxCachedKeys, w.loadKey)
	return w
}

func (w *ObjectWriter) loadKey(keyspace, key string) (CachedKey, error) {
	wmPath := watermarkPath(w.config.ObjectPrefix, keyspace, key)
	wmBytes, ok, err := w.os.Get(wmPath)
	if err != nil {
		return CachedKey{}, err
	}
	var watermark Watermark
	haveWatermark := false
	if ok {
		watermark, err = watermarkFromBytes(wmBytes)
		if err != nil {
			return CachedKey{}, err
		}
		haveWatermark = true
	}

	dataPrefixStr := dataPrefix(w.config.ObjectPrefix, keyspace, key)
	startFrom := ""
	if haveWatermark {
		startFrom = watermarkObjectPrefix(w.config.ObjectPrefix, keyspace, key, watermark)
	}
	listed, err := ListExhaustive(w.os, dataPrefixStr, startFrom, 1000)
	if err != nil {
		return CachedKey{}, err
	}
	if len(listed) == 0 {
		return CachedKey{
			Metadata:  KeyMetadata{NextOffset: 1, NextNonce: Nonce{}},
			Watermark: Watermark{Offset: 0},
		}, nil
	}

	var uncompactedRecords, uncompactedObjects, uncompactedSize uint64
	var nextNonce Nonce
	var nextOffset uint64
	var priorStartOffset uint64
	for i, obj := range listed {
		kp, err := ParseKeyPathOrError(obj.Key)
		if err != nil {
			return CachedKey{}, err
		}
		recordsInObject := kp.LastOffset - kp.FirstOffset + 1
		nextNonce = kp.NextNonce
		nextOffset = kp.LastOffset + 1
		priorStartOffset = kp.FirstOffset
		if i == 0 && recordsInObject >= w.config.CompactRecordsThreshold {
			// first listed object at (or after) the watermark is already a sealed batch: exclude from pending counts
			continue
		}
		uncompactedRecords += recordsInObject
		uncompactedSize += kp.Size
		uncompactedObjects++
	}
	if !haveWatermark {
		watermark = Watermark{Offset: 0}
	}
	return CachedKey{
		Metadata:           KeyMetadata{NextOffset: nextOffset, NextNonce: nextNonce},
		UncompactedObjects: uncompactedObjects,
		UncompactedRecords: uncompactedRecords,
		UncompactedSize:    uncompactedSize,
		PriorStartOffset:   priorStartOffset,
		Watermark:          watermark,
	}, nil
}

// CreateKeyspace writes a fresh keyspace configuration object, failing if
// one already exists.
func (w *ObjectWriter) CreateKeyspace(keyspace string) (CreatedKeyspace, error) {
	traceID := uuid.New()
	log.Printf("trace=%s create_keyspace keyspace=%s", traceID, keyspace)
	path := keyspaceConfigPath(w.config.ObjectPrefix, keyspace)
	_, exists, err := w.os.Get(path)
	if err != nil {
		return CreatedKeyspace{}, err
	}
	if exists {
		return CreatedKeyspace{}, &Error{Kind: KindKeyspaceAlreadyExists, Msg: keyspace}
	}
	content := fmt.Sprintf("[keyspace]\ncreated=%d", time.Now().UnixMilli())
	if err := w.os.Put(path, []byte(content)); err != nil {
		return CreatedKeyspace{}, err
	}
	return CreatedKeyspace{Keyspace: keyspace}, nil
}

// Append assigns dense offsets to records (after dropping already-seen
// nonces), writes them as one new data object, and checks whether the key
// has crossed a compaction threshold.
func (w *ObjectWriter) Append(keyspace, key string, records []Insertion) error {
	kinfo, err := w.cache.GetOrLoad(keyspace, key)
	if err != nil {
		return err
	}

	filtered := NonceFilter(records, kinfo.Metadata.NextNonce)
	if len(filtered.Records) == 0 {
		return nil
	}

	serialized := SerializeInsertions(filtered.Records, kinfo.Metadata.NextOffset)

	firstNonce := filtered.FirstPotential
	if filtered.FirstNonce != nil {
		firstNonce = *filtered.FirstNonce
	}
	objectKeyPath := KeyPath{
		FirstOffset:      serialized.FirstInsertOffset,
		LastOffset:       serialized.LastInsertOffset,
		MinTimestamp:     serialized.MinTimestamp,
		MaxTimestamp:     serialized.MaxTimestamp,
		FirstNonce:       firstNonce,
		NextNonce:        filtered.NextNonce,
		Size:             uint64(len(serialized.Buffer)),
		PriorStartOffset: kinfo.PriorStartOffset,
	}
	objectKey := objectKeyPath.ToPath(w.config.ObjectPrefix, keyspace, key)
	if err := w.os.Put(objectKey, serialized.Buffer); err != nil {
		return err
	}

	kinfo.Metadata.NextNonce = filtered.NextNonce
	kinfo.Metadata.NextOffset = serialized.NextOffset
	kinfo.UncompactedRecords += uint64(len(filtered.Records))
	kinfo.UncompactedSize += uint64(len(serialized.Buffer))
	kinfo.UncompactedObjects++
	kinfo.PriorStartOffset = serialized.FirstInsertOffset

	kinfo, err = w.checkCompaction(keyspace, key, kinfo)
	if err != nil {
		return err
	}

	w.cache.Set(keyspace, key, kinfo)
	return nil
}

// FlushKey is a no-op: every Append is already synchronously durable.
func (w *ObjectWriter) FlushKey(keyspace, key string) error { return nil }

// FlushAll is a no-op for the same reason as FlushKey.
func (w *ObjectWriter) FlushAll() error { return nil }

// DutyCycle is a no-op: this writer has no scheduled background work.
func (w *ObjectWriter) DutyCycle() error { return nil }

var _ Writer = (*ObjectWriter)(nil)
