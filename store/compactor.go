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

import "golang.org/x/sync/errgroup"

// checkCompaction merges uncompacted data objects behind the key's
// watermark once any of the three thresholds is crossed. The watermark only
// advances when the record or size threshold is crossed — a merge triggered
// purely by object count still runs (bounding LIST cost), but leaves the
// merged object pending for a future, larger compaction.
func (w *ObjectWriter) checkCompaction(keyspace, key string, kinfo CachedKey) (CachedKey, error) {
	if kinfo.UncompactedRecords < w.config.CompactRecordsThreshold &&
		kinfo.UncompactedObjects < w.config.CompactObjectsThreshold &&
		kinfo.UncompactedSize < w.config.CompactSizeThreshold {
		return kinfo, nil
	}

	advanceWatermark := kinfo.UncompactedRecords >= w.config.CompactRecordsThreshold ||
		kinfo.UncompactedSize >= w.config.CompactSizeThreshold

	dataPrefixStr := dataPrefix(w.config.ObjectPrefix, keyspace, key)
	startFrom := afterWatermarkPrefix(w.config.ObjectPrefix, keyspace, key, kinfo.Watermark)
	toMerge, err := ListExhaustive(w.os, dataPrefixStr, startFrom, 1000)
	if err != nil {
		return CachedKey{}, err
	}
	if len(toMerge) == 0 {
		return kinfo, nil
	}

	firstKey, err := ParseKeyPathOrError(toMerge[0].Key)
	if err != nil {
		return CachedKey{}, err
	}
	lastKey, err := ParseKeyPathOrError(toMerge[len(toMerge)-1].Key)
	if err != nil {
		return CachedKey{}, err
	}

	if len(toMerge) == 1 {
		// merging a single object would just delete-then-recreate itself; only the
		// watermark needs to move, since this object was already a complete batch
		newWatermark := Watermark{Offset: firstKey.FirstOffset}
		if err := w.os.Put(watermarkPath(w.config.ObjectPrefix, keyspace, key), newWatermark.serialize()); err != nil {
			return CachedKey{}, err
		}
		return CachedKey{
			Metadata:         kinfo.Metadata,
			PriorStartOffset: kinfo.PriorStartOffset,
			Watermark:        newWatermark,
		}, nil
	}

	bodies := make([][]byte, len(toMerge))
	g := new(errgroup.Group)
	g.SetLimit(8)
	for i, obj := range toMerge {
		i, obj := i, obj
		g.Go(func() error {
			body, ok, err := w.os.Get(obj.Key)
			if err != nil {
				return err
			}
			if !ok {
				return errBadData("object not found: %s", obj.Key)
			}
			bodies[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CachedKey{}, err
	}

	var buffer []byte
	for _, body := range bodies {
		buffer = append(buffer, body...)
	}

	mergedPath := KeyPath{
		FirstOffset:      firstKey.FirstOffset,
		LastOffset:       lastKey.LastOffset,
		MinTimestamp:     firstKey.MinTimestamp,
		MaxTimestamp:     lastKey.MaxTimestamp,
		FirstNonce:       firstKey.FirstNonce,
		NextNonce:        lastKey.NextNonce,
		Size:             uint64(len(buffer)),
		PriorStartOffset: firstKey.PriorStartOffset,
	}
	if err := w.os.Put(mergedPath.ToPath(w.config.ObjectPrefix, keyspace, key), buffer); err != nil {
		return CachedKey{}, err
	}

	for _, obj := range toMerge {
		if err := w.os.Delete(obj.Key); err != nil {
			return CachedKey{}, err
		}
	}

	if advanceWatermark {
		newWatermark := Watermark{Offset: firstKey.FirstOffset}
		if err := w.os.Put(watermarkPath(w.config.ObjectPrefix, keyspace, key), newWatermark.serialize()); err != nil {
			return CachedKey{}, err
		}
		return CachedKey{
			Metadata:         kinfo.Metadata,
			PriorStartOffset: firstKey.FirstOffset,
			Watermark:        newWatermark,
		}, nil
	}

	return CachedKey{
		Metadata:           kinfo.Metadata,
		UncompactedRecords: kinfo.UncompactedRecords,
		UncompactedObjects: 1,
		UncompactedSize:    kinfo.UncompactedSize,
		PriorStartOffset:   firstKey.FirstOffset,
		Watermark:          kinfo.Watermark,
	}, nil
}
