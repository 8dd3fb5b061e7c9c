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
	"encoding/binary"
	"time"
)

// recordHeaderSize is the fixed header: offset(8) + timestamp(8) + nonce(16) + valueLen(4).
const recordHeaderSize = 36

type recordHeader struct {
	offset    uint64
	timestamp int64
	nonce     *Nonce
	length    uint32
}

// readNonce decodes the optional per-record nonce field, returning nil when
// the wire value is the NonceMax absence sentinel.
func readNonce(buf []byte) *Nonce {
	n := Nonce{Lo: binary.LittleEndian.Uint64(buf[0:8]), Hi: binary.LittleEndian.Uint64(buf[8:16])}
	if n == nonceMax {
		return nil
	}
	return &n
}

func appendNonce(buf []byte, n *Nonce) []byte {
	v := nonceMax
	if n != nil {
		v = *n
	}
	var tmp [16]byte
	binary.LittleEndian.PutUint64(tmp[0:8], v.Lo)
	binary.LittleEndian.PutUint64(tmp[8:16], v.Hi)
	return append(buf, tmp[:]...)
}

func deserializeRecordHeader(buf []byte, pos int) (recordHeader, error) {
	if pos < 0 || pos+recordHeaderSize > len(buf) {
		return recordHeader{}, errBadData("truncated record header")
	}
	h := recordHeader{
		offset:    binary.LittleEndian.Uint64(buf[pos : pos+8]),
		timestamp: int64(binary.LittleEndian.Uint64(buf[pos+8 : pos+16])),
		nonce:     readNonce(buf[pos+16 : pos+32]),
		length:    binary.LittleEndian.Uint32(buf[pos+32 : pos+36]),
	}
	return h, nil
}

// SerializedInsertion is the result of assigning sequential offsets to a
// batch of pending insertions and framing them into the on-disk record
// layout ready to become one data object's body.
type SerializedInsertion struct {
	FirstInsertOffset uint64
	LastInsertOffset  uint64
	NextOffset        uint64
	MinTimestamp      int64
	MaxTimestamp      int64
	Buffer            []byte
}

// SerializeInsertions assigns dense, ascending offsets starting at
// nextOffset to each insertion (in order) and frames them as
// `offset|timestamp|nonce|len(value)|value|len(total)`. inserts must be
// non-empty; callers filter empty batches before calling this.
func SerializeInsertions(inserts []Insertion, nextOffset uint64) SerializedInsertion {
	out := SerializedInsertion{
		FirstInsertOffset: nextOffset,
		MinTimestamp:      int64max,
		MaxTimestamp:      int64min,
	}
	offset := nextOffset
	for _, ins := range inserts {
		ts := ins.stampOrNow()
		if ts < out.MinTimestamp {
			out.MinTimestamp = ts
		}
		if ts > out.MaxTimestamp {
			out.MaxTimestamp = ts
		}
		var hdr [recordHeaderSize]byte
		binary.LittleEndian.PutUint64(hdr[0:8], offset)
		binary.LittleEndian.PutUint64(hdr[8:16], uint64(ts))
		copy(hdr[16:32], appendNonce(nil, ins.Nonce))
		binary.LittleEndian.PutUint32(hdr[32:36], uint32(len(ins.Value)))
		out.Buffer = append(out.Buffer, hdr[:]...)
		out.Buffer = append(out.Buffer, ins.Value...)
		var total [4]byte
		binary.LittleEndian.PutUint32(total[:], uint32(recordHeaderSize+len(ins.Value)))
		out.Buffer = append(out.Buffer, total[:]...)
		out.LastInsertOffset = offset
		offset++
	}
	out.NextOffset = offset
	return out
}

// stampOrNow stamps a nil Timestamp to ingest time rather than persisting
// epoch 0.
func (i Insertion) stampOrNow() int64 {
	if i.Timestamp != nil {
		return *i.Timestamp
	}
	return time.Now().UnixMilli()
}

// RecordFilter bounds a scan over a data object's records. Direction
// determines whether unset fields saturate at their min (Forward) or max
// (Backward) so that an unconstrained scan still composes with KeyPath.Matches.
type RecordFilter struct {
	Defined        bool
	MaxSize        uint64
	StartOffset    uint64
	StartTimestamp int64
	StartNonce     Nonce
	Direction      Direction
}

const int64min = int64(-1) << 63
const int64max = int64(1)<<63 - 1

// NewRecordFilterFromPosition builds a filter from a StartPosition, a page
// size, and a direction, saturating whichever fields the position leaves
// unconstrained.
func NewRecordFilterFromPosition(pos StartPosition, maxSize uint64, dir Direction) RecordFilter {
	f := RecordFilter{MaxSize: maxSize, Direction: dir}
	switch dir {
	case Forward:
		f.StartOffset, f.StartTimestamp, f.StartNonce = 0, int64min, nonceMin
	case Backward:
		f.StartOffset, f.StartTimestamp, f.StartNonce = ^uint64(0), int64max, nonceMax
	}
	switch pos.kind {
	case startFirst:
		// leave saturated defaults, Defined stays false
	case startOffset:
		f.StartOffset = pos.offset
		f.Defined = true
	case startTimestamp:
		f.StartTimestamp = pos.timestamp
		f.Defined = true
	case startNonce:
		f.StartNonce = pos.nonce
		f.Defined = true
	}
	return f
}

// RecordFilterForOffset builds a filter anchored purely on an offset, used
// by the reader when resuming from a continuation token. The offset comes
// from the token, not from a caller's start position, so the filter is not
// Defined and nonce-less records at the start of a resumed page are kept.
func RecordFilterForOffset(startOffset uint64, maxSize uint64, dir Direction) RecordFilter {
	f := RecordFilter{MaxSize: maxSize, Direction: dir, StartOffset: startOffset}
	switch dir {
	case Forward:
		f.StartTimestamp, f.StartNonce = int64min, nonceMin
	case Backward:
		f.StartTimestamp, f.StartNonce = int64max, nonceMax
	}
	return f
}

// recordInRange applies the record-level predicate: a record without a nonce
// is only accepted once the scan has already matched at least one prior
// record, unless the filter carries no defined start position at all
// (foundFirstMatch tracks "has any record matched yet", not nonce-specific
// state — it is what lets an unfiltered scan accept nonce-less records from
// the very first record).
func recordInRange(h recordHeader, f RecordFilter, foundFirstMatch bool) bool {
	switch f.Direction {
	case Forward:
		if h.offset < f.StartOffset {
			return false
		}
		if h.timestamp < f.StartTimestamp {
			return false
		}
		if h.nonce == nil {
			if f.Defined && !foundFirstMatch {
				return false
			}
		} else if h.nonce.Less(f.StartNonce) {
			return false
		}
		return true
	default: // Backward
		if h.offset > f.StartOffset {
			return false
		}
		if h.timestamp > f.StartTimestamp {
			return false
		}
		if h.nonce == nil {
			if f.Defined && !foundFirstMatch {
				return false
			}
		} else if f.StartNonce.Less(*h.nonce) {
			return false
		}
		return true
	}
}

// DeserializeAndFilter scans buffer for records matching filter, stopping
// once filter.MaxSize records have been collected or the buffer is
// exhausted. continuationOffset anchors the scan: for a forward scan, only
// records with offset >= continuationOffset are considered; for a backward
// scan, only records with offset <= continuationOffset. It returns the
// matching records and whether the scan reached the end of the buffer
// (false means the page was cut short by MaxSize, and the reader must
// re-anchor on the last matched record's offset rather than the object's
// overall bound).
func DeserializeAndFilter(buffer []byte, filter RecordFilter, continuationOffset uint64) ([]Record, bool, error) {
	var records []Record

	if filter.Direction == Forward {
		pos := 0
		for pos < len(buffer) && uint64(len(records)) < filter.MaxSize {
			h, err := deserializeRecordHeader(buffer, pos)
			if err != nil {
				return nil, false, err
			}
			pos += recordHeaderSize
			if h.offset >= continuationOffset && recordInRange(h, filter, len(records) > 0) {
				records = append(records, extractRecordValue(buffer, pos, h))
			}
			pos += int(h.length) + 4
		}
		return records, pos == len(buffer), nil
	}

	pos := len(buffer)
	for pos > 0 && uint64(len(records)) < filter.MaxSize {
		if pos < 4 {
			return nil, false, errBadData("truncated trailing length")
		}
		total := binary.LittleEndian.Uint32(buffer[pos-4 : pos])
		pos -= int(total)
		h, err := deserializeRecordHeader(buffer, pos)
		if err != nil {
			return nil, false, err
		}
		if h.offset <= continuationOffset && recordInRange(h, filter, len(records) > 0) {
			records = append(records, extractRecordValue(buffer, pos+recordHeaderSize, h))
		}
	}
	return records, pos == 0, nil
}

func extractRecordValue(buffer []byte, valueStart int, h recordHeader) Record {
	value := make([]byte, h.length)
	copy(value, buffer[valueStart:valueStart+int(h.length)])
	return Record{Offset: h.offset, Timestamp: h.timestamp, Nonce: h.nonce, Value: value}
}

// NonceFilterResult is the outcome of deduplicating a pending batch against
// the next expected nonce before assigning offsets.
type NonceFilterResult struct {
	Records        []Insertion
	FirstNonce     *Nonce
	FirstPotential Nonce // next_nonce observed before filtering, used as first_nonce when no record in the batch carried one
	NextNonce      Nonce
}

// NonceFilter drops any insertion whose nonce is present and strictly less
// than nextNonce (already seen, a retried producer write), and advances
// nextNonce past the highest nonce kept. Insertions without a nonce always
// pass through unfiltered.
func NonceFilter(inserts []Insertion, nextNonce Nonce) NonceFilterResult {
	result := NonceFilterResult{FirstPotential: nextNonce, NextNonce: nextNonce}
	for _, ins := range inserts {
		if ins.Nonce != nil {
			if ins.Nonce.Less(result.NextNonce) {
				continue
			}
			if result.FirstNonce == nil {
				n := *ins.Nonce
				result.FirstNonce = &n
			}
			result.NextNonce = ins.Nonce.Plus1()
		}
		result.Records = append(result.Records, ins)
	}
	return result
}
