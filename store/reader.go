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
	"math/big"
	"regexp"
	"strconv"
	"sync/atomic"
)

const maxUint64 = ^uint64(0)

// ReadStats accumulates the object-store traffic a reader has generated
// across every page it has served: how many LIST/GET calls it made, how many
// bytes it pulled down, and how often a continuation token could not be
// followed directly and a fresh search was run (because a concurrent
// compaction had removed the object it pointed at, or because nothing was
// listed past the token's anchor). It is cumulative for
// the lifetime of the ObjectReader, the way a process-wide counter would be.
type ReadStats struct {
	ListOperations     uint64
	ReadOperations     uint64
	ReadSizeTotal      uint64
	ContinuationMisses uint64
}

// ObjectReader is the Reader implementation paired with ObjectWriter: paging
// is stateless across calls beyond the opaque continuation token each page
// hands back, so many readers may share one object store concurrently.
type ObjectReader struct {
	os     ObjectStore
	config Config
	stats  ReadStats
}

// NewObjectReader builds a reader over os using cfg's page-size default.
func NewObjectReader(os ObjectStore, cfg Config) *ObjectReader {
	return &ObjectReader{os: os, config: cfg}
}

// Stats returns a snapshot of the traffic this reader has generated so far.
func (r *ObjectReader) Stats() ReadStats {
	return ReadStats{
		ListOperations:     atomic.LoadUint64(&r.stats.ListOperations),
		ReadOperations:     atomic.LoadUint64(&r.stats.ReadOperations),
		ReadSizeTotal:      atomic.LoadUint64(&r.stats.ReadSizeTotal),
		ContinuationMisses: atomic.LoadUint64(&r.stats.ContinuationMisses),
	}
}

func (r *ObjectReader) listPage(prefix, startAfter, continuation string, maxResults int) (ListPageResult, error) {
	page, err := r.os.ListPage(prefix, startAfter, continuation, maxResults)
	if err != nil {
		return ListPageResult{}, err
	}
	atomic.AddUint64(&r.stats.ListOperations, 1)
	return page, nil
}

// ReadKeyspaceMetadata reads a keyspace's configuration object.
func (r *ObjectReader) ReadKeyspaceMetadata(keyspace string) (KeyspaceMetadata, error) {
	path := keyspaceConfigPath(r.config.ObjectPrefix, keyspace)
	body, ok, err := r.os.Get(path)
	if err != nil {
		return KeyspaceMetadata{}, err
	}
	if !ok {
		return KeyspaceMetadata{}, &Error{Kind: KindKeyspaceNotFound, Msg: keyspace}
	}
	return keyspaceMetadataFromINI(body)
}

// ReadKeyMetadata returns the key's current append cursor, or nil if the key
// has never been written to. When a watermark exists it anchors the listing
// directly at the compacted position instead of scanning every object.
func (r *ObjectReader) ReadKeyMetadata(keyspace, key string) (*KeyMetadata, error) {
	wmPath := watermarkPath(r.config.ObjectPrefix, keyspace, key)
	wmBytes, haveWatermark, err := r.os.Get(wmPath)
	if err != nil {
		return nil, err
	}

	dp := dataPrefix(r.config.ObjectPrefix, keyspace, key)
	startFrom := ""
	if haveWatermark {
		watermark, err := watermarkFromBytes(wmBytes)
		if err != nil {
			return nil, err
		}
		startFrom = watermark.startFrom(r.config.ObjectPrefix, keyspace, key)
	}
	listed, err := ListExhaustive(r.os, dp, startFrom, 1000)
	if err != nil {
		return nil, err
	}
	if len(listed) == 0 {
		if haveWatermark {
			return nil, errBadData("%s is not pointing to any data", wmPath)
		}
		return nil, nil
	}
	kp, err := ParseKeyPathOrError(listed[len(listed)-1].Key)
	if err != nil {
		return nil, err
	}
	metadata := kp.ToMetadata()
	return &metadata, nil
}

// position is where a forward or backward scan currently stands: the next
// offset to be returned, and the offset to re-anchor the object listing at
// (the start of whatever object is expected to hold it).
type position struct {
	NextOffset        uint64
	AnchorStartOffset uint64
}

// startFrom returns the LIST start-after marker for the object expected to
// hold AnchorStartOffset. AnchorStartOffset is 0 only once a backward scan
// has stepped below offset 1; the "-1" below then wraps to maxUint64, whose
// "+1" in afterOffsetPrefix wraps back to 0, so the listing starts at the
// key's first object.
func (p position) startFrom(rootPrefix, keyspace, key string) string {
	return afterOffsetPrefix(rootPrefix, keyspace, key, p.AnchorStartOffset-1)
}

// collectOutcome is the result of one collection pass: the records gathered,
// the position to resume from (nil at end of stream), and whether the pass
// ended on a "this object should be here but isn't" concurrent-compaction
// race rather than a real end of stream.
type collectOutcome struct {
	Records       []Record
	Position      *position
	RequiresRetry bool
}

func outcomeFinished(records []Record) collectOutcome {
	return collectOutcome{Records: records}
}

func outcomeProgress(records []Record, lastPosition position, anchorStartOffset uint64) collectOutcome {
	if len(records) == 0 {
		return collectOutcome{Records: records, Position: &lastPosition}
	}
	p := position{NextOffset: records[len(records)-1].Offset + 1, AnchorStartOffset: anchorStartOffset}
	return collectOutcome{Records: records, Position: &p}
}

func outcomeMissing(records []Record, lastPosition position, anchorStartOffset uint64) collectOutcome {
	if len(records) == 0 {
		return collectOutcome{Records: records, Position: &lastPosition, RequiresRetry: true}
	}
	p := position{NextOffset: records[len(records)-1].Offset + 1, AnchorStartOffset: anchorStartOffset}
	return collectOutcome{Records: records, Position: &p, RequiresRetry: true}
}

func (o collectOutcome) continuation(dir Direction) *string {
	if o.Position == nil {
		return nil
	}
	s := formatContinuation(dir, *o.Position)
	return &s
}

var continuationRegexp = regexp.MustCompile(`^([fb]):(\d+):(\d+)$`)

func formatContinuation(dir Direction, p position) string {
	letter := "f"
	if dir == Backward {
		letter = "b"
	}
	return fmt.Sprintf("%s:%d:%d", letter, p.NextOffset, p.AnchorStartOffset)
}

func parseContinuation(s string) (Direction, position, error) {
	m := continuationRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, position{}, errInvalidContinuation(s)
	}
	var dir Direction
	switch m[1] {
	case "f":
		dir = Forward
	case "b":
		dir = Backward
	}
	nextOffset, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return 0, position{}, errInvalidContinuation(s)
	}
	anchor, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return 0, position{}, errInvalidContinuation(s)
	}
	return dir, position{NextOffset: nextOffset, AnchorStartOffset: anchor}, nil
}

// ReadFirstPage resolves start to a concrete position (via searchStartFrom)
// and collects from there. A continuation-race on the very first object is
// retried once before giving up, the same as ReadNextPage.
func (r *ObjectReader) ReadFirstPage(keyspace, key string, direction Direction, start StartPosition, pageSize *uint64) (Page, error) {
	maxResults := r.pageSizeOrDefault(pageSize)
	filter := NewRecordFilterFromPosition(start, maxResults, direction)

	outcome, err := r.collectFirstPage(keyspace, key, direction, filter)
	if err != nil {
		return Page{}, err
	}
	if outcome.RequiresRetry && len(outcome.Records) == 0 {
		outcome, err = r.collectFirstPage(keyspace, key, direction, filter)
		if err != nil {
			return Page{}, err
		}
	}
	if outcome.RequiresRetry && len(outcome.Records) == 0 {
		return Page{Keyspace: keyspace, Key: key, Records: outcome.Records}, nil
	}
	return Page{Keyspace: keyspace, Key: key, Records: outcome.Records, Continuation: outcome.continuation(direction)}, nil
}

// ReadNextPage resumes from an opaque continuation token. If the object it
// points at has been merged away by a concurrent compaction since the token
// was issued, it is retried once (the compactor always writes the merged
// replacement before deleting the sources, so a retry is usually enough to
// observe it); failing twice in a row ends the page with no continuation
// rather than leaving the caller in an endless empty-page loop.
func (r *ObjectReader) ReadNextPage(keyspace, key, continuation string, pageSize *uint64) (Page, error) {
	maxResults := r.pageSizeOrDefault(pageSize)

	outcome, dir, err := r.collectNextPage(keyspace, key, continuation, maxResults)
	if err != nil {
		return Page{}, err
	}
	if outcome.RequiresRetry && len(outcome.Records) == 0 {
		outcome, dir, err = r.collectNextPage(keyspace, key, continuation, maxResults)
		if err != nil {
			return Page{}, err
		}
	}
	if outcome.RequiresRetry && len(outcome.Records) == 0 {
		return Page{Keyspace: keyspace, Key: key, Records: outcome.Records}, nil
	}
	return Page{Keyspace: keyspace, Key: key, Records: outcome.Records, Continuation: outcome.continuation(dir)}, nil
}

func (r *ObjectReader) pageSizeOrDefault(pageSize *uint64) uint64 {
	if pageSize != nil {
		return *pageSize
	}
	return r.config.DefaultMaxResults
}

func (r *ObjectReader) collectFirstPage(keyspace, key string, dir Direction, filter RecordFilter) (collectOutcome, error) {
	pos, err := r.searchStartFrom(keyspace, key, filter)
	if err != nil {
		return collectOutcome{}, err
	}
	if pos == nil {
		return outcomeFinished(nil), nil
	}
	return r.collectRecordsFromPosition(*pos, keyspace, key, filter, dir)
}

func (r *ObjectReader) collectNextPage(keyspace, key, continuation string, maxResults uint64) (collectOutcome, Direction, error) {
	dir, pos, err := parseContinuation(continuation)
	if err != nil {
		return collectOutcome{}, dir, err
	}
	filter := RecordFilterForOffset(pos.NextOffset, maxResults, dir)

	outcome, err := r.collectRecordsFromPosition(pos, keyspace, key, filter, dir)
	if err != nil {
		return collectOutcome{}, dir, err
	}
	if !outcome.RequiresRetry {
		return outcome, dir, nil
	}

	// continuation pointed at an object that is no longer there; fall back to
	// a fresh filter-driven search anchored at the same offset
	atomic.AddUint64(&r.stats.ContinuationMisses, 1)
	filter.StartOffset = pos.NextOffset

	pos2, err := r.searchStartFrom(keyspace, key, filter)
	if err != nil {
		return collectOutcome{}, dir, err
	}
	if pos2 == nil {
		return outcomeFinished(nil), dir, nil
	}
	outcome, err = r.collectRecordsFromPosition(*pos2, keyspace, key, filter, dir)
	return outcome, dir, err
}

func (r *ObjectReader) collectRecordsFromPosition(startPosition position, keyspace, key string, filter RecordFilter, dir Direction) (collectOutcome, error) {
	if dir == Forward {
		return r.collectRecordsForward(startPosition, keyspace, key, filter)
	}
	return r.collectRecordsBackward(startPosition, keyspace, key, filter)
}

func (r *ObjectReader) collectRecordsForward(startPosition position, keyspace, key string, filter RecordFilter) (collectOutcome, error) {
	var records []Record
	s3ContToken := ""
	curPosition := startPosition
	dp := dataPrefix(r.config.ObjectPrefix, keyspace, key)
	startFrom := curPosition.startFrom(r.config.ObjectPrefix, keyspace, key)

	for {
		page, err := r.listPage(dp, startFrom, s3ContToken, 1000)
		if err != nil {
			return collectOutcome{}, err
		}
		if s3ContToken == "" && len(page.Objects) == 0 {
			// nothing listed at or after the anchor: either the stream has ended or a
			// concurrent compaction merged the anchored object into one that starts
			// earlier; the retry's fresh search tells the two apart
			return outcomeMissing(nil, curPosition, curPosition.AnchorStartOffset), nil
		}
		for _, obj := range page.Objects {
			kp, err := ParseKeyPathOrError(obj.Key)
			if err != nil {
				return collectOutcome{}, err
			}
			if curPosition.NextOffset < kp.FirstOffset {
				// a concurrent compaction merged away the object expected here
				return outcomeMissing(records, curPosition, kp.FirstOffset), nil
			}

			newRecords, readFully, found, err := r.collectObject(obj.Key, filter, curPosition)
			if err != nil {
				return collectOutcome{}, err
			}
			if !found {
				return outcomeMissing(records, curPosition, kp.FirstOffset), nil
			}
			records = append(records, newRecords...)

			var anchor uint64
			if readFully {
				anchor = kp.LastOffset + 1 // anchor to the next object
			} else {
				anchor = kp.FirstOffset // keep anchoring to the current one
			}

			if len(records) > 0 && records[len(records)-1].Offset == maxUint64 {
				return outcomeFinished(records), nil
			}
			if uint64(len(records)) >= filter.MaxSize {
				return outcomeProgress(records, curPosition, anchor), nil
			}

			curPosition.NextOffset = kp.LastOffset + 1
			curPosition.AnchorStartOffset = anchor
		}
		if page.Continuation == nil {
			return outcomeFinished(records), nil
		}
		s3ContToken = *page.Continuation
	}
}

func (r *ObjectReader) collectRecordsBackward(startPosition position, keyspace, key string, filter RecordFilter) (collectOutcome, error) {
	var records []Record
	curPosition := startPosition
	dp := dataPrefix(r.config.ObjectPrefix, keyspace, key)
	// a backward page resumes one below the lowest offset it has returned
	resume := func(anchor uint64) *position {
		if len(records) == 0 {
			p := curPosition
			return &p
		}
		return &position{NextOffset: records[len(records)-1].Offset - 1, AnchorStartOffset: anchor}
	}

	for {
		// backward continuation re-anchors on every object via the prior-start link
		startFrom := curPosition.startFrom(r.config.ObjectPrefix, keyspace, key)
		page, err := r.listPage(dp, startFrom, "", 1)
		if err != nil {
			return collectOutcome{}, err
		}
		if len(page.Objects) == 0 {
			// the expected first object is gone; nothing recoverable without a retry
			return outcomeMissing(nil, startPosition, 0), nil
		}
		obj := page.Objects[0]
		kp, err := ParseKeyPathOrError(obj.Key)
		if err != nil {
			return collectOutcome{}, err
		}

		if curPosition.NextOffset > kp.LastOffset {
			return collectOutcome{Records: records, Position: resume(kp.PriorStartOffset), RequiresRetry: true}, nil
		}

		newRecords, readFully, found, err := r.collectObject(obj.Key, filter, curPosition)
		if err != nil {
			return collectOutcome{}, err
		}
		if !found {
			return collectOutcome{Records: records, Position: resume(kp.FirstOffset), RequiresRetry: true}, nil
		}
		records = append(records, newRecords...)

		var anchor uint64
		if readFully {
			anchor = kp.PriorStartOffset // anchor to the prior object
		} else {
			anchor = kp.FirstOffset // keep anchoring to the current one
		}

		if len(records) == 0 {
			return outcomeFinished(records), nil
		}
		if records[len(records)-1].Offset == maxUint64 {
			return outcomeFinished(records), nil
		}
		if curPosition.NextOffset == 0 {
			return outcomeFinished(records), nil
		}
		if uint64(len(records)) >= filter.MaxSize {
			return collectOutcome{Records: records, Position: resume(anchor)}, nil
		}

		curPosition.NextOffset = kp.FirstOffset - 1
		curPosition.AnchorStartOffset = anchor
	}
}

// collectObject fetches and filters one data object's body. found is false
// when the object has vanished between listing and reading it, the signal
// its caller uses to recognize a concurrent-compaction race.
func (r *ObjectReader) collectObject(objectKey string, filter RecordFilter, pos position) (records []Record, readFully bool, found bool, err error) {
	body, ok, err := r.os.Get(objectKey)
	if err != nil {
		return nil, false, false, err
	}
	if !ok {
		return nil, false, false, nil
	}
	atomic.AddUint64(&r.stats.ReadOperations, 1)
	atomic.AddUint64(&r.stats.ReadSizeTotal, uint64(len(body)))

	records, readFully, err = DeserializeAndFilter(body, filter, pos.NextOffset)
	if err != nil {
		return nil, false, false, err
	}
	return records, readFully, true, nil
}

// searchStartFrom finds the first object and in-object position satisfying
// filter, without yet reading any record payloads. Most keys never need more
// than the first LIST page; this only escalates to listing the watermark's
// tail and a binary search once the page it checked first rules both ends out.
func (r *ObjectReader) searchStartFrom(keyspace, key string, filter RecordFilter) (*position, error) {
	dp := dataPrefix(r.config.ObjectPrefix, keyspace, key)

	firstPage, err := r.listPage(dp, "", "", 1000)
	if err != nil {
		return nil, err
	}
	if len(firstPage.Objects) == 0 {
		return nil, nil
	}
	if firstPage.Continuation == nil {
		return findStartFromInPage(firstPage.Objects, filter), nil
	}

	lastInFirstPage, err := ParseKeyPathOrError(firstPage.Objects[len(firstPage.Objects)-1].Key)
	if err != nil {
		return nil, err
	}
	switch filter.Direction {
	case Forward:
		if lastInFirstPage.Matches(filter) {
			return findStartFromInPage(firstPage.Objects, filter), nil
		}
	default:
		if !lastInFirstPage.Matches(filter) {
			return findStartFromInPage(firstPage.Objects, filter), nil
		}
	}

	lastPathKey, ok, err := r.lastPathForKey(keyspace, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	lastPathInKey, err := ParseKeyPathOrError(lastPathKey)
	if err != nil {
		return nil, err
	}

	if filter.Direction == Backward && lastPathInKey.Matches(filter) {
		return &position{NextOffset: filter.StartOffset, AnchorStartOffset: lastPathInKey.FirstOffset}, nil
	}

	// not in the first page and not the very last record: binary search the
	// range between the first page's tail (a known valid anchor) and the key's end
	lowerBound, err := ParseKeyPathOrError(firstPage.Objects[len(firstPage.Objects)-1].Key)
	if err != nil {
		return nil, err
	}
	return r.binarySearchStartFrom(keyspace, key, filter, lowerBound.FirstOffset, lastPathInKey.LastOffset)
}

// lastPathForKey returns the object key of the most recent data object for
// (keyspace,key), or ok=false if the key has no data at all. Listing anchors
// at the watermark when one exists so this doesn't have to scan every
// compacted object just to find the tail.
func (r *ObjectReader) lastPathForKey(keyspace, key string) (string, bool, error) {
	wmPath := watermarkPath(r.config.ObjectPrefix, keyspace, key)
	wmBytes, haveWatermark, err := r.os.Get(wmPath)
	if err != nil {
		return "", false, err
	}
	startFrom := ""
	if haveWatermark {
		watermark, err := watermarkFromBytes(wmBytes)
		if err != nil {
			return "", false, err
		}
		startFrom = watermark.startFrom(r.config.ObjectPrefix, keyspace, key)
	}

	dp := dataPrefix(r.config.ObjectPrefix, keyspace, key)
	var last string
	haveLast := false
	contToken := ""
	for {
		page, err := r.listPage(dp, startFrom, contToken, 1000)
		if err != nil {
			return "", false, err
		}
		if len(page.Objects) > 0 {
			last = page.Objects[len(page.Objects)-1].Key
			haveLast = true
		}
		if page.Continuation == nil {
			return last, haveLast, nil
		}
		contToken = *page.Continuation
	}
}

func (r *ObjectReader) binarySearchStartFrom(keyspace, key string, filter RecordFilter, startMin, startMax uint64) (*position, error) {
	if filter.Direction == Forward {
		return r.binarySearchForward(keyspace, key, filter, startMin, startMax)
	}
	return r.binarySearchBackward(keyspace, key, filter, startMin, startMax)
}

func (r *ObjectReader) binarySearchForward(keyspace, key string, filter RecordFilter, startMin, startMax uint64) (*position, error) {
	dp := dataPrefix(r.config.ObjectPrefix, keyspace, key)

	// a single LIST page always covers 1000 objects; check it before paying for
	// a full binary search, since most cold-start searches land in the first probe
	startFrom := afterOffsetPrefix(r.config.ObjectPrefix, keyspace, key, startMin)
	page, err := r.listPage(dp, startFrom, "", 1000)
	if err != nil {
		return nil, err
	}
	if len(page.Objects) == 0 {
		return nil, nil
	}
	lastInPage, err := ParseKeyPathOrError(page.Objects[len(page.Objects)-1].Key)
	if err != nil {
		return nil, err
	}
	if lastInPage.Matches(filter) {
		return findStartFromInPage(page.Objects, filter), nil
	}

	min, max := startMin, startMax
	for {
		next := midpoint(min, max)
		startFrom := afterOffsetPrefix(r.config.ObjectPrefix, keyspace, key, next)
		page, err := r.listPage(dp, startFrom, "", 1000)
		if err != nil {
			return nil, err
		}
		if len(page.Objects) == 0 {
			max = next
			continue
		}
		first, err := ParseKeyPathOrError(page.Objects[0].Key)
		if err != nil {
			return nil, err
		}
		last, err := ParseKeyPathOrError(page.Objects[len(page.Objects)-1].Key)
		if err != nil {
			return nil, err
		}
		if first.Matches(filter) {
			max = next
		} else if !last.Matches(filter) {
			if page.Continuation == nil {
				return nil, nil
			}
			min = last.LastOffset
		} else {
			return findStartFromInPage(page.Objects, filter), nil
		}
	}
}

func (r *ObjectReader) binarySearchBackward(keyspace, key string, filter RecordFilter, startMin, startMax uint64) (*position, error) {
	dp := dataPrefix(r.config.ObjectPrefix, keyspace, key)

	startFrom := afterOffsetPrefix(r.config.ObjectPrefix, keyspace, key, startMin)
	page, err := r.listPage(dp, startFrom, "", 1000)
	if err != nil {
		return nil, err
	}
	if len(page.Objects) == 0 {
		return nil, nil
	}
	lastInPage, err := ParseKeyPathOrError(page.Objects[len(page.Objects)-1].Key)
	if err != nil {
		return nil, err
	}
	if !lastInPage.Matches(filter) {
		return findStartFromInPage(page.Objects, filter), nil
	}

	min, max := startMin, startMax
	for {
		next := midpoint(min, max)
		startFrom := afterOffsetPrefix(r.config.ObjectPrefix, keyspace, key, next)
		page, err := r.listPage(dp, startFrom, "", 1000)
		if err != nil {
			return nil, err
		}
		if len(page.Objects) == 0 {
			max = next
			continue
		}
		first, err := ParseKeyPathOrError(page.Objects[0].Key)
		if err != nil {
			return nil, err
		}
		last, err := ParseKeyPathOrError(page.Objects[len(page.Objects)-1].Key)
		if err != nil {
			return nil, err
		}
		if last.Matches(filter) {
			if page.Continuation == nil {
				return findStartFromInPage(page.Objects, filter), nil
			}
			min = next
		} else if first.Matches(filter) {
			return findStartFromInPage(page.Objects, filter), nil
		} else {
			max = first.FirstOffset
		}
	}
}

// findStartFromInPage picks the first (forward) or last (backward) object in
// an already-listed page whose bounds satisfy filter, and returns the
// position to start reading from within it.
func findStartFromInPage(list []ListedObject, filter RecordFilter) *position {
	if filter.Direction == Forward {
		for _, obj := range list {
			kp, ok := ParseKeyPath(obj.Key)
			if !ok {
				continue
			}
			if kp.Matches(filter) {
				return &position{NextOffset: kp.FirstOffset, AnchorStartOffset: kp.FirstOffset}
			}
		}
		return nil
	}
	for i := len(list) - 1; i >= 0; i-- {
		kp, ok := ParseKeyPath(list[i].Key)
		if !ok {
			continue
		}
		if kp.Matches(filter) {
			return &position{NextOffset: kp.LastOffset, AnchorStartOffset: kp.FirstOffset}
		}
	}
	return nil
}

// midpoint computes (a+b)/2 without overflowing when a+b would not fit a uint64.
func midpoint(a, b uint64) uint64 {
	sum := new(big.Int).Add(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	return sum.Div(sum, big.NewInt(2)).Uint64()
}

var _ Reader = (*ObjectReader)(nil)
