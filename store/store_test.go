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

// Package store_test exercises store against the in-memory ObjectStore
// backend, from outside the package (so it can reach store/objstore
// without an import cycle).
package store_test

import (
	"testing"
	"time"

	"github.com/launix-de/klog/store"
	"github.com/launix-de/klog/store/objstore"
)

func newTestWriter(t *testing.T, cfg store.Config) (*store.ObjectWriter, *store.ObjectReader, *objstore.MemStore) {
	t.Helper()
	mem := objstore.NewMemStore()
	return store.NewObjectWriter(mem, cfg), store.NewObjectReader(mem, cfg), mem
}

// writerOverSameStore builds a second writer/reader pair sharing mem's
// backing objects but with its own cfg and key-state cache, so a test can
// force a compaction with different thresholds without disturbing an
// already-open writer's cached view of the key.
func writerOverSameStore(t *testing.T, cfg store.Config, mem *objstore.MemStore) (*store.ObjectWriter, *store.ObjectReader, *objstore.MemStore) {
	t.Helper()
	return store.NewObjectWriter(mem, cfg), store.NewObjectReader(mem, cfg), mem
}

func nonce(v uint64) *store.Nonce {
	n := store.NewNonce(v)
	return &n
}

func ts(v int64) *int64 { return &v }

func values(records []store.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r.Value)
	}
	return out
}

func offsets(records []store.Record) []uint64 {
	out := make([]uint64, len(records))
	for i, r := range records {
		out[i] = r.Offset
	}
	return out
}

// Scenario 1: fresh keyspace, forward-read a short append in one page.
func TestForwardReadBasicAppend(t *testing.T) {
	writer, reader, _ := newTestWriter(t, store.DefaultConfig())

	err := writer.Append("ks", "k", []store.Insertion{
		{Value: []byte("a")},
		{Value: []byte("b")},
		{Value: []byte("c")},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	page, err := reader.ReadFirstPage("ks", "k", store.Forward, store.StartFromFirst(), uint64Ptr(10))
	if err != nil {
		t.Fatalf("read first page: %v", err)
	}
	if got, want := values(page.Records), []string{"a", "b", "c"}; !equalStrings(got, want) {
		t.Fatalf("values = %v, want %v", got, want)
	}
	if got, want := offsets(page.Records), []uint64{1, 2, 3}; !equalOffsets(got, want) {
		t.Fatalf("offsets = %v, want %v", got, want)
	}
	if page.Continuation != nil {
		t.Fatalf("continuation = %q, want nil (end of stream)", *page.Continuation)
	}
}

// Scenario 2: compaction keeps the uncompacted object count bounded as
// records accumulate well past the thresholds.
func TestCompactionBoundsObjectCount(t *testing.T) {
	cfg := store.DefaultConfig()
	cfg.CompactRecordsThreshold = 1000
	cfg.CompactSizeThreshold = 1024 * 1024
	cfg.CompactObjectsThreshold = 100

	writer, reader, mem := newTestWriter(t, cfg)

	const total = 2500
	for i := 0; i < total; i++ {
		if err := writer.Append("ks", "k", []store.Insertion{{Value: []byte("0123456789")}}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	dataObjects := mem.CountPrefix("ks/k/data_")
	if dataObjects > int(cfg.CompactObjectsThreshold)*2 {
		t.Fatalf("uncompacted+compacted object count = %d, want well under %d", dataObjects, cfg.CompactObjectsThreshold*2)
	}

	meta, err := reader.ReadKeyMetadata("ks", "k")
	if err != nil {
		t.Fatalf("read key metadata: %v", err)
	}
	if meta == nil || meta.NextOffset != total+1 {
		t.Fatalf("next_offset = %+v, want %d", meta, total+1)
	}
}

// Scenario 3: nonce dedup within one append batch.
func TestNonceDedupWithinBatch(t *testing.T) {
	writer, reader, _ := newTestWriter(t, store.DefaultConfig())

	err := writer.Append("ks", "k", []store.Insertion{
		{Value: []byte("v1"), Nonce: nonce(1)},
		{Value: []byte("v2"), Nonce: nonce(2)},
		{Value: []byte("v5"), Nonce: nonce(5)},
		{Value: []byte("v2b"), Nonce: nonce(2)},
		{Value: []byte("v6"), Nonce: nonce(6)},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	page, err := reader.ReadFirstPage("ks", "k", store.Forward, store.StartFromFirst(), uint64Ptr(10))
	if err != nil {
		t.Fatalf("read first page: %v", err)
	}
	wantNonces := []uint64{1, 2, 5, 6}
	if len(page.Records) != len(wantNonces) {
		t.Fatalf("record count = %d, want %d (%v)", len(page.Records), len(wantNonces), values(page.Records))
	}
	for i, r := range page.Records {
		if r.Nonce == nil || r.Nonce.Lo != wantNonces[i] {
			t.Fatalf("record %d nonce = %v, want %d", i, r.Nonce, wantNonces[i])
		}
	}
	if got, want := offsets(page.Records), []uint64{1, 2, 3, 4}; !equalOffsets(got, want) {
		t.Fatalf("offsets = %v, want %v", got, want)
	}

	// appending a nonce below next_nonce after this batch is a no-op.
	if err := writer.Append("ks", "k", []store.Insertion{{Value: []byte("stale"), Nonce: nonce(3)}}); err != nil {
		t.Fatalf("append stale nonce: %v", err)
	}
	meta, err := reader.ReadKeyMetadata("ks", "k")
	if err != nil {
		t.Fatalf("read key metadata: %v", err)
	}
	if meta.NextOffset != 5 {
		t.Fatalf("next_offset after stale nonce append = %d, want unchanged at 5", meta.NextOffset)
	}
}

// Scenario 4: continuation survives a compaction that merges everything the
// first page hadn't read yet.
func TestContinuationAcrossCompaction(t *testing.T) {
	cfg := store.DefaultConfig()
	writer, reader, mem := newTestWriter(t, cfg)

	for i := 1; i <= 10; i++ {
		if err := writer.Append("ks", "k", []store.Insertion{{Value: []byte{byte(i)}}}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	page, err := reader.ReadFirstPage("ks", "k", store.Forward, store.StartFromFirst(), uint64Ptr(5))
	if err != nil {
		t.Fatalf("read first page: %v", err)
	}
	if len(page.Records) != 5 {
		t.Fatalf("first page record count = %d, want 5", len(page.Records))
	}
	if page.Continuation == nil {
		t.Fatalf("expected a continuation after a partial page")
	}

	// force a full compaction of everything written so far: a second writer
	// over the same backing store, configured to merge on every object,
	// appends one more record and triggers the merge as a side effect.
	compactCfg := cfg
	compactCfg.CompactObjectsThreshold = 1
	compactor, _, _ := writerOverSameStore(t, compactCfg, mem)
	if err := compactor.Append("ks", "k", []store.Insertion{{Value: []byte{11}}}); err != nil {
		t.Fatalf("append triggering compaction: %v", err)
	}

	next, err := reader.ReadNextPage("ks", "k", *page.Continuation, uint64Ptr(10))
	if err != nil {
		t.Fatalf("read next page: %v", err)
	}
	if got, want := offsets(next.Records), []uint64{6, 7, 8, 9, 10, 11}; !equalOffsets(got, want) {
		t.Fatalf("offsets = %v, want %v", got, want)
	}
}

// Scenario 5: full backward traversal, one page at a time.
func TestBackwardTraversal(t *testing.T) {
	writer, reader, _ := newTestWriter(t, store.DefaultConfig())

	for i := 1; i <= 10; i++ {
		if err := writer.Append("ks", "k", []store.Insertion{{Value: []byte{byte(i)}}}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	var got []uint64
	page, err := reader.ReadFirstPage("ks", "k", store.Backward, store.StartFromFirst(), uint64Ptr(3))
	if err != nil {
		t.Fatalf("read first page: %v", err)
	}
	got = append(got, offsets(page.Records)...)
	for page.Continuation != nil {
		page, err = reader.ReadNextPage("ks", "k", *page.Continuation, uint64Ptr(3))
		if err != nil {
			t.Fatalf("read next page: %v", err)
		}
		got = append(got, offsets(page.Records)...)
	}

	want := []uint64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	if !equalOffsets(got, want) {
		t.Fatalf("backward traversal offsets = %v, want %v", got, want)
	}
}

// Scenario 6: starting a forward read from a timestamp only returns records
// at or after it.
func TestForwardReadFromTimestamp(t *testing.T) {
	writer, reader, _ := newTestWriter(t, store.DefaultConfig())

	timestamps := []int64{100, 200, 300, 400, 500}
	for _, tsv := range timestamps {
		err := writer.Append("ks", "k", []store.Insertion{{Value: []byte("v"), Timestamp: ts(tsv)}})
		if err != nil {
			t.Fatalf("append ts=%d: %v", tsv, err)
		}
	}

	page, err := reader.ReadFirstPage("ks", "k", store.Forward, store.StartFromTimestamp(250), uint64Ptr(10))
	if err != nil {
		t.Fatalf("read first page: %v", err)
	}
	if got, want := offsets(page.Records), []uint64{3, 4, 5}; !equalOffsets(got, want) {
		t.Fatalf("offsets = %v, want %v", got, want)
	}
}

// Boundary: reading a key that was never written returns an empty page and
// no continuation.
func TestReadMissingKeyIsEmpty(t *testing.T) {
	_, reader, _ := newTestWriter(t, store.DefaultConfig())

	page, err := reader.ReadFirstPage("ks", "missing", store.Forward, store.StartFromFirst(), uint64Ptr(10))
	if err != nil {
		t.Fatalf("read first page: %v", err)
	}
	if len(page.Records) != 0 {
		t.Fatalf("records = %v, want empty", page.Records)
	}
	if page.Continuation != nil {
		t.Fatalf("continuation = %q, want nil", *page.Continuation)
	}
}

// Boundary: backward iteration from First on an empty key returns empty.
func TestBackwardReadMissingKeyIsEmpty(t *testing.T) {
	_, reader, _ := newTestWriter(t, store.DefaultConfig())

	page, err := reader.ReadFirstPage("ks", "missing", store.Backward, store.StartFromFirst(), uint64Ptr(10))
	if err != nil {
		t.Fatalf("read first page: %v", err)
	}
	if len(page.Records) != 0 {
		t.Fatalf("records = %v, want empty", page.Records)
	}
}

func TestCreateKeyspaceRejectsDuplicate(t *testing.T) {
	writer, _, _ := newTestWriter(t, store.DefaultConfig())

	if _, err := writer.CreateKeyspace("ks"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := writer.CreateKeyspace("ks")
	if err == nil {
		t.Fatalf("expected an error creating an existing keyspace")
	}
	if !store.IsKind(err, store.KindKeyspaceAlreadyExists) {
		t.Fatalf("err = %v, want KindKeyspaceAlreadyExists", err)
	}
}

// A nil Timestamp must be stamped to ingest time, not persisted as epoch 0.
func TestAppendStampsNilTimestampToNow(t *testing.T) {
	writer, reader, _ := newTestWriter(t, store.DefaultConfig())

	before := time.Now().UnixMilli()
	if err := writer.Append("ks", "k", []store.Insertion{{Value: []byte("a")}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	after := time.Now().UnixMilli()

	page, err := reader.ReadFirstPage("ks", "k", store.Forward, store.StartFromFirst(), uint64Ptr(10))
	if err != nil {
		t.Fatalf("read first page: %v", err)
	}
	if len(page.Records) != 1 {
		t.Fatalf("records = %+v, want exactly one", page.Records)
	}
	got := page.Records[0].Timestamp
	if got < before || got > after {
		t.Fatalf("timestamp = %d, want between %d and %d (ingest time, not epoch 0)", got, before, after)
	}
}

func uint64Ptr(v uint64) *uint64 { return &v }

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalOffsets(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
