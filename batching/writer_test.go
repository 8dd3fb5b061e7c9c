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

package batching_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/launix-de/klog/batching"
	klstore "github.com/launix-de/klog/store"
)

type fakeWriter struct {
	mu      sync.Mutex
	calls   [][]klstore.Insertion
	failFor string // "keyspace/key" that should fail once
}

func (f *fakeWriter) CreateKeyspace(keyspace string) (klstore.CreatedKeyspace, error) {
	return klstore.CreatedKeyspace{Keyspace: keyspace}, nil
}

func (f *fakeWriter) Append(keyspace, key string, records []klstore.Insertion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor == keyspace+"/"+key {
		f.failFor = ""
		return errors.New("boom")
	}
	cp := append([]klstore.Insertion(nil), records...)
	f.calls = append(f.calls, cp)
	return nil
}

func (f *fakeWriter) FlushKey(string, string) error { return nil }
func (f *fakeWriter) FlushAll() error               { return nil }
func (f *fakeWriter) DutyCycle() error              { return nil }

func (f *fakeWriter) snapshot() [][]klstore.Insertion {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]klstore.Insertion(nil), f.calls...)
}

func insertionsOf(values ...string) []klstore.Insertion {
	out := make([]klstore.Insertion, len(values))
	for i, v := range values {
		out[i] = klstore.Insertion{Value: []byte(v)}
	}
	return out
}

func noBatchingCollapse(cfg batching.Config) batching.Config {
	// large enough thresholds that only an explicit Flush*, never a
	// threshold crossing, forces a write during a test.
	return cfg.WithBatchFlushRecordCountThreshold(1 << 30).
		WithBatchFlushSizeThreshold(1 << 30).
		WithBatchFlushIntervalMillis(1 << 30)
}

func TestAppendCoalescesUntilFlushed(t *testing.T) {
	fw := &fakeWriter{}
	cfg := noBatchingCollapse(batching.DefaultConfig())
	b, err := batching.NewBatchingStoreWriter(cfg, fw)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	for _, v := range []string{"a", "b", "c"} {
		if err := b.Append("ks", "k", insertionsOf(v)); err != nil {
			t.Fatalf("append %q: %v", v, err)
		}
	}
	if calls := fw.snapshot(); len(calls) != 0 {
		t.Fatalf("writer called %d times before any flush, want 0", len(calls))
	}

	if err := b.FlushAll(); err != nil {
		t.Fatalf("flush all: %v", err)
	}
	calls := fw.snapshot()
	if len(calls) != 1 || len(calls[0]) != 3 {
		t.Fatalf("calls = %+v, want one call with 3 records", calls)
	}
	for i, v := range []string{"a", "b", "c"} {
		if string(calls[0][i].Value) != v {
			t.Fatalf("record %d = %q, want %q", i, calls[0][i].Value, v)
		}
	}
}

func TestAppendFlushesImmediatelyOnCountThreshold(t *testing.T) {
	fw := &fakeWriter{}
	cfg := noBatchingCollapse(batching.DefaultConfig()).WithBatchFlushRecordCountThreshold(2)
	b, err := batching.NewBatchingStoreWriter(cfg, fw)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	if err := b.Append("ks", "k", insertionsOf("a", "b")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := b.FlushAll(); err != nil {
		t.Fatalf("flush all (no-op expected): %v", err)
	}

	calls := fw.snapshot()
	if len(calls) != 1 || len(calls[0]) != 2 {
		t.Fatalf("calls = %+v, want exactly one call with 2 records", calls)
	}
}

func TestFlushKeyOnlyFlushesThatKey(t *testing.T) {
	fw := &fakeWriter{}
	cfg := noBatchingCollapse(batching.DefaultConfig()).WithWriterThreadCount(1)
	b, err := batching.NewBatchingStoreWriter(cfg, fw)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	if err := b.Append("ks", "k1", insertionsOf("a")); err != nil {
		t.Fatalf("append k1: %v", err)
	}
	if err := b.Append("ks", "k2", insertionsOf("b")); err != nil {
		t.Fatalf("append k2: %v", err)
	}
	if err := b.FlushKey("ks", "k1"); err != nil {
		t.Fatalf("flush k1: %v", err)
	}

	calls := fw.snapshot()
	if len(calls) != 1 || len(calls[0]) != 1 || string(calls[0][0].Value) != "a" {
		t.Fatalf("calls after flushing k1 = %+v, want just k1's batch", calls)
	}

	if err := b.FlushAll(); err != nil {
		t.Fatalf("flush all: %v", err)
	}
	calls = fw.snapshot()
	if len(calls) != 2 {
		t.Fatalf("calls after flush all = %+v, want k2's batch too", calls)
	}
}

func TestValidateRejectsZeroThreadCount(t *testing.T) {
	cfg := batching.DefaultConfig().WithWriterThreadCount(0)
	if _, err := batching.NewBatchingStoreWriter(cfg, &fakeWriter{}); err == nil {
		t.Fatalf("expected an error constructing a writer with 0 threads")
	} else if !klstore.IsKind(err, klstore.KindBadConfiguration) {
		t.Fatalf("err = %v, want KindBadConfiguration", err)
	}
}

func TestLaneFaultIsReportedNotFatal(t *testing.T) {
	fw := &fakeWriter{failFor: "ks/k"}
	cfg := noBatchingCollapse(batching.DefaultConfig())
	b, err := batching.NewBatchingStoreWriter(cfg, fw)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	if err := b.Append("ks", "k", insertionsOf("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := b.FlushAll(); err != nil {
		t.Fatalf("flush all: %v", err)
	}

	select {
	case faultErr := <-b.Faults():
		if faultErr == nil {
			t.Fatalf("fault channel delivered a nil error")
		}
	default:
		t.Fatalf("expected a fault to have been reported by the time FlushAll returned")
	}

	// the lane kept running after the fault: a second key still flushes fine.
	if err := b.Append("ks", "other", insertionsOf("b")); err != nil {
		t.Fatalf("append after fault: %v", err)
	}
	if err := b.FlushAll(); err != nil {
		t.Fatalf("flush all after fault: %v", err)
	}
	found := false
	for _, call := range fw.snapshot() {
		if len(call) == 1 && string(call[0].Value) == "b" {
			found = true
		}
	}
	if !found {
		t.Fatalf("lane did not process work queued after a fault")
	}
}
