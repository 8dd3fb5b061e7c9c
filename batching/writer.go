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

package batching

import (
	"container/list"
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dc0d/onexit"

	klstore "github.com/launix-de/klog/store"
)

// unboundedQueueCapacity is the buffer size used when a lane's queue
// capacity is configured as 0 ("unbounded"). Go channels need a fixed
// capacity, so unbounded is approximated by a generous buffer rather than
// true unboundedness; a lane that still fills this is backed up badly enough
// that blocking the caller (the behavior once genuinely unbounded) would not
// have helped either.
const unboundedQueueCapacity = 1 << 16

// batchKey identifies one key's in-flight batch within a lane.
type batchKey struct {
	keyspace, key string
}

// batch accumulates inserts for one key between flushes.
type batch struct {
	inserts      []klstore.Insertion
	size         uint64
	flushAtMillis int64
}

// task is the closed set of work items a lane goroutine executes, one at a
// time, in send order.
type task interface{ isTask() }

type taskAppend struct {
	keyspace, key string
	inserts       []klstore.Insertion
}
type taskFlushKey struct{ keyspace, key string }
type taskFlushAll struct{}
type taskCheckWrite struct{}
type taskBarrier struct{ done chan struct{} }

func (taskAppend) isTask()     {}
func (taskFlushKey) isTask()   {}
func (taskFlushAll) isTask()   {}
func (taskCheckWrite) isTask() {}
func (taskBarrier) isTask()    {}

// lane is one single-goroutine worker: a private FIFO of open batches (list
// for order, map for O(1) lookup by key, the same pairing the corpus's LRU
// cache uses for its eviction queue) draining a channel of tasks.
type lane struct {
	writer klstore.Writer
	cfg    Config
	faults chan<- error

	tasks chan task

	order   *list.List // front = oldest open batch
	entries map[batchKey]*list.Element
}

type laneEntry struct {
	key   batchKey
	batch *batch
}

func newLane(writer klstore.Writer, cfg Config, faults chan<- error) *lane {
	capacity := cfg.WriterThreadQueueCapacity
	if capacity <= 0 {
		capacity = unboundedQueueCapacity
	}
	l := &lane{
		writer:  writer,
		cfg:     cfg,
		faults:  faults,
		tasks:   make(chan task, capacity),
		order:   list.New(),
		entries: make(map[batchKey]*list.Element),
	}
	go l.run()
	return l
}

func (l *lane) run() {
	for t := range l.tasks {
		l.execute(t)
	}
}

func (l *lane) execute(t task) {
	switch v := t.(type) {
	case taskAppend:
		l.handleAppend(v)
	case taskFlushKey:
		l.handleFlushKey(v)
	case taskFlushAll:
		l.handleFlushAll()
	case taskCheckWrite:
		l.handleCheckWrite()
	case taskBarrier:
		close(v.done)
	}
}

func (l *lane) handleAppend(t taskAppend) {
	now := time.Now().UnixMilli()
	for i := range t.inserts {
		if t.inserts[i].Timestamp == nil {
			ts := now
			t.inserts[i].Timestamp = &ts
		}
	}
	size := insertsSize(t.inserts)
	key := batchKey{t.keyspace, t.key}

	if elem, ok := l.entries[key]; ok {
		b := elem.Value.(laneEntry).batch
		b.inserts = append(b.inserts, t.inserts...)
		b.size += size
		if uint64(len(b.inserts)) >= l.cfg.BatchFlushRecordCountThreshold || b.size >= l.cfg.BatchFlushSizeThreshold {
			l.order.Remove(elem)
			delete(l.entries, key)
			l.writeOut(key, b.inserts)
		}
		return
	}

	if l.cfg.BatchFlushIntervalMillis == 0 ||
		uint64(len(t.inserts)) >= l.cfg.BatchFlushRecordCountThreshold ||
		size >= l.cfg.BatchFlushSizeThreshold {
		l.writeOut(key, t.inserts)
		return
	}

	b := &batch{
		inserts:       t.inserts,
		size:          size,
		flushAtMillis: now + int64(l.cfg.BatchFlushIntervalMillis),
	}
	elem := l.order.PushBack(laneEntry{key: key, batch: b})
	l.entries[key] = elem
}

func (l *lane) handleFlushKey(t taskFlushKey) {
	key := batchKey{t.keyspace, t.key}
	elem, ok := l.entries[key]
	if !ok {
		return
	}
	l.order.Remove(elem)
	delete(l.entries, key)
	b := elem.Value.(laneEntry).batch
	l.writeOut(key, b.inserts)
}

func (l *lane) handleFlushAll() {
	for l.order.Len() > 0 {
		front := l.order.Front()
		l.order.Remove(front)
		entry := front.Value.(laneEntry)
		delete(l.entries, entry.key)
		l.writeOut(entry.key, entry.batch.inserts)
	}
}

func (l *lane) handleCheckWrite() {
	now := time.Now().UnixMilli()
	for l.order.Len() > 0 {
		front := l.order.Front()
		entry := front.Value.(laneEntry)
		if now <= entry.batch.flushAtMillis {
			break
		}
		l.order.Remove(front)
		delete(l.entries, entry.key)
		l.writeOut(entry.key, entry.batch.inserts)
	}
}

// writeOut pushes a completed batch to the underlying writer. A failing
// Append here does not stop the lane: the error is handed to the fault
// channel for the owner to observe, and the lane keeps draining later tasks.
func (l *lane) writeOut(key batchKey, inserts []klstore.Insertion) {
	if err := l.writer.Append(key.keyspace, key.key, inserts); err != nil {
		select {
		case l.faults <- err:
		default:
		}
	}
}

func insertsSize(inserts []klstore.Insertion) uint64 {
	var total uint64
	for _, ins := range inserts {
		total += uint64(len(ins.Value))
	}
	return total
}

// BatchingStoreWriter coalesces Append calls per key across a fixed pool of
// lanes, flushing a key's pending batch when it crosses a record-count or
// byte-size threshold, or when its flush interval elapses (checked on the
// cadence driven by DutyCycle).
type BatchingStoreWriter struct {
	writer klstore.Writer
	cfg    Config

	lanes    []*lane
	laneSeed maphash.Seed

	nextCheckMillis atomic.Int64

	faults chan error
}

// NewBatchingStoreWriter starts cfg.WriterThreadCount lane goroutines wrapping
// writer, and registers a flush of every open batch at process exit.
func NewBatchingStoreWriter(cfg Config, writer klstore.Writer) (*BatchingStoreWriter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	faults := make(chan error, 64)
	b := &BatchingStoreWriter{
		writer:   writer,
		cfg:      cfg,
		laneSeed: maphash.MakeSeed(),
		faults:   faults,
	}
	b.nextCheckMillis.Store(time.Now().UnixMilli() + int64(cfg.BatchCheckIntervalMillis))

	b.lanes = make([]*lane, cfg.WriterThreadCount)
	for i := range b.lanes {
		b.lanes[i] = newLane(writer, cfg, faults)
	}

	onexit.Register(func() { _ = b.FlushAll() })
	return b, nil
}

// Faults returns the channel lane write errors are reported on. A dropped
// Append error (queue full) is preferable to stalling or killing a lane;
// callers that care about durability should drain this and act on it.
func (b *BatchingStoreWriter) Faults() <-chan error { return b.faults }

func (b *BatchingStoreWriter) laneFor(keyspace, key string) int {
	var h maphash.Hash
	h.SetSeed(b.laneSeed)
	h.WriteString(keyspace)
	h.WriteByte(0)
	h.WriteString(key)
	return int(h.Sum64() % b.cfg.WriterThreadCount)
}

func (b *BatchingStoreWriter) barrier(laneIdx int) {
	done := make(chan struct{})
	b.lanes[laneIdx].tasks <- taskBarrier{done: done}
	<-done
}

// CreateKeyspace implements store.Writer by delegating straight through:
// keyspace creation is not batched.
func (b *BatchingStoreWriter) CreateKeyspace(keyspace string) (klstore.CreatedKeyspace, error) {
	return b.writer.CreateKeyspace(keyspace)
}

// Append implements store.Writer by queueing the insert on the key's lane.
func (b *BatchingStoreWriter) Append(keyspace, key string, records []klstore.Insertion) error {
	idx := b.laneFor(keyspace, key)
	b.lanes[idx].tasks <- taskAppend{keyspace: keyspace, key: key, inserts: records}
	return b.DutyCycle()
}

// FlushKey implements store.Writer: it forces the key's open batch (if any)
// out immediately and blocks until that write has been issued.
func (b *BatchingStoreWriter) FlushKey(keyspace, key string) error {
	idx := b.laneFor(keyspace, key)
	b.lanes[idx].tasks <- taskFlushKey{keyspace: keyspace, key: key}
	b.barrier(idx)
	return nil
}

// FlushAll implements store.Writer: every lane drains every open batch,
// blocking until all lanes have finished.
func (b *BatchingStoreWriter) FlushAll() error {
	for i := range b.lanes {
		b.lanes[i].tasks <- taskFlushAll{}
	}
	for i := range b.lanes {
		b.barrier(i)
	}
	return nil
}

// DutyCycle implements store.Writer: on the configured cadence it asks every
// lane to check its oldest batch's flush deadline. Cheap to call often; the
// atomic compare-driven gate means most calls do nothing.
func (b *BatchingStoreWriter) DutyCycle() error {
	now := time.Now().UnixMilli()
	next := b.nextCheckMillis.Load()
	if now < next {
		return nil
	}
	if !b.nextCheckMillis.CompareAndSwap(next, now+int64(b.cfg.BatchCheckIntervalMillis)) {
		return nil // another goroutine already won this tick
	}
	for i := range b.lanes {
		b.lanes[i].tasks <- taskCheckWrite{}
	}
	return nil
}

var _ klstore.Writer = (*BatchingStoreWriter)(nil)
