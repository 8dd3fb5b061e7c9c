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

package ingest

import (
	"fmt"
	"log"
	"sort"
	"time"

	klstore "github.com/launix-de/klog/store"
)

// CommitFunc commits whatever consumer offsets a caller's broker client has
// advanced to. Bridge calls it only after a successful FlushAll, so a commit
// never races ahead of records that are still batched in memory.
type CommitFunc func() error

// Bridge drives a caller-supplied stream of Messages into a store.Writer:
// extract keyspace/key/nonce/timestamp/value per field, Append, and on a
// fixed cadence flush everything written so far and commit offsets for it.
type Bridge struct {
	writer klstore.Writer
	cfg    BridgeConfig

	nextCommitMillis int64
	stats            commitStats
}

// NewBridge validates cfg and builds a Bridge over writer. The writer is
// typically a batching.BatchingStoreWriter, so that the bridge's own
// Append-per-message calls coalesce before hitting the object store.
func NewBridge(cfg BridgeConfig, writer klstore.Writer) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Bridge{
		writer:           writer,
		cfg:              cfg,
		nextCommitMillis: time.Now().UnixMilli() + int64(cfg.OffsetCommitIntervalMillis),
		stats:            newCommitStats(),
	}, nil
}

// HandleMessage extracts keyspace/key/nonce/timestamp/value from msg and
// appends it as a single-record insertion. A message with no extractable
// value (e.g. a tombstone) is the caller's decision to skip before calling
// this; HandleMessage always expects a value to append.
func (b *Bridge) HandleMessage(msg Message) error {
	keyspace, err := b.cfg.KeyspaceExtractor.ExtractRequired(msg)
	if err != nil {
		return err
	}
	key, err := b.cfg.KeyExtractor.ExtractRequired(msg)
	if err != nil {
		return err
	}
	nonce, err := b.cfg.NonceExtractor.ExtractU128(msg)
	if err != nil {
		return err
	}
	timestamp, err := b.cfg.TimestampExtractor.ExtractI64(msg)
	if err != nil {
		return err
	}

	err = b.writer.Append(keyspace, key, []klstore.Insertion{{
		Value:     msg.Value(),
		Nonce:     nonce,
		Timestamp: timestamp,
	}})
	if err != nil {
		return err
	}
	b.stats.increment(msg.Partition(), timestamp)
	return nil
}

// MaybeCommit flushes and commits once OffsetCommitIntervalMillis has
// elapsed since the last commit, otherwise it is a no-op. Call it after
// every HandleMessage (or on a timer) the way Run does.
func (b *Bridge) MaybeCommit(commit CommitFunc) error {
	now := time.Now().UnixMilli()
	if now < b.nextCommitMillis {
		return nil
	}
	log.Printf("ingest scheduled commit: %s", b.stats.String())
	b.nextCommitMillis = now + int64(b.cfg.OffsetCommitIntervalMillis)
	if b.stats.recordCount > 0 {
		if err := b.writer.FlushAll(); err != nil {
			return err
		}
		if err := commit(); err != nil {
			return err
		}
	}
	b.stats = newCommitStats()
	return nil
}

// Run consumes messages until the channel closes or stop fires, calling
// HandleMessage and MaybeCommit for each. A HandleMessage error is logged
// and skips that message rather than aborting the whole run, matching the
// original's poll loop (one bad record should not stop a topic's ingestion).
func (b *Bridge) Run(messages <-chan Message, commit CommitFunc, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := b.HandleMessage(msg); err != nil {
				log.Printf("ingest dropping message: %v", err)
			}
			if err := b.MaybeCommit(commit); err != nil {
				return err
			}
		}
	}
}

// commitStats tracks per-partition progress between commits, for the
// scheduled-commit log line.
type commitStats struct {
	recordCount int
	partitions  map[int32]*partitionStats
}

type partitionStats struct {
	recordCount   int
	lastTimestamp *int64
}

func newCommitStats() commitStats {
	return commitStats{partitions: make(map[int32]*partitionStats)}
}

func (s *commitStats) increment(partition int32, timestamp *int64) {
	s.recordCount++
	p, ok := s.partitions[partition]
	if !ok {
		p = &partitionStats{}
		s.partitions[partition] = p
	}
	p.recordCount++
	if timestamp != nil {
		p.lastTimestamp = timestamp
	}
}

func (s commitStats) String() string {
	keys := make([]int32, 0, len(s.partitions))
	for k := range s.partitions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := "[ "
	for _, k := range keys {
		p := s.partitions[k]
		if p.lastTimestamp != nil {
			out += fmt.Sprintf("%d:[count=%d timestamp=%d] ", k, p.recordCount, *p.lastTimestamp)
		} else {
			out += fmt.Sprintf("%d:[count=%d] ", k, p.recordCount)
		}
	}
	return out + "]"
}
