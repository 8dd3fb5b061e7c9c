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

// Package batching coalesces many small Append calls per key into fewer,
// larger writes against a store.Writer, trading a bounded amount of latency
// for throughput.
package batching

import (
	"strconv"

	"gopkg.in/ini.v1"

	klstore "github.com/launix-de/klog/store"
)

// unboundedCount is the record-count threshold value meaning "never flush on
// count alone", the batching equivalent of store.Config's size thresholds.
const unboundedCount = ^uint64(0)

// Config holds the tunables for BatchingStoreWriter.
type Config struct {
	WriterThreadCount              uint64
	WriterThreadQueueCapacity      int // 0 means unbounded
	BatchCheckIntervalMillis       uint64
	BatchFlushIntervalMillis       uint64
	BatchFlushRecordCountThreshold uint64
	BatchFlushSizeThreshold        uint64
}

// DefaultConfig returns one writer thread, a 100ms batch-check tick, a 1s
// flush interval, no record-count cap, and a 1MiB size cap per batch.
func DefaultConfig() Config {
	return Config{
		WriterThreadCount:              1,
		WriterThreadQueueCapacity:      0,
		BatchCheckIntervalMillis:       100,
		BatchFlushIntervalMillis:       1000,
		BatchFlushRecordCountThreshold: unboundedCount,
		BatchFlushSizeThreshold:        1024 * 1024,
	}
}

// WithWriterThreadCount sets the number of lanes. Each key always lands on
// the same lane (see laneFor), so pick this with the expected key cardinality
// in mind: more lanes than active keys just wastes goroutines.
func (c Config) WithWriterThreadCount(v uint64) Config { c.WriterThreadCount = v; return c }

// WithWriterThreadQueueCapacity bounds the number of queued tasks per lane.
// 0 does not mean unbounded: it selects a fixed buffer of
// unboundedQueueCapacity (65,536) tasks; see newLane.
func (c Config) WithWriterThreadQueueCapacity(v int) Config {
	c.WriterThreadQueueCapacity = v
	return c
}

func (c Config) WithBatchCheckIntervalMillis(v uint64) Config {
	c.BatchCheckIntervalMillis = v
	return c
}

func (c Config) WithBatchFlushIntervalMillis(v uint64) Config {
	c.BatchFlushIntervalMillis = v
	return c
}

func (c Config) WithBatchFlushRecordCountThreshold(v uint64) Config {
	c.BatchFlushRecordCountThreshold = v
	return c
}

func (c Config) WithBatchFlushSizeThreshold(v uint64) Config {
	c.BatchFlushSizeThreshold = v
	return c
}

// Validate rejects configurations duty_cycle/append could not safely run
// under. A zero thread count would make laneFor divide by zero on every
// Append; reject it here instead of letting that panic on first use.
func (c Config) Validate() error {
	if c.WriterThreadCount == 0 {
		return klstore.NewBadConfigError("batching writer_thread_count must be at least 1")
	}
	return nil
}

// LoadConfig reads Config from the "[batching]" section of an already-parsed
// INI file, starting from DefaultConfig for any key left unset.
func LoadConfig(file *ini.File) (Config, error) {
	section, err := file.GetSection("batching")
	if err != nil {
		return Config{}, klstore.NewBadConfigError("[batching] config missing")
	}
	cfg := DefaultConfig()

	if section.HasKey("writer_thread_count") {
		v, err := strconv.ParseUint(section.Key("writer_thread_count").String(), 10, 64)
		if err != nil {
			return Config{}, klstore.NewBadConfigError("batching writer_thread_count")
		}
		cfg = cfg.WithWriterThreadCount(v)
	}
	if section.HasKey("writer_thread_queue_capacity") {
		v, err := strconv.Atoi(section.Key("writer_thread_queue_capacity").String())
		if err != nil {
			return Config{}, klstore.NewBadConfigError("batching writer_thread_queue_capacity")
		}
		cfg = cfg.WithWriterThreadQueueCapacity(v)
	}
	if section.HasKey("batch_check_interval_millis") {
		v, err := strconv.ParseUint(section.Key("batch_check_interval_millis").String(), 10, 64)
		if err != nil {
			return Config{}, klstore.NewBadConfigError("batching batch_check_interval_millis")
		}
		cfg = cfg.WithBatchCheckIntervalMillis(v)
	}
	if section.HasKey("batch_flush_interval_millis") {
		v, err := strconv.ParseUint(section.Key("batch_flush_interval_millis").String(), 10, 64)
		if err != nil {
			return Config{}, klstore.NewBadConfigError("batching batch_flush_interval_millis")
		}
		cfg = cfg.WithBatchFlushIntervalMillis(v)
	}
	if section.HasKey("batch_flush_record_count_threshold") {
		v, err := strconv.ParseUint(section.Key("batch_flush_record_count_threshold").String(), 10, 64)
		if err != nil {
			return Config{}, klstore.NewBadConfigError("batching batch_flush_record_count_threshold")
		}
		cfg = cfg.WithBatchFlushRecordCountThreshold(v)
	}
	if section.HasKey("batch_flush_size_threshold") {
		v, err := strconv.ParseUint(section.Key("batch_flush_size_threshold").String(), 10, 64)
		if err != nil {
			return Config{}, klstore.NewBadConfigError("batching batch_flush_size_threshold")
		}
		cfg = cfg.WithBatchFlushSizeThreshold(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
