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
	"fmt"
	"math/big"
	"regexp"
	"strconv"
)

// Watermark marks how far the compactor has merged a key's data objects.
type Watermark struct {
	Offset uint64
}

func watermarkPath(rootPrefix, keyspace, key string) string {
	return fmt.Sprintf("%s%s/%s/watermark", rootPrefix, keyspace, key)
}

func watermarkFromBytes(buffer []byte) (Watermark, error) {
	if len(buffer) < 8 {
		return Watermark{}, errBadData("truncated watermark")
	}
	return Watermark{Offset: binary.LittleEndian.Uint64(buffer[0:8])}, nil
}

func (w Watermark) serialize() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, w.Offset)
	return buf
}

// startFrom returns the LIST prefix for every data object at or after this
// watermark's offset (the object containing the watermark's offset and
// everything merged/appended after it).
func (w Watermark) startFrom(rootPrefix, keyspace, key string) string {
	return fmt.Sprintf("%s%s/%s/data_o%020d-", rootPrefix, keyspace, key, w.Offset)
}

func keyspaceConfigPath(rootPrefix, keyspace string) string {
	return fmt.Sprintf("%s%s_config.ini", rootPrefix, keyspace)
}

// KeyPath is the fully-decoded content of a data object's key path: every
// field needed to plan reads and writes is recoverable from the path alone,
// without fetching the object.
type KeyPath struct {
	FirstOffset      uint64
	LastOffset       uint64
	MinTimestamp     int64
	MaxTimestamp     int64
	FirstNonce       Nonce
	NextNonce        Nonce
	Size             uint64
	PriorStartOffset uint64
}

// ToPath renders the object key for this KeyPath under the given root
// prefix, keyspace and key.
func (p KeyPath) ToPath(rootPrefix, keyspace, key string) string {
	return fmt.Sprintf(
		"%s%s/%s/data_o%020d-o%d_t%d-t%d_n%s-n%s_s%d_p%d.bin",
		rootPrefix, keyspace, key,
		p.FirstOffset, p.LastOffset,
		p.MinTimestamp, p.MaxTimestamp,
		nonceDecimal(p.FirstNonce), nonceDecimal(p.NextNonce),
		p.Size, p.PriorStartOffset,
	)
}

// ToMetadata projects a KeyPath down to the cursor a reader needs: the next
// offset and nonce a future append would use.
func (p KeyPath) ToMetadata() KeyMetadata {
	return KeyMetadata{NextOffset: p.LastOffset + 1, NextNonce: p.NextNonce}
}

// Matches reports whether this object could contain records satisfying
// filter, without opening the object. Forward scans need the object's last
// offset/nonce/timestamp bounds to reach at least the filter's start (a
// start nonce of 0 places no nonce bound, so objects holding only nonce-less
// records still match); backward scans need the object's first bounds to
// reach at most it.
func (p KeyPath) Matches(filter RecordFilter) bool {
	switch filter.Direction {
	case Forward:
		return filter.StartOffset <= p.LastOffset &&
			(filter.StartNonce == nonceMin || filter.StartNonce.Less(p.NextNonce)) &&
			filter.StartTimestamp <= p.MaxTimestamp
	default:
		return filter.StartOffset >= p.FirstOffset &&
			p.FirstNonce.LessEq(filter.StartNonce) &&
			filter.StartTimestamp >= p.MinTimestamp
	}
}

func dataPrefix(rootPrefix, keyspace, key string) string {
	return fmt.Sprintf("%s%s/%s/data_", rootPrefix, keyspace, key)
}

func watermarkObjectPrefix(rootPrefix, keyspace, key string, w Watermark) string {
	return fmt.Sprintf("%s%s/%s/data_o%020d", rootPrefix, keyspace, key, w.Offset)
}

func afterWatermarkPrefix(rootPrefix, keyspace, key string, w Watermark) string {
	return afterOffsetPrefix(rootPrefix, keyspace, key, w.Offset)
}

// afterOffsetPrefix returns a LIST prefix matching only objects whose
// first_offset is strictly greater than offset (offset 0 is special-cased
// since there is no "offset -1" to render as a lower bound).
func afterOffsetPrefix(rootPrefix, keyspace, key string, offset uint64) string {
	if offset == 0 {
		return fmt.Sprintf("%s%s/%s/data_o", rootPrefix, keyspace, key)
	}
	return fmt.Sprintf("%s%s/%s/data_o%020d", rootPrefix, keyspace, key, offset+1)
}

var big1e64 = new(big.Int).Lsh(big.NewInt(1), 64)

// nonceDecimal renders a 128-bit Nonce as a base-10 string, matching how the
// original key path grammar prints Rust's u128 nonce fields.
func nonceDecimal(n Nonce) string {
	v := new(big.Int).Mul(new(big.Int).SetUint64(n.Hi), big1e64)
	v.Add(v, new(big.Int).SetUint64(n.Lo))
	return v.String()
}

var keyPathRegexp = regexp.MustCompile(
	`/data_o(\d+)-o(\d+)_t(-?\d+)-t(-?\d+)_n(\d+)-n(\d+)_s(\d+)_p(\d+)\.bin$`,
)

// ParseKeyPath extracts a KeyPath from an object key, or ok=false if the key
// does not match the data-object grammar.
func ParseKeyPath(path string) (KeyPath, bool) {
	m := keyPathRegexp.FindStringSubmatch(path)
	if m == nil {
		return KeyPath{}, false
	}
	firstOffset, _ := strconv.ParseUint(m[1], 10, 64)
	lastOffset, _ := strconv.ParseUint(m[2], 10, 64)
	minTs, _ := strconv.ParseInt(m[3], 10, 64)
	maxTs, _ := strconv.ParseInt(m[4], 10, 64)
	firstNonce, ok1 := parseNonceDecimal(m[5])
	nextNonce, ok2 := parseNonceDecimal(m[6])
	if !ok1 || !ok2 {
		return KeyPath{}, false
	}
	size, _ := strconv.ParseUint(m[7], 10, 64)
	priorStart, _ := strconv.ParseUint(m[8], 10, 64)
	return KeyPath{
		FirstOffset:      firstOffset,
		LastOffset:       lastOffset,
		MinTimestamp:     minTs,
		MaxTimestamp:     maxTs,
		FirstNonce:       firstNonce,
		NextNonce:        nextNonce,
		Size:             size,
		PriorStartOffset: priorStart,
	}, true
}

// ParseKeyPathOrError is ParseKeyPath wrapped in a BadData error, for call
// sites that only expect to see well-formed object keys.
func ParseKeyPathOrError(path string) (KeyPath, error) {
	kp, ok := ParseKeyPath(path)
	if !ok {
		return KeyPath{}, errBadData("invalid key path %s", path)
	}
	return kp, nil
}

func parseNonceDecimal(s string) (Nonce, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 128 {
		return Nonce{}, false
	}
	mask64 := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(v, mask64).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	return Nonce{Lo: lo, Hi: hi}, true
}
