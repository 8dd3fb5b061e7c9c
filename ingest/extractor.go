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

// Package ingest bridges a message-bus consumer loop to a store.Writer,
// without depending on any specific broker client.
package ingest

import (
	"encoding/binary"
	"regexp"
	"strconv"

	klstore "github.com/launix-de/klog/store"
)

// Message is the minimal shape ingest needs from a consumed record. Any
// broker client's message type can satisfy this through a small adapter,
// which keeps this package free of a dependency on a specific bus client.
type Message interface {
	Key() []byte
	Value() []byte
	Offset() int64
	Partition() int32
	Header(name string) ([]byte, bool)
}

// numberKind selects how NumberExtractor pulls a numeric field off a Message.
type numberKind int

const (
	numberNone numberKind = iota
	numberHeaderBigEndian
	numberHeaderLittleEndian
	numberHeaderUTF8
	numberKeyBigEndian
	numberKeyLittleEndian
	numberKeyUTF8
	numberOffset
	numberPartition
)

// NumberExtractor pulls an optional 128-bit (nonce) or 64-bit (timestamp)
// number out of a Message, the way kafka/parse.rs's KafkaConsumerNumberParser
// does for the original's nonce/timestamp fields.
type NumberExtractor struct {
	kind numberKind
	name string // header name, when kind is one of the Header* variants
}

// NoNumber extracts nothing; the corresponding field is always absent.
func NoNumber() NumberExtractor { return NumberExtractor{kind: numberNone} }

var argExtractorRegexp = regexp.MustCompile(`^(.+)\((.+)\)$`)

// ParseNumberExtractor parses the "Name" / "Name(arg)" grammar used by INI
// configuration: bare names for parser-less variants ("RecordOffset",
// "RecordKeyUtf8", ...), "RecordHeaderUtf8(traceparent)" for header-keyed
// ones. An empty string means NoNumber().
func ParseNumberExtractor(cfg string) (NumberExtractor, error) {
	switch cfg {
	case "":
		return NoNumber(), nil
	case "None":
		return NoNumber(), nil
	case "RecordKeyBigEndian":
		return NumberExtractor{kind: numberKeyBigEndian}, nil
	case "RecordKeyLittleEndian":
		return NumberExtractor{kind: numberKeyLittleEndian}, nil
	case "RecordKeyUtf8":
		return NumberExtractor{kind: numberKeyUTF8}, nil
	case "RecordOffset":
		return NumberExtractor{kind: numberOffset}, nil
	case "RecordPartition":
		return NumberExtractor{kind: numberPartition}, nil
	}
	if m := argExtractorRegexp.FindStringSubmatch(cfg); m != nil {
		switch m[1] {
		case "RecordHeaderBigEndian":
			return NumberExtractor{kind: numberHeaderBigEndian, name: m[2]}, nil
		case "RecordHeaderLittleEndian":
			return NumberExtractor{kind: numberHeaderLittleEndian, name: m[2]}, nil
		case "RecordHeaderUtf8":
			return NumberExtractor{kind: numberHeaderUTF8, name: m[2]}, nil
		}
	}
	return NumberExtractor{}, klstore.NewBadConfigError("invalid number extractor: %s", cfg)
}

// ExtractU128 extracts a nonce-shaped value. nil means absent.
func (e NumberExtractor) ExtractU128(msg Message) (*klstore.Nonce, error) {
	raw, err := e.extractBytesOrOffset(msg)
	if err != nil || raw == nil {
		return nil, err
	}
	return parseNonceBytes(raw, e.kind)
}

// ExtractI64 extracts a timestamp-shaped value. nil means absent (stamp at
// ingest time).
func (e NumberExtractor) ExtractI64(msg Message) (*int64, error) {
	raw, err := e.extractBytesOrOffset(msg)
	if err != nil || raw == nil {
		return nil, err
	}
	return parseInt64Bytes(raw, e.kind)
}

// extractBytesOrOffset resolves the source bytes (or encodes offset/partition
// as bytes) common to both ExtractU128 and ExtractI64, so their per-kind
// decode logic can stay separate while the field-selection logic is shared.
func (e NumberExtractor) extractBytesOrOffset(msg Message) ([]byte, error) {
	switch e.kind {
	case numberNone:
		return nil, nil
	case numberOffset:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(msg.Offset()))
		return buf[:], nil
	case numberPartition:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(msg.Partition()))
		return buf[:], nil
	case numberKeyBigEndian, numberKeyLittleEndian, numberKeyUTF8:
		k := msg.Key()
		if k == nil {
			return nil, nil
		}
		return k, nil
	case numberHeaderBigEndian, numberHeaderLittleEndian, numberHeaderUTF8:
		v, ok := msg.Header(e.name)
		if !ok {
			return nil, nil
		}
		return v, nil
	}
	return nil, nil
}

func parseNonceBytes(raw []byte, kind numberKind) (*klstore.Nonce, error) {
	if kind == numberOffset {
		n := klstore.NewNonce(binary.BigEndian.Uint64(raw))
		return &n, nil
	}
	if kind == numberPartition {
		n := klstore.NewNonce(uint64(binary.BigEndian.Uint32(raw)))
		return &n, nil
	}
	if kind == numberKeyUTF8 || kind == numberHeaderUTF8 {
		v, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return nil, klstore.NewBadDataError("utf8 %q not a number", string(raw))
		}
		n := klstore.NewNonce(v)
		return &n, nil
	}
	le := kind == numberKeyLittleEndian || kind == numberHeaderLittleEndian
	v, err := decodeUint128(raw, le)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt64Bytes(raw []byte, kind numberKind) (*int64, error) {
	if kind == numberOffset {
		v := int64(binary.BigEndian.Uint64(raw))
		return &v, nil
	}
	if kind == numberPartition {
		v := int64(int32(binary.BigEndian.Uint32(raw)))
		return &v, nil
	}
	if kind == numberKeyUTF8 || kind == numberHeaderUTF8 {
		v, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, klstore.NewBadDataError("utf8 %q not an i64", string(raw))
		}
		return &v, nil
	}
	le := kind == numberKeyLittleEndian || kind == numberHeaderLittleEndian
	var order binary.ByteOrder = binary.BigEndian
	if le {
		order = binary.LittleEndian
	}
	switch len(raw) {
	case 1:
		v := int64(int8(raw[0]))
		return &v, nil
	case 2:
		v := int64(int16(order.Uint16(raw)))
		return &v, nil
	case 4:
		v := int64(int32(order.Uint32(raw)))
		return &v, nil
	case 8:
		v := int64(order.Uint64(raw))
		return &v, nil
	default:
		return nil, klstore.NewBadDataError("i64 field size %d", len(raw))
	}
}

// decodeUint128 decodes a fixed-width little- or big-endian integer into a
// Nonce, accepting the same 1/2/4/8/16-byte widths as the original's
// parse_le_as_u128/parse_be_as_u128.
func decodeUint128(raw []byte, littleEndian bool) (klstore.Nonce, error) {
	b := raw
	if littleEndian {
		b = make([]byte, len(raw))
		for i, v := range raw {
			b[len(raw)-1-i] = v
		}
	}
	switch len(b) {
	case 1:
		return klstore.NewNonce(uint64(b[0])), nil
	case 2:
		return klstore.NewNonce(uint64(binary.BigEndian.Uint16(b))), nil
	case 4:
		return klstore.NewNonce(uint64(binary.BigEndian.Uint32(b))), nil
	case 8:
		return klstore.NewNonce(binary.BigEndian.Uint64(b)), nil
	case 16:
		return klstore.Nonce{
			Hi: binary.BigEndian.Uint64(b[:8]),
			Lo: binary.BigEndian.Uint64(b[8:]),
		}, nil
	default:
		order := "big"
		if littleEndian {
			order = "little"
		}
		return klstore.Nonce{}, klstore.NewBadDataError("u128 %s endian field size %d", order, len(raw))
	}
}

// utf8Kind selects how UTF8Extractor pulls a string field off a Message.
type utf8Kind int

const (
	utf8None utf8Kind = iota
	utf8Static
	utf8Header
	utf8Key
	utf8Partition
)

// UTF8Extractor pulls a string field (keyspace, key, or a header value) out
// of a Message, matching kafka/parse.rs's KafkaConsumerUtf8Parser.
type UTF8Extractor struct {
	kind  utf8Kind
	value string // static value, or header name when kind is utf8Header
}

// NoUTF8 extracts nothing.
func NoUTF8() UTF8Extractor { return UTF8Extractor{kind: utf8None} }

// ParseUTF8Extractor parses the "Name" / "Name(arg)" grammar: "RecordKey",
// "RecordPartition", "Static(some-literal)", "RecordHeader(name)".
func ParseUTF8Extractor(cfg string) (UTF8Extractor, error) {
	switch cfg {
	case "":
		return NoUTF8(), nil
	case "None":
		return NoUTF8(), nil
	case "RecordKey":
		return UTF8Extractor{kind: utf8Key}, nil
	case "RecordPartition":
		return UTF8Extractor{kind: utf8Partition}, nil
	}
	if m := argExtractorRegexp.FindStringSubmatch(cfg); m != nil {
		switch m[1] {
		case "Static":
			return UTF8Extractor{kind: utf8Static, value: m[2]}, nil
		case "RecordHeader":
			return UTF8Extractor{kind: utf8Header, value: m[2]}, nil
		}
	}
	return UTF8Extractor{}, klstore.NewBadConfigError("invalid utf8 extractor: %s", cfg)
}

// ExtractOptional returns the extracted string, or ok=false when the
// extractor is None or the underlying field is absent.
func (e UTF8Extractor) ExtractOptional(msg Message) (string, bool, error) {
	switch e.kind {
	case utf8None:
		return "", false, nil
	case utf8Static:
		return e.value, true, nil
	case utf8Key:
		if msg.Key() == nil {
			return "", false, nil
		}
		return string(msg.Key()), true, nil
	case utf8Partition:
		return strconv.Itoa(int(msg.Partition())), true, nil
	case utf8Header:
		v, ok := msg.Header(e.value)
		if !ok {
			return "", false, nil
		}
		return string(v), true, nil
	}
	return "", false, nil
}

// ExtractRequired is ExtractOptional for a field the bridge cannot proceed
// without (keyspace, key): absence is a bad-data error, not a skip.
func (e UTF8Extractor) ExtractRequired(msg Message) (string, error) {
	v, ok, err := e.ExtractOptional(msg)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", klstore.NewBadDataError("required field not present")
	}
	return v, nil
}
