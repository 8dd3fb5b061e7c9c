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
	"gopkg.in/ini.v1"

	klstore "github.com/launix-de/klog/store"
)

// BridgeConfig describes how a Bridge turns a consumed Message into an
// Append call: which fields carry the keyspace, key, optional nonce, and
// optional timestamp, plus how often to flush and commit.
type BridgeConfig struct {
	NonceExtractor              NumberExtractor
	TimestampExtractor          NumberExtractor
	KeyspaceExtractor           UTF8Extractor
	KeyExtractor                UTF8Extractor
	OffsetCommitIntervalMillis uint64
}

// DefaultBridgeConfig commits offsets once a second, with no nonce or
// timestamp extraction configured (both must be set explicitly, since
// getting them wrong silently corrupts dedup/ordering).
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		NonceExtractor:             NoNumber(),
		TimestampExtractor:         NoNumber(),
		KeyspaceExtractor:          NoUTF8(),
		KeyExtractor:               NoUTF8(),
		OffsetCommitIntervalMillis: 1000,
	}
}

// Validate rejects a config Bridge could not safely start against: every
// message needs a keyspace and a key to be Append-able at all.
func (c BridgeConfig) Validate() error {
	if c.KeyspaceExtractor == NoUTF8() {
		return klstore.NewBadConfigError("ingest keyspace_extractor not defined")
	}
	if c.KeyExtractor == NoUTF8() {
		return klstore.NewBadConfigError("ingest key_extractor not defined")
	}
	return nil
}

// LoadBridgeConfig reads BridgeConfig from the "[ingest]" section of an
// already-parsed INI file (extractor grammar per extractor.go), starting from
// DefaultBridgeConfig for anything left unset.
func LoadBridgeConfig(file *ini.File) (BridgeConfig, error) {
	section, err := file.GetSection("ingest")
	if err != nil {
		return BridgeConfig{}, klstore.NewBadConfigError("[ingest] config missing")
	}
	cfg := DefaultBridgeConfig()

	if section.HasKey("offset_commit_interval_millis") {
		v, err := section.Key("offset_commit_interval_millis").Uint64()
		if err != nil {
			return BridgeConfig{}, klstore.NewBadConfigError("ingest offset_commit_interval_millis")
		}
		cfg.OffsetCommitIntervalMillis = v
	}
	if section.HasKey("nonce_extractor") {
		cfg.NonceExtractor, err = ParseNumberExtractor(section.Key("nonce_extractor").String())
		if err != nil {
			return BridgeConfig{}, err
		}
	}
	if section.HasKey("timestamp_extractor") {
		cfg.TimestampExtractor, err = ParseNumberExtractor(section.Key("timestamp_extractor").String())
		if err != nil {
			return BridgeConfig{}, err
		}
	}
	if section.HasKey("keyspace_extractor") {
		cfg.KeyspaceExtractor, err = ParseUTF8Extractor(section.Key("keyspace_extractor").String())
		if err != nil {
			return BridgeConfig{}, err
		}
	}
	if section.HasKey("key_extractor") {
		cfg.KeyExtractor, err = ParseUTF8Extractor(section.Key("key_extractor").String())
		if err != nil {
			return BridgeConfig{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}
