// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every package
// that persists binary records.
//
// JSON is the wire format (relay requests and responses, descriptor
// fields, the SQLite record column) because the browser client speaks
// it. CBOR is used where nothing outside this module reads the bytes:
// the bbolt rendezvous store keeps one CBOR value per room.
//
// The encoder uses Core Deterministic Encoding. Struct fields are
// named through `json` tags, which fxamacker/cbor reads when no `cbor`
// tag is present, so a single tag set describes both formats:
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
package codec
