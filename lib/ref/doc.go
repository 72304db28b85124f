// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides validated identifier types.
//
// [RoomID] is the only identity in the system: the hex SHA-256 of a
// normalized passphrase. It is constructed by lib/passphrase or parsed
// from the wire with [ParseRoomID], and flows unchanged into store keys,
// relay form fields, and log attributes. JSON and CBOR marshaling use
// the hex form through encoding.TextMarshaler.
package ref
