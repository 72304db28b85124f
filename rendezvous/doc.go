// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package rendezvous stores the single offer and single answer that two
// peers exchange through a room.
//
// A [Store] maps a ref.RoomID to a [Record]. Records are replaced whole
// on every [Store.Put], stamped with the injected clock, and removed by
// [Store.Sweep] once they have gone untouched for longer than the TTL
// ([DefaultTTL] unless configured). The signaling package owns the
// state machine; stores only persist what it hands them.
//
// Three backends share the interface:
//
//   - [MemoryStore]: a mutex-guarded map, for tests and single-process
//     relays that can lose rooms on restart.
//   - [SQLiteStore]: one row per room, upserted in a single statement,
//     with an index on the timestamp column for sweeping.
//   - [BoltStore]: a bbolt file with a CBOR record bucket and a
//     time-ordered expiry bucket.
//
// [Open] picks one from configuration.
package rendezvous
