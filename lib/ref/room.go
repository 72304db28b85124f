// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// roomIDLength is the hex length of a SHA-256 digest.
const roomIDLength = sha256.Size * 2

// RoomID identifies a rendezvous room: the lowercase hex SHA-256 of a
// normalized passphrase.
//
// Room IDs are derived, never chosen. Code outside lib/passphrase only
// receives them from the wire, where ParseRoomID rejects anything that
// is not exactly 64 lowercase hex characters.
//
// RoomID is an immutable value type. The zero value is not valid; use
// IsZero to check.
type RoomID struct {
	id string
}

// ParseRoomID validates a room ID received from a peer or a relay.
// Uppercase hex is rejected rather than folded so that one room has
// exactly one spelling.
func ParseRoomID(raw string) (RoomID, error) {
	if raw == "" {
		return RoomID{}, fmt.Errorf("empty room ID")
	}
	if len(raw) != roomIDLength {
		return RoomID{}, fmt.Errorf("room ID must be %d hex characters, got %d", roomIDLength, len(raw))
	}
	for index := 0; index < len(raw); index++ {
		c := raw[index]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return RoomID{}, fmt.Errorf("room ID has non-hex character %q at offset %d", c, index)
		}
	}
	return RoomID{id: raw}, nil
}

// RoomIDFromDigest wraps a SHA-256 digest.
func RoomIDFromDigest(digest [sha256.Size]byte) RoomID {
	return RoomID{id: hex.EncodeToString(digest[:])}
}

// String returns the 64-character hex form.
func (r RoomID) String() string { return r.id }

// Short returns the first 12 characters, for logs and status lines.
func (r RoomID) Short() string {
	if len(r.id) < 12 {
		return r.id
	}
	return r.id[:12]
}

// IsZero reports whether the RoomID is the zero value.
func (r RoomID) IsZero() bool { return r.id == "" }

// MarshalText implements encoding.TextMarshaler. The zero value cannot
// be marshaled.
func (r RoomID) MarshalText() ([]byte, error) {
	if r.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero RoomID")
	}
	return []byte(r.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RoomID) UnmarshalText(data []byte) error {
	parsed, err := ParseRoomID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
