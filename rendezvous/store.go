// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"context"
	"errors"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/ref"
)

// ErrZeroRoom is returned by every Store method given the zero RoomID.
var ErrZeroRoom = errors.New("rendezvous: zero room ID")

// Store persists one Record per room. Implementations replace whole
// records atomically and do no locking across calls: two concurrent
// read-modify-write sequences on the same room resolve last-write-wins.
type Store interface {
	// Get returns the record for room. A room that was never written,
	// was deleted, or was swept yields an empty Record stamped with
	// the current time and a nil error.
	Get(ctx context.Context, room ref.RoomID) (Record, error)

	// Put replaces the record for room, setting Updated to the current
	// time.
	Put(ctx context.Context, room ref.RoomID, record Record) error

	// Delete removes room. Deleting an absent room succeeds.
	Delete(ctx context.Context, room ref.RoomID) error

	// Sweep deletes every record whose Updated is more than the TTL in
	// the past and returns how many were removed.
	Sweep(ctx context.Context) (int, error)

	// Close releases the backend.
	Close() error
}

// stamp returns the time a Put records, truncated to whole seconds so
// every backend round-trips it exactly.
func stamp(now time.Time) time.Time {
	return now.Truncate(time.Second)
}

// emptyRecord is what Get returns for an absent room.
func emptyRecord(now time.Time) Record {
	return Record{Updated: stamp(now)}
}
