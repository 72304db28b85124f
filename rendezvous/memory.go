// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"context"
	"sync"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/ref"
)

// MemoryStore keeps records in a map. Records are copied on the way in
// and out. Contents do not survive a restart.
type MemoryStore struct {
	clock clock.Clock
	ttl   time.Duration

	mu    sync.Mutex
	rooms map[ref.RoomID]Record
}

// NewMemoryStore returns an empty store. A non-positive ttl selects
// DefaultTTL.
func NewMemoryStore(clk clock.Clock, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{clock: clk, ttl: ttl, rooms: make(map[ref.RoomID]Record)}
}

func (s *MemoryStore) Get(ctx context.Context, room ref.RoomID) (Record, error) {
	if room.IsZero() {
		return Record{}, ErrZeroRoom
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.rooms[room]
	if !ok {
		return emptyRecord(s.clock.Now()), nil
	}
	return record.clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, room ref.RoomID, record Record) error {
	if room.IsZero() {
		return ErrZeroRoom
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	stored := record.clone()
	stored.Updated = stamp(s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, room ref.RoomID) error {
	if room.IsZero() {
		return ErrZeroRoom
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, room)
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for room, record := range s.rooms {
		if record.Expired(now, s.ttl) {
			delete(s.rooms, room)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored rooms.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

func (s *MemoryStore) Close() error { return nil }
