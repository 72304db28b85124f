// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/codec"
	"github.com/phrasepeer/phrasepeer/lib/ref"
)

var (
	// roomsBucket maps room ID to a CBOR Record.
	roomsBucket = []byte("rooms")

	// expiryBucket is the TTL index: keys are the 8-byte big-endian
	// unix timestamp followed by the room ID, values are empty. Keys
	// sort by time, so Sweep stops at the first young entry.
	expiryBucket = []byte("expiry")
)

// BoltConfig holds the parameters for OpenBolt.
type BoltConfig struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// TTL is the sweep threshold. Zero selects DefaultTTL.
	TTL time.Duration

	// Clock stamps records and decides expiry. Required.
	Clock clock.Clock

	// Logger receives open and sweep messages. Required.
	Logger *slog.Logger
}

// BoltStore keeps rooms in a bbolt file. Every mutation is a single
// read-write transaction covering both buckets.
type BoltStore struct {
	db     *bolt.DB
	clock  clock.Clock
	ttl    time.Duration
	logger *slog.Logger
}

// OpenBolt opens or creates the database at cfg.Path. bbolt holds an
// exclusive file lock, so a second relay on the same file fails after
// a one second wait instead of blocking forever.
func OpenBolt(cfg BoltConfig) (*BoltStore, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("bolt store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("bolt store: Logger is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt store: opening %s: %w", cfg.Path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{roomsBucket, expiryBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt store: %w", err)
	}

	cfg.Logger.Info("bolt store opened", "path", cfg.Path)
	return &BoltStore{db: db, clock: cfg.Clock, ttl: ttl, logger: cfg.Logger}, nil
}

func expiryKey(updated time.Time, room string) []byte {
	key := make([]byte, 8, 8+len(room))
	binary.BigEndian.PutUint64(key, uint64(updated.Unix()))
	return append(key, room...)
}

// loadRecord decodes the stored record for room, if any.
func loadRecord(rooms *bolt.Bucket, room []byte) (Record, bool, error) {
	data := rooms.Get(room)
	if data == nil {
		return Record{}, false, nil
	}
	var record Record
	if err := codec.Unmarshal(data, &record); err != nil {
		return Record{}, false, fmt.Errorf("decoding %s: %w", room, err)
	}
	return record, true, nil
}

// removeRoom deletes room and its index entry inside tx.
func removeRoom(tx *bolt.Tx, room []byte) error {
	rooms := tx.Bucket(roomsBucket)
	existing, found, err := loadRecord(rooms, room)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := tx.Bucket(expiryBucket).Delete(expiryKey(existing.Updated, string(room))); err != nil {
		return err
	}
	return rooms.Delete(room)
}

func (s *BoltStore) Get(ctx context.Context, room ref.RoomID) (Record, error) {
	if room.IsZero() {
		return Record{}, ErrZeroRoom
	}
	var (
		record Record
		found  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		record, found, err = loadRecord(tx.Bucket(roomsBucket), []byte(room.String()))
		return err
	})
	if err != nil {
		return Record{}, fmt.Errorf("bolt store: get %s: %w", room.Short(), err)
	}
	if !found {
		return emptyRecord(s.clock.Now()), nil
	}
	return record, nil
}

func (s *BoltStore) Put(ctx context.Context, room ref.RoomID, record Record) error {
	if room.IsZero() {
		return ErrZeroRoom
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Updated = stamp(s.clock.Now())
	encoded, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("bolt store: encoding %s: %w", room.Short(), err)
	}

	key := []byte(room.String())
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := removeRoom(tx, key); err != nil {
			return err
		}
		if err := tx.Bucket(roomsBucket).Put(key, encoded); err != nil {
			return err
		}
		return tx.Bucket(expiryBucket).Put(expiryKey(record.Updated, room.String()), nil)
	})
	if err != nil {
		return fmt.Errorf("bolt store: put %s: %w", room.Short(), err)
	}
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		if diagnostic, err := codec.Diagnose(encoded); err == nil {
			s.logger.Debug("stored room", "backend", "bolt", "room", room.Short(), "record", diagnostic)
		}
	}
	return nil
}

func (s *BoltStore) Delete(ctx context.Context, room ref.RoomID) error {
	if room.IsZero() {
		return ErrZeroRoom
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return removeRoom(tx, []byte(room.String()))
	})
	if err != nil {
		return fmt.Errorf("bolt store: delete %s: %w", room.Short(), err)
	}
	return nil
}

func (s *BoltStore) Sweep(ctx context.Context) (int, error) {
	now := s.clock.Now()
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		// Collect first: bbolt cursors do not tolerate deletes of
		// keys they have not yet visited.
		var expired [][]byte
		cursor := tx.Bucket(expiryBucket).Cursor()
		for key, _ := cursor.First(); key != nil; key, _ = cursor.Next() {
			if len(key) < 8 {
				continue
			}
			updated := time.Unix(int64(binary.BigEndian.Uint64(key[:8])), 0)
			if !(Record{Updated: updated}).Expired(now, s.ttl) {
				break
			}
			expired = append(expired, bytes.Clone(key))
		}

		rooms := tx.Bucket(roomsBucket)
		index := tx.Bucket(expiryBucket)
		for _, key := range expired {
			if err := index.Delete(key); err != nil {
				return err
			}
			if err := rooms.Delete(key[8:]); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("bolt store: sweep: %w", err)
	}
	if removed > 0 {
		s.logger.Debug("swept expired rooms", "backend", "bolt", "removed", removed)
	}
	return removed, nil
}

func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("bolt store: close: %w", err)
	}
	return nil
}
