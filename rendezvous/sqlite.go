// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/lib/sqlitepool"
)

// sqliteSchema holds one row per room. The record column is the JSON
// form of Record; ts duplicates its timestamp so Sweep can use the
// index instead of decoding rows.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	room   TEXT PRIMARY KEY,
	record TEXT NOT NULL,
	ts     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS rooms_ts ON rooms (ts);
`

// SQLiteConfig holds the parameters for OpenSQLite.
type SQLiteConfig struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize is passed to sqlitepool. Zero selects its default.
	PoolSize int

	// TTL is the sweep threshold. Zero selects DefaultTTL.
	TTL time.Duration

	// Clock stamps records and decides expiry. Required.
	Clock clock.Clock

	// Logger receives pool and sweep messages. Required.
	Logger *slog.Logger
}

// SQLiteStore keeps rooms in a SQLite database. Each Put is a single
// upsert statement, so a record is replaced whole or not at all.
type SQLiteStore struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	ttl    time.Duration
	logger *slog.Logger
}

// OpenSQLite opens or creates the database at cfg.Path.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("sqlite store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("sqlite store: Logger is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, sqliteSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}

	return &SQLiteStore{pool: pool, clock: cfg.Clock, ttl: ttl, logger: cfg.Logger}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, room ref.RoomID) (Record, error) {
	if room.IsZero() {
		return Record{}, ErrZeroRoom
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("sqlite store: get %s: %w", room.Short(), err)
	}
	defer s.pool.Put(conn)

	var (
		found bool
		raw   string
	)
	err = sqlitex.Execute(conn, "SELECT record FROM rooms WHERE room = ?", &sqlitex.ExecOptions{
		Args: []any{room.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			raw = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		return Record{}, fmt.Errorf("sqlite store: get %s: %w", room.Short(), err)
	}
	if !found {
		return emptyRecord(s.clock.Now()), nil
	}

	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Record{}, fmt.Errorf("sqlite store: decoding %s: %w", room.Short(), err)
	}
	return record, nil
}

func (s *SQLiteStore) Put(ctx context.Context, room ref.RoomID, record Record) error {
	if room.IsZero() {
		return ErrZeroRoom
	}
	record.Updated = stamp(s.clock.Now())
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sqlite store: encoding %s: %w", room.Short(), err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: put %s: %w", room.Short(), err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO rooms (room, record, ts) VALUES (?, ?, ?)
		ON CONFLICT (room) DO UPDATE SET record = excluded.record, ts = excluded.ts`,
		&sqlitex.ExecOptions{Args: []any{room.String(), string(encoded), record.Updated.Unix()}})
	if err != nil {
		return fmt.Errorf("sqlite store: put %s: %w", room.Short(), err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, room ref.RoomID) error {
	if room.IsZero() {
		return ErrZeroRoom
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: delete %s: %w", room.Short(), err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, "DELETE FROM rooms WHERE room = ?", &sqlitex.ExecOptions{
		Args: []any{room.String()},
	}); err != nil {
		return fmt.Errorf("sqlite store: delete %s: %w", room.Short(), err)
	}
	return nil
}

func (s *SQLiteStore) Sweep(ctx context.Context) (int, error) {
	// A record is expired when now - ts > ttl in whole seconds, so
	// anything strictly below the cutoff goes.
	cutoff := stamp(s.clock.Now()).Add(-s.ttl)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite store: sweep: %w", err)
	}
	defer s.pool.Put(conn)

	// A ttl with a fractional second moves the cutoff past the rows
	// stamped in its second.
	threshold := cutoff.Unix()
	if cutoff.Nanosecond() > 0 {
		threshold++
	}
	if err := sqlitex.Execute(conn, "DELETE FROM rooms WHERE ts < ?", &sqlitex.ExecOptions{
		Args: []any{threshold},
	}); err != nil {
		return 0, fmt.Errorf("sqlite store: sweep: %w", err)
	}
	removed := conn.Changes()
	if removed > 0 {
		s.logger.Debug("swept expired rooms", "backend", "sqlite", "removed", removed)
	}
	return removed, nil
}

func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}
