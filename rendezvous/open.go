// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"fmt"
	"log/slog"

	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/config"
)

// Open constructs the backend named by cfg.Backend. The caller must
// Close the returned store.
func Open(cfg config.StoreConfig, clk clock.Clock, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(clk, cfg.TTL), nil
	case config.BackendSQLite:
		return OpenSQLite(SQLiteConfig{Path: cfg.Path, TTL: cfg.TTL, Clock: clk, Logger: logger})
	case config.BackendBolt:
		return OpenBolt(BoltConfig{Path: cfg.Path, TTL: cfg.TTL, Clock: clk, Logger: logger})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
