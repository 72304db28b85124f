// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool wraps zombiezen.com/go/sqlite's sqlitex.Pool with
// the pragmas every Phrasepeer database uses: WAL journaling, NORMAL
// synchronous, a five second busy timeout, and in-memory temp storage.
//
// Callers [Pool.Take] a connection, run statements with sqlitex, and
// [Pool.Put] it back. Schema setup belongs in [Config.OnConnect], which
// runs once for every new connection.
package sqlitepool
