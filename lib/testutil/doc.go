// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] wrap the select
// with a wall-clock fallback so a broken test fails instead of hanging.
// They are the only place tests touch real timers; everything else
// drives time through clock.Fake.
//
// [UniqueID] returns distinct identifiers for messages and passphrases
// that must not collide between subtests.
package testutil
