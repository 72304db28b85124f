// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package passphrase turns a memorized phrase into a room identifier.
//
// Two people who type "Rød bil, kage & kaffe!" and "rød BIL kage kaffe"
// must meet in the same room, so [Normalize] discards case, spacing,
// digits, and punctuation before [DeriveRoomID] hashes what is left.
// Phrases with fewer than [MinLetters] letters are refused.
package passphrase
