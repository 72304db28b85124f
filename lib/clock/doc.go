// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Anything that reads the wall clock or waits on a timer takes a
// [Clock]: rendezvous stores stamp and expire records with Now, and
// the negotiation loops poll with NewTicker and bound ICE gathering
// with After. [Real] wraps the time package. [Fake] returns a
// [FakeClock] whose time moves only when Advance is called, which
// makes TTL expiry and poll cadence deterministic in tests:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store := rendezvous.NewMemoryStore(fake, 2*time.Hour)
//	fake.Advance(2*time.Hour + time.Second)
//
// Use [FakeClock.WaitForTimers] to wait until a goroutine has
// registered its timer before advancing past it.
package clock
