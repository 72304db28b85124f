// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package negotiate drives the two roles of a phrasepeer rendezvous.
//
// Both sides derive the same room from the shared passphrase. The
// [Initiator] opens the "chat" data channel, publishes a fully gathered
// offer with a fresh P-256 public key, and polls for the answer. The
// [Responder] polls for that offer (the first check is immediate and it
// never gives up, reporting [StillWaitingForOffer] once), applies it, and
// publishes its own gathered answer and public key. Each side then
// derives the same [e2e.SharedKey] from its private key and the other
// side's public key.
//
// The WebRTC peer and the rendezvous are reached only through the
// [Engine] and [Signaling] interfaces. Polling runs on the injected
// clock, one sequential loop per role, so tests drive it with a fake
// clock.
package negotiate
