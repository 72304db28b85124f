// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package e2e derives the channel key and encrypts chat payloads.
//
// Each peer calls [GenerateKeyPair] once per negotiation and publishes
// the base64 public key next to its session description. After
// reading the other side's descriptor it calls [DeriveSharedKey]; both
// arrive at the same AES-256 key without the relay learning it.
//
// Messages are sealed with AES-GCM under a fresh 96-bit random nonce
// and framed as base64(nonce || ciphertext || tag), the format browser
// peers produce with WebCrypto. [Decrypt] returns a [CryptoError] for
// any damaged, truncated, or foreign message.
package e2e
