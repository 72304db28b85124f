// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat runs an end-to-end encrypted text conversation over an
// established data channel. Every frame on the wire is the base64
// iv||ciphertext blob produced by the e2e package.
package chat
