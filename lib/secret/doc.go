// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps key material out of the Go heap.
//
// A [Buffer] is an anonymous mmap region locked with mlock and marked
// MADV_DONTDUMP. The garbage collector never sees it, so it is never
// copied, and Close zeroes it before unmapping. The channel cipher
// keeps each derived AES key in a Buffer, and the CLI reads
// passphrase files through [ReadFromPath].
package secret
