// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// phrasepeer opens an end-to-end encrypted chat with someone who knows
// the same passphrase.
//
// One side runs "phrasepeer create", the other "phrasepeer join"; both
// type the same phrase. The phrase picks a room on the relay, where the
// two sides swap a WebRTC offer and answer together with P-256 public
// keys. Chat then runs directly between the peers, every message
// sealed with AES-256-GCM under the ECDH-derived key. "phrasepeer
// clear" empties the room; "phrasepeer room" prints the room ID a
// phrase maps to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
