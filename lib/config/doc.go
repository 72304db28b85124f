// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the Phrasepeer configuration file.
//
// One file configures both binaries. It is named by the --config flag
// or the PHRASEPEER_CONFIG environment variable; there is no search
// path. Without either, [Resolve] uses [Default]. YAML is the native
// format; files ending in .json or .jsonc are accepted and may carry
// comments.
//
//	relay:
//	  listen: 0.0.0.0:8787
//	  max_wait: 25s
//	store:
//	  backend: sqlite
//	  path: ${HOME}/.local/state/phrasepeer/rooms.db
//	  ttl: 2h
//	client:
//	  relay_url: https://relay.example.org/
//	  kdf: raw
//
// Only store.path goes through ${VAR} and ${VAR:-default} expansion.
// Environment variables never override values set in the file.
package config
