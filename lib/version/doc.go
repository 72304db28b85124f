// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package version carries build information for the phrasepeer
// binaries. [GitCommit], [GitDirty], [BuildTime] and [Version] are
// injected with -ldflags -X and default to "unknown" / "0.1.0-dev" in
// development builds and tests.
//
//	go build -ldflags "-X github.com/phrasepeer/phrasepeer/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
