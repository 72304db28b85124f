// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay exposes the signaling service over HTTP.
//
// The wire protocol is a single endpoint taking form POSTs (url-encoded
// or multipart, so a browser's FormData works unchanged). The "action"
// field picks one of post-offer, get-offer, post-answer, get-answer and
// clear; "room" is the 64-hex room ID and descriptors travel as JSON
// strings in the "offer" and "answer" fields. Every response is JSON
// with an "ok" flag; failures carry an "error" string and a 400, 405,
// 409, 413 or 500 status. get-offer and get-answer take an optional
// "wait" in milliseconds and then hold the request open until the
// descriptor is posted.
//
// [Handler] serves the endpoint, [Server] runs it with graceful
// shutdown, and [Client] speaks it from the other side. [Advertise] and
// [Discover] find a relay on the local network over mDNS.
package relay
