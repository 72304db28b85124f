// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling implements the rendezvous protocol: the initiator
// posts one offer, the responder posts one answer, and either side may
// clear the room.
//
// [Service] validates every request before touching the store. A zero
// room ID, or a descriptor missing its SDP or public key or carrying
// the wrong type, fails with [ValidationError]. An answer to a room
// without an offer fails with [ConflictError]. Both carry the reason
// string that the relay sends back to clients, and an HTTPStatus for
// the response code.
//
// Every mutation first sweeps expired rooms from the store. Sweep
// failures are logged and ignored. Store read failures are treated as
// an empty room, since both peers keep polling and a human can retry.
//
// [Service.Watch] lets the relay hold a request open until a
// descriptor arrives instead of making clients poll.
package signaling
