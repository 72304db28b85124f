// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport is the WebRTC side of a phrasepeer session.
//
// [PeerEngine] wraps a single pion PeerConnection and exposes the
// vanilla ICE offer/answer steps as SDP strings: open the data channel,
// create and apply a description, wait for [PeerEngine.GatheringComplete],
// then publish [PeerEngine.LocalDescription] with every candidate
// embedded. Exactly one signaling round trip (offer then answer) is
// needed. The rendezvous itself is driven elsewhere; this package never
// talks to the relay.
//
// [TextChannel] is the message view of the session's one data channel.
// [ICEConfig] holds the STUN/TURN servers; [ICEConfigFromURLs] builds
// it from the configured URL list.
package transport
