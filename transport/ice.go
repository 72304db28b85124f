// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"strings"

	"github.com/pion/webrtc/v4"
)

// ICEConfig holds ICE server configuration for WebRTC PeerConnections.
type ICEConfig struct {
	// Servers is the list of ICE servers (STUN and TURN) to use during
	// candidate gathering. Order matters: pion tries them in sequence.
	Servers []webrtc.ICEServer
}

// ICEConfigFromURLs builds an ICEConfig with one server entry per URL.
// Blank entries are skipped. An empty list yields a config with only
// host candidates, which is enough for same-machine and same-LAN peers.
//
// A URL may carry credentials as "turn:user:password@host:port"; they
// are split out into the Username and Credential fields pion expects.
func ICEConfigFromURLs(urls []string) ICEConfig {
	var config ICEConfig
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		config.Servers = append(config.Servers, parseICEServer(raw))
	}
	return config
}

func parseICEServer(raw string) webrtc.ICEServer {
	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok || (scheme != "turn" && scheme != "turns") {
		return webrtc.ICEServer{URLs: []string{raw}}
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return webrtc.ICEServer{URLs: []string{raw}}
	}
	username, password, _ := strings.Cut(userinfo, ":")
	return webrtc.ICEServer{
		URLs:       []string{scheme + ":" + host},
		Username:   username,
		Credential: password,
	}
}
