// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/phrasepeer/phrasepeer/rendezvous"
)

// ErrConnectionFailed is returned by [PeerEngine.AwaitChannel] when the
// PeerConnection fails or closes before a data channel opens.
var ErrConnectionFailed = errors.New("peer connection failed")

// PeerEngine is one side of a two-party WebRTC session. It wraps a pion
// PeerConnection and exposes the offer/answer steps as plain SDP
// strings, so the negotiation logic never touches pion types.
//
// Signaling is vanilla ICE: callers wait on [PeerEngine.GatheringComplete]
// after setting the local description and then publish
// [PeerEngine.LocalDescription], which carries every gathered candidate.
//
// Exactly one data channel is expected per session. The initiator opens
// it with [PeerEngine.OpenDataChannel]; the responder receives it from
// the remote side. Either way it is delivered through
// [PeerEngine.AwaitChannel] once open.
type PeerEngine struct {
	connection *webrtc.PeerConnection
	logger     *slog.Logger

	// gathered is closed when ICE candidate gathering finishes. It is
	// registered at construction so it is in place before the first
	// SetLocalDescription starts gathering.
	gathered <-chan struct{}

	// channels carries the first data channel to open. Later channels
	// are closed on arrival.
	channels chan *TextChannel

	failed     chan struct{}
	failedOnce sync.Once
}

// NewPeerEngine creates a PeerConnection using the given ICE servers.
// Loopback candidates are included so two engines on one machine can
// reach each other with no STUN server at all.
func NewPeerEngine(ice ICEConfig, logger *slog.Logger) (*PeerEngine, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	connection, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: ice.Servers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	engine := &PeerEngine{
		connection: connection,
		logger:     logger,
		gathered:   webrtc.GatheringCompletePromise(connection),
		channels:   make(chan *TextChannel, 1),
		failed:     make(chan struct{}),
	}
	connection.OnDataChannel(func(channel *webrtc.DataChannel) {
		logger.Debug("inbound data channel received", "label", channel.Label())
		engine.watchChannel(channel)
	})
	connection.OnConnectionStateChange(engine.handleStateChange)
	return engine, nil
}

// OpenDataChannel creates an ordered, reliable data channel. It must be
// called before [PeerEngine.CreateOffer] so the offer carries an
// application section.
func (e *PeerEngine) OpenDataChannel(label string) error {
	ordered := true
	channel, err := e.connection.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return fmt.Errorf("creating data channel %s: %w", label, err)
	}
	e.watchChannel(channel)
	return nil
}

// CreateOffer returns a new SDP offer. It does not apply it.
func (e *PeerEngine) CreateOffer() (string, error) {
	offer, err := e.connection.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("creating SDP offer: %w", err)
	}
	return offer.SDP, nil
}

// CreateAnswer returns an SDP answer to the applied remote offer.
func (e *PeerEngine) CreateAnswer() (string, error) {
	answer, err := e.connection.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("creating SDP answer: %w", err)
	}
	return answer.SDP, nil
}

// SetLocalDescription applies a local offer or answer and starts ICE
// gathering.
func (e *PeerEngine) SetLocalDescription(kind rendezvous.Kind, sdp string) error {
	description, err := sessionDescription(kind, sdp)
	if err != nil {
		return err
	}
	if err := e.connection.SetLocalDescription(description); err != nil {
		return fmt.Errorf("setting local description: %w", err)
	}
	return nil
}

// SetRemoteDescription applies the peer's offer or answer.
func (e *PeerEngine) SetRemoteDescription(kind rendezvous.Kind, sdp string) error {
	description, err := sessionDescription(kind, sdp)
	if err != nil {
		return err
	}
	if err := e.connection.SetRemoteDescription(description); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}
	return nil
}

// LocalDescription returns the current local SDP including every
// candidate gathered so far, or "" before SetLocalDescription.
func (e *PeerEngine) LocalDescription() string {
	description := e.connection.LocalDescription()
	if description == nil {
		return ""
	}
	return description.SDP
}

// GatheringComplete is closed when ICE candidate gathering finishes.
func (e *PeerEngine) GatheringComplete() <-chan struct{} {
	return e.gathered
}

// AwaitChannel blocks until the session's data channel is open. It
// returns [ErrConnectionFailed] if the connection fails first.
func (e *PeerEngine) AwaitChannel(ctx context.Context) (*TextChannel, error) {
	select {
	case channel := <-e.channels:
		return channel, nil
	case <-e.failed:
		return nil, ErrConnectionFailed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close tears down the PeerConnection and every channel on it.
func (e *PeerEngine) Close() error {
	e.markFailed()
	return e.connection.Close()
}

func (e *PeerEngine) markFailed() {
	e.failedOnce.Do(func() { close(e.failed) })
}

func (e *PeerEngine) watchChannel(channel *webrtc.DataChannel) {
	text := newTextChannel(channel, e.logger)
	channel.OnOpen(func() {
		e.logger.Debug("data channel opened", "label", channel.Label())
		select {
		case e.channels <- text:
		default:
			e.logger.Warn("closing extra data channel", "label", channel.Label())
			text.Close()
		}
	})
}

func (e *PeerEngine) handleStateChange(state webrtc.PeerConnectionState) {
	e.logger.Info("peer connection state change", "state", state.String())
	switch state {
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
		e.markFailed()
	}
}

func sessionDescription(kind rendezvous.Kind, sdp string) (webrtc.SessionDescription, error) {
	switch kind {
	case rendezvous.KindOffer:
		return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}, nil
	case rendezvous.KindAnswer:
		return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}, nil
	default:
		return webrtc.SessionDescription{}, fmt.Errorf("unsupported description type %q", kind)
	}
}
