// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package negotiate

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/e2e"
	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/rendezvous"
)

// Defaults for the zero fields of [Config].
const (
	DefaultGatherTimeout      = 5 * time.Second
	DefaultAnswerPollInterval = 1500 * time.Millisecond
	DefaultOfferPollInterval  = 1200 * time.Millisecond
	DefaultOfferAdvisoryAfter = 2 * time.Minute
)

// ChannelLabel is the label of the data channel the initiator opens.
const ChannelLabel = "chat"

// Signaling is the rendezvous the two roles exchange descriptors
// through. [signaling.Service] satisfies it in process; the relay
// client satisfies it over HTTP.
type Signaling interface {
	PostOffer(ctx context.Context, room ref.RoomID, offer rendezvous.Descriptor) error
	GetOffer(ctx context.Context, room ref.RoomID) (*rendezvous.Descriptor, error)
	PostAnswer(ctx context.Context, room ref.RoomID, answer rendezvous.Descriptor) error
	GetAnswer(ctx context.Context, room ref.RoomID) (*rendezvous.Descriptor, error)
	Clear(ctx context.Context, room ref.RoomID) error
}

// Engine is the WebRTC peer being negotiated. Descriptions are plain
// SDP strings.
type Engine interface {
	OpenDataChannel(label string) error
	CreateOffer() (string, error)
	CreateAnswer() (string, error)
	SetLocalDescription(kind rendezvous.Kind, sdp string) error
	SetRemoteDescription(kind rendezvous.Kind, sdp string) error
	// LocalDescription returns the local SDP with every candidate
	// gathered so far.
	LocalDescription() string
	// GatheringComplete is closed when candidate gathering finishes.
	GatheringComplete() <-chan struct{}
}

// Status is a progress milestone reported through [Config.OnStatus].
type Status string

const (
	OfferPublished       Status = "offer published, waiting for answer"
	AnswerReceived       Status = "answer received, connecting"
	StillWaitingForOffer Status = "still no offer, is the other side running create?"
	OfferReceived        Status = "offer received, answering"
	AnswerPublished      Status = "answer published, connecting"
)

// Config tunes both roles. Zero durations take the package defaults.
type Config struct {
	// GatherTimeout bounds the wait for ICE gathering. When it expires
	// the description is published with whatever was gathered.
	GatherTimeout time.Duration

	AnswerPollInterval time.Duration
	OfferPollInterval  time.Duration

	// OfferAdvisoryAfter is how long the responder waits before
	// reporting StillWaitingForOffer once. It never gives up.
	OfferAdvisoryAfter time.Duration

	KDF e2e.KDF

	// OnStatus, if set, is called synchronously from Run.
	OnStatus func(Status)

	Clock  clock.Clock
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.GatherTimeout <= 0 {
		c.GatherTimeout = DefaultGatherTimeout
	}
	if c.AnswerPollInterval <= 0 {
		c.AnswerPollInterval = DefaultAnswerPollInterval
	}
	if c.OfferPollInterval <= 0 {
		c.OfferPollInterval = DefaultOfferPollInterval
	}
	if c.OfferAdvisoryAfter <= 0 {
		c.OfferAdvisoryAfter = DefaultOfferAdvisoryAfter
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

func (c Config) report(status Status) {
	c.Logger.Info(string(status))
	if c.OnStatus != nil {
		c.OnStatus(status)
	}
}

// Result is a negotiated session. The caller owns Key and must Close it.
type Result struct {
	Room ref.RoomID
	Key  *e2e.SharedKey
}

// awaitGathering waits for candidate gathering, bounded by the gather
// timeout, and returns the local description to publish. Expiry of the
// timeout is not an error.
func awaitGathering(ctx context.Context, engine Engine, config Config, fallback string) (string, error) {
	select {
	case <-engine.GatheringComplete():
	case <-config.Clock.After(config.GatherTimeout):
		config.Logger.Warn("ICE gathering timed out, publishing partial candidates",
			"timeout", config.GatherTimeout,
		)
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if local := engine.LocalDescription(); local != "" {
		return local, nil
	}
	return fallback, nil
}
