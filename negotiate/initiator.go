// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package negotiate

import (
	"context"
	"fmt"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/e2e"
	"github.com/phrasepeer/phrasepeer/lib/passphrase"
	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/rendezvous"
)

// Initiator is the side that publishes the offer.
type Initiator struct {
	signaling Signaling
	engine    Engine
	config    Config
}

// NewInitiator returns an Initiator driving engine through signaling.
func NewInitiator(signaling Signaling, engine Engine, config Config) *Initiator {
	return &Initiator{signaling: signaling, engine: engine, config: config.withDefaults()}
}

// Run derives the room from phrase, publishes an offer carrying a fresh
// public key, and polls until the answer arrives or ctx is done. On
// success the remote description is applied and the shared key is
// returned.
func (i *Initiator) Run(ctx context.Context, phrase string) (*Result, error) {
	room, err := passphrase.DeriveRoomID(phrase)
	if err != nil {
		return nil, err
	}
	logger := i.config.Logger.With("room", room.Short(), "role", "initiator")
	config := i.config
	config.Logger = logger

	pair, err := e2e.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	if err := i.engine.OpenDataChannel(ChannelLabel); err != nil {
		return nil, err
	}
	offer, err := i.engine.CreateOffer()
	if err != nil {
		return nil, err
	}
	if err := i.engine.SetLocalDescription(rendezvous.KindOffer, offer); err != nil {
		return nil, err
	}
	local, err := awaitGathering(ctx, i.engine, config, offer)
	if err != nil {
		return nil, err
	}

	if err := i.signaling.PostOffer(ctx, room, rendezvous.Descriptor{
		Payload:   local,
		Kind:      rendezvous.KindOffer,
		PublicKey: pair.PublicKey,
	}); err != nil {
		return nil, fmt.Errorf("publishing offer: %w", err)
	}

	ticker := config.Clock.NewTicker(config.AnswerPollInterval)
	config.report(OfferPublished)
	answer, err := i.pollAnswer(ctx, room, ticker.C, config)
	ticker.Stop()
	if err != nil {
		return nil, err
	}
	config.report(AnswerReceived)

	key, err := e2e.DeriveSharedKey(pair, answer.PublicKey, config.KDF)
	if err != nil {
		return nil, fmt.Errorf("deriving key from answer: %w", err)
	}
	if err := i.engine.SetRemoteDescription(rendezvous.KindAnswer, answer.Payload); err != nil {
		key.Close()
		return nil, err
	}
	return &Result{Room: room, Key: key}, nil
}

func (i *Initiator) pollAnswer(ctx context.Context, room ref.RoomID, ticks <-chan time.Time, config Config) (*rendezvous.Descriptor, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticks:
		}
		answer, err := i.signaling.GetAnswer(ctx, room)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			config.Logger.Warn("polling for answer failed", "error", err)
			continue
		}
		if answer != nil {
			return answer, nil
		}
	}
}
