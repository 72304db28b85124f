// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package negotiate

import (
	"context"
	"fmt"

	"github.com/phrasepeer/phrasepeer/lib/e2e"
	"github.com/phrasepeer/phrasepeer/lib/passphrase"
	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/rendezvous"
)

// Responder is the side that waits for an offer and answers it.
type Responder struct {
	signaling Signaling
	engine    Engine
	config    Config
}

// NewResponder returns a Responder driving engine through signaling.
func NewResponder(signaling Signaling, engine Engine, config Config) *Responder {
	return &Responder{signaling: signaling, engine: engine, config: config.withDefaults()}
}

// Run derives the room from phrase and polls for an offer until one
// appears or ctx is done, then publishes an answer carrying a fresh
// public key. A [signaling.ConflictError] from publishing the answer
// (the offer was cleared in between) is returned wrapped.
func (r *Responder) Run(ctx context.Context, phrase string) (*Result, error) {
	room, err := passphrase.DeriveRoomID(phrase)
	if err != nil {
		return nil, err
	}
	logger := r.config.Logger.With("room", room.Short(), "role", "responder")
	config := r.config
	config.Logger = logger

	pair, err := e2e.GenerateKeyPair()
	if err != nil {
		return nil, err
	}

	offer, err := r.pollOffer(ctx, room, config)
	if err != nil {
		return nil, err
	}
	config.report(OfferReceived)

	key, err := e2e.DeriveSharedKey(pair, offer.PublicKey, config.KDF)
	if err != nil {
		return nil, fmt.Errorf("deriving key from offer: %w", err)
	}
	local, err := r.answer(ctx, offer, config)
	if err != nil {
		key.Close()
		return nil, err
	}

	if err := r.signaling.PostAnswer(ctx, room, rendezvous.Descriptor{
		Payload:   local,
		Kind:      rendezvous.KindAnswer,
		PublicKey: pair.PublicKey,
	}); err != nil {
		key.Close()
		return nil, fmt.Errorf("publishing answer: %w", err)
	}
	config.report(AnswerPublished)
	return &Result{Room: room, Key: key}, nil
}

// answer applies the offer and returns the gathered local answer.
func (r *Responder) answer(ctx context.Context, offer *rendezvous.Descriptor, config Config) (string, error) {
	if err := r.engine.SetRemoteDescription(rendezvous.KindOffer, offer.Payload); err != nil {
		return "", err
	}
	answer, err := r.engine.CreateAnswer()
	if err != nil {
		return "", err
	}
	if err := r.engine.SetLocalDescription(rendezvous.KindAnswer, answer); err != nil {
		return "", err
	}
	return awaitGathering(ctx, r.engine, config, answer)
}

// pollOffer checks immediately, then once per OfferPollInterval. After
// OfferAdvisoryAfter it reports StillWaitingForOffer once and keeps
// polling.
func (r *Responder) pollOffer(ctx context.Context, room ref.RoomID, config Config) (*rendezvous.Descriptor, error) {
	if offer := r.tryGetOffer(ctx, room, config); offer != nil {
		return offer, nil
	}

	ticker := config.Clock.NewTicker(config.OfferPollInterval)
	defer ticker.Stop()
	advisory := config.Clock.After(config.OfferAdvisoryAfter)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-advisory:
			advisory = nil
			config.report(StillWaitingForOffer)
			continue
		case <-ticker.C:
		}
		if offer := r.tryGetOffer(ctx, room, config); offer != nil {
			return offer, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

func (r *Responder) tryGetOffer(ctx context.Context, room ref.RoomID, config Config) *rendezvous.Descriptor {
	offer, err := r.signaling.GetOffer(ctx, room)
	if err != nil {
		if ctx.Err() == nil {
			config.Logger.Warn("polling for offer failed", "error", err)
		}
		return nil
	}
	return offer
}
