// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/rendezvous"
)

// Service is the offer/answer state machine over a rendezvous.Store.
// A room moves EMPTY -> OFFERED -> ANSWERED; Clear or TTL expiry
// returns it to EMPTY. A new offer is accepted in any state and
// discards the previous answer.
//
// Service does not serialize callers. Two offers racing on one room
// resolve last-write-wins, and the losing initiator sees the winner's
// answer (or none) on its next poll.
type Service struct {
	store   rendezvous.Store
	logger  *slog.Logger
	watches *hub
}

// NewService returns a Service writing to store.
func NewService(store rendezvous.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, watches: newHub()}
}

// PostOffer stores offer for room and clears any answer.
func (s *Service) PostOffer(ctx context.Context, room ref.RoomID, offer rendezvous.Descriptor) error {
	if room.IsZero() {
		return &ValidationError{Reason: ReasonBadRoom}
	}
	if !wellFormed(offer, rendezvous.KindOffer) {
		return &ValidationError{Reason: ReasonBadOffer}
	}
	s.sweep(ctx)

	record := s.load(ctx, room)
	record.Offer = &offer
	record.Answer = nil
	if err := s.store.Put(ctx, room, record); err != nil {
		return fmt.Errorf("storing offer: %w", err)
	}

	s.logger.Debug("offer posted", "room", room.Short())
	s.watches.publish(room, offer)
	return nil
}

// GetOffer returns the current offer for room, or nil.
func (s *Service) GetOffer(ctx context.Context, room ref.RoomID) (*rendezvous.Descriptor, error) {
	if room.IsZero() {
		return nil, &ValidationError{Reason: ReasonBadRoom}
	}
	return s.load(ctx, room).Offer, nil
}

// PostAnswer stores answer for room. It fails with ConflictError,
// changing nothing, when the room holds no offer.
func (s *Service) PostAnswer(ctx context.Context, room ref.RoomID, answer rendezvous.Descriptor) error {
	if room.IsZero() {
		return &ValidationError{Reason: ReasonBadRoom}
	}
	if !wellFormed(answer, rendezvous.KindAnswer) {
		return &ValidationError{Reason: ReasonBadAnswer}
	}
	s.sweep(ctx)

	record := s.load(ctx, room)
	if record.Offer == nil {
		return &ConflictError{Reason: ReasonNoOfferYet}
	}
	record.Answer = &answer
	if err := s.store.Put(ctx, room, record); err != nil {
		return fmt.Errorf("storing answer: %w", err)
	}

	s.logger.Debug("answer posted", "room", room.Short())
	s.watches.publish(room, answer)
	return nil
}

// GetAnswer returns the current answer for room, or nil.
func (s *Service) GetAnswer(ctx context.Context, room ref.RoomID) (*rendezvous.Descriptor, error) {
	if room.IsZero() {
		return nil, &ValidationError{Reason: ReasonBadRoom}
	}
	return s.load(ctx, room).Answer, nil
}

// Clear deletes room. Clearing an empty room succeeds.
func (s *Service) Clear(ctx context.Context, room ref.RoomID) error {
	if room.IsZero() {
		return &ValidationError{Reason: ReasonBadRoom}
	}
	s.sweep(ctx)

	if err := s.store.Delete(ctx, room); err != nil {
		return fmt.Errorf("clearing room: %w", err)
	}
	s.logger.Debug("room cleared", "room", room.Short())
	return nil
}

// load reads room, treating a store failure as an empty room.
func (s *Service) load(ctx context.Context, room ref.RoomID) rendezvous.Record {
	record, err := s.store.Get(ctx, room)
	if err != nil {
		s.logger.Warn("reading room failed, treating as empty", "room", room.Short(), "error", err)
		return rendezvous.Record{}
	}
	return record
}

// sweep expires old rooms. Its result never affects the caller.
func (s *Service) sweep(ctx context.Context) {
	removed, err := s.store.Sweep(ctx)
	if err != nil {
		s.logger.Debug("sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("swept expired rooms", "removed", removed)
	}
}

func wellFormed(descriptor rendezvous.Descriptor, kind rendezvous.Kind) bool {
	return descriptor.Payload != "" && descriptor.Kind == kind && descriptor.PublicKey != ""
}
