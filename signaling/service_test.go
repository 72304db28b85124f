// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/lib/testutil"
	"github.com/phrasepeer/phrasepeer/rendezvous"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testRoom(name string) ref.RoomID {
	return ref.RoomIDFromDigest(sha256.Sum256([]byte(name)))
}

func offer(payload string) rendezvous.Descriptor {
	return rendezvous.Descriptor{Payload: payload, Kind: rendezvous.KindOffer, PublicKey: "BOFFER"}
}

func answer(payload string) rendezvous.Descriptor {
	return rendezvous.Descriptor{Payload: payload, Kind: rendezvous.KindAnswer, PublicKey: "BANSWER"}
}

func newTestService(t *testing.T) (*Service, *rendezvous.MemoryStore, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	store := rendezvous.NewMemoryStore(fake, rendezvous.DefaultTTL)
	return NewService(store, slog.New(slog.DiscardHandler)), store, fake
}

func requireValidation(t *testing.T, err error, reason string) {
	t.Helper()
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("error = %v (%T), want *ValidationError", err, err)
	}
	if validation.Reason != reason {
		t.Fatalf("reason = %q, want %q", validation.Reason, reason)
	}
	if validation.HTTPStatus() != http.StatusBadRequest {
		t.Fatalf("HTTPStatus = %d, want 400", validation.HTTPStatus())
	}
}

func TestOfferRoundTrip(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	room := testRoom("offer round trip")

	if err := service.PostOffer(ctx, room, offer("v=0 A")); err != nil {
		t.Fatalf("PostOffer: %v", err)
	}
	got, err := service.GetOffer(ctx, room)
	if err != nil {
		t.Fatalf("GetOffer: %v", err)
	}
	if got == nil || *got != offer("v=0 A") {
		t.Fatalf("GetOffer = %+v, want the posted offer", got)
	}
	if answer, err := service.GetAnswer(ctx, room); err != nil || answer != nil {
		t.Fatalf("GetAnswer = %+v, %v; want nil, nil", answer, err)
	}
}

func TestFullExchange(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	room := testRoom("full exchange")

	if err := service.PostOffer(ctx, room, offer("A")); err != nil {
		t.Fatal(err)
	}
	if err := service.PostAnswer(ctx, room, answer("B")); err != nil {
		t.Fatalf("PostAnswer: %v", err)
	}
	got, err := service.GetAnswer(ctx, room)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Payload != "B" || got.PublicKey != "BANSWER" {
		t.Fatalf("GetAnswer = %+v", got)
	}
	// The offer is still readable after answering.
	if got, _ := service.GetOffer(ctx, room); got == nil || got.Payload != "A" {
		t.Fatalf("GetOffer after answer = %+v", got)
	}
}

func TestReofferClearsAnswer(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	room := testRoom("reoffer")

	for _, step := range []error{
		service.PostOffer(ctx, room, offer("A")),
		service.PostAnswer(ctx, room, answer("B")),
		service.PostOffer(ctx, room, offer("A2")),
	} {
		if step != nil {
			t.Fatal(step)
		}
	}

	if got, _ := service.GetAnswer(ctx, room); got != nil {
		t.Fatalf("answer survived a new offer: %+v", got)
	}
	if got, _ := service.GetOffer(ctx, room); got == nil || got.Payload != "A2" {
		t.Fatalf("GetOffer = %+v, want A2", got)
	}
}

func TestAnswerBeforeOfferConflicts(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	room := testRoom("answer first")

	err := service.PostAnswer(ctx, room, answer("B"))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("PostAnswer error = %v, want *ConflictError", err)
	}
	if conflict.Reason != ReasonNoOfferYet || conflict.HTTPStatus() != http.StatusConflict {
		t.Fatalf("conflict = %+v", conflict)
	}
	if store.Len() != 0 {
		t.Fatalf("rejected answer created %d rooms", store.Len())
	}
	if got, _ := service.GetAnswer(ctx, room); got != nil {
		t.Fatalf("GetAnswer = %+v after conflict", got)
	}
}

func TestClearIsIndistinguishableFromNeverCreated(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	room := testRoom("clear")

	if err := service.PostOffer(ctx, room, offer("A")); err != nil {
		t.Fatal(err)
	}
	if err := service.PostAnswer(ctx, room, answer("B")); err != nil {
		t.Fatal(err)
	}
	if err := service.Clear(ctx, room); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if got, _ := service.GetOffer(ctx, room); got != nil {
		t.Errorf("offer after clear: %+v", got)
	}
	if got, _ := service.GetAnswer(ctx, room); got != nil {
		t.Errorf("answer after clear: %+v", got)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d rooms after clear", store.Len())
	}
	var conflict *ConflictError
	if err := service.PostAnswer(ctx, room, answer("B")); !errors.As(err, &conflict) {
		t.Errorf("PostAnswer after clear = %v, want conflict", err)
	}
	if err := service.Clear(ctx, room); err != nil {
		t.Errorf("Clear on empty room: %v", err)
	}
}

func TestDescriptorValidation(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()
	room := testRoom("validation")

	badOffers := map[string]rendezvous.Descriptor{
		"missing public key": {Payload: "v=0", Kind: rendezvous.KindOffer},
		"missing sdp":        {Kind: rendezvous.KindOffer, PublicKey: "BPUB"},
		"wrong type":         {Payload: "v=0", Kind: rendezvous.KindAnswer, PublicKey: "BPUB"},
		"empty type":         {Payload: "v=0", PublicKey: "BPUB"},
	}
	for name, descriptor := range badOffers {
		t.Run("offer "+name, func(t *testing.T) {
			requireValidation(t, service.PostOffer(ctx, room, descriptor), ReasonBadOffer)
		})
	}

	if err := service.PostOffer(ctx, room, offer("A")); err != nil {
		t.Fatal(err)
	}
	badAnswers := map[string]rendezvous.Descriptor{
		"missing public key": {Payload: "v=0", Kind: rendezvous.KindAnswer},
		"wrong type":         {Payload: "v=0", Kind: rendezvous.KindOffer, PublicKey: "BPUB"},
	}
	for name, descriptor := range badAnswers {
		t.Run("answer "+name, func(t *testing.T) {
			requireValidation(t, service.PostAnswer(ctx, room, descriptor), ReasonBadAnswer)
		})
	}

	// Rejected answers left the offered room untouched.
	if got, _ := service.GetAnswer(ctx, room); got != nil {
		t.Errorf("rejected answer was stored: %+v", got)
	}
	if store.Len() != 1 {
		t.Errorf("store holds %d rooms, want 1", store.Len())
	}
}

func TestMissingPublicKeyMutatesNothing(t *testing.T) {
	service, store, _ := newTestService(t)
	err := service.PostOffer(context.Background(), testRoom("no key"), rendezvous.Descriptor{Payload: "v=0", Kind: rendezvous.KindOffer})
	requireValidation(t, err, ReasonBadOffer)
	if store.Len() != 0 {
		t.Fatalf("rejected offer created %d rooms", store.Len())
	}
}

func TestZeroRoomRejected(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	var zero ref.RoomID

	requireValidation(t, service.PostOffer(ctx, zero, offer("A")), ReasonBadRoom)
	requireValidation(t, service.PostAnswer(ctx, zero, answer("B")), ReasonBadRoom)
	requireValidation(t, service.Clear(ctx, zero), ReasonBadRoom)
	_, err := service.GetOffer(ctx, zero)
	requireValidation(t, err, ReasonBadRoom)
	_, err = service.GetAnswer(ctx, zero)
	requireValidation(t, err, ReasonBadRoom)
}

func TestMutationSweepsExpiredRooms(t *testing.T) {
	service, store, fake := newTestService(t)
	ctx := context.Background()
	stale := testRoom("stale")

	if err := service.PostOffer(ctx, stale, offer("old")); err != nil {
		t.Fatal(err)
	}
	fake.Advance(rendezvous.DefaultTTL + time.Second)

	// Reads do not sweep.
	if got, _ := service.GetOffer(ctx, stale); got == nil {
		t.Fatal("read swept the room")
	}
	if err := service.PostOffer(ctx, testRoom("fresh"), offer("new")); err != nil {
		t.Fatal(err)
	}
	if got, _ := service.GetOffer(ctx, stale); got != nil {
		t.Fatalf("expired room survived a mutation: %+v", got)
	}
	if store.Len() != 1 {
		t.Fatalf("store holds %d rooms, want 1", store.Len())
	}
}

// faultyStore wraps a Store with injectable failures.
type faultyStore struct {
	rendezvous.Store
	getErr   error
	putErr   error
	sweepErr error
}

func (f *faultyStore) Get(ctx context.Context, room ref.RoomID) (rendezvous.Record, error) {
	if f.getErr != nil {
		return rendezvous.Record{}, f.getErr
	}
	return f.Store.Get(ctx, room)
}

func (f *faultyStore) Put(ctx context.Context, room ref.RoomID, record rendezvous.Record) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Store.Put(ctx, room, record)
}

func (f *faultyStore) Sweep(ctx context.Context) (int, error) {
	if f.sweepErr != nil {
		return 0, f.sweepErr
	}
	return f.Store.Sweep(ctx)
}

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	room := testRoom("faulty")
	newFaulty := func() (*Service, *faultyStore) {
		store := &faultyStore{Store: rendezvous.NewMemoryStore(clock.Fake(epoch), 0)}
		return NewService(store, slog.New(slog.DiscardHandler)), store
	}

	t.Run("sweep failure is ignored", func(t *testing.T) {
		service, store := newFaulty()
		store.sweepErr = errors.New("disk on fire")
		if err := service.PostOffer(ctx, room, offer("A")); err != nil {
			t.Fatalf("PostOffer with failing sweep: %v", err)
		}
	})

	t.Run("read failure looks like an empty room", func(t *testing.T) {
		service, store := newFaulty()
		if err := service.PostOffer(ctx, room, offer("A")); err != nil {
			t.Fatal(err)
		}
		store.getErr = errors.New("io error")
		got, err := service.GetOffer(ctx, room)
		if err != nil || got != nil {
			t.Fatalf("GetOffer = %+v, %v; want nil, nil", got, err)
		}
		var conflict *ConflictError
		if err := service.PostAnswer(ctx, room, answer("B")); !errors.As(err, &conflict) {
			t.Fatalf("PostAnswer = %v, want conflict when the offer cannot be read", err)
		}
	})

	t.Run("write failure is returned", func(t *testing.T) {
		service, store := newFaulty()
		failure := errors.New("read-only filesystem")
		store.putErr = failure
		if err := service.PostOffer(ctx, room, offer("A")); !errors.Is(err, failure) {
			t.Fatalf("PostOffer = %v, want wrapped %v", err, failure)
		}
	})
}

func TestWatchDeliversExistingDescriptor(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	room := testRoom("watch existing")

	if err := service.PostOffer(ctx, room, offer("A")); err != nil {
		t.Fatal(err)
	}
	got := testutil.RequireReceive(t, service.Watch(ctx, room, rendezvous.KindOffer), 5*time.Second, "existing offer")
	if got.Payload != "A" {
		t.Fatalf("Watch delivered %+v", got)
	}
	if service.watches.watcherCount() != 0 {
		t.Fatal("watcher left registered after immediate delivery")
	}
}

func TestWatchWaitsForPost(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	room := testRoom("watch later")

	answers := service.Watch(ctx, room, rendezvous.KindAnswer)
	offers := service.Watch(ctx, room, rendezvous.KindOffer)

	if err := service.PostOffer(ctx, room, offer("A")); err != nil {
		t.Fatal(err)
	}
	if got := testutil.RequireReceive(t, offers, 5*time.Second, "offer watch"); got.Payload != "A" {
		t.Fatalf("offer watch delivered %+v", got)
	}
	select {
	case got := <-answers:
		t.Fatalf("answer watch fired on an offer: %+v", got)
	default:
	}

	if err := service.PostAnswer(ctx, room, answer("B")); err != nil {
		t.Fatal(err)
	}
	if got := testutil.RequireReceive(t, answers, 5*time.Second, "answer watch"); got.Payload != "B" {
		t.Fatalf("answer watch delivered %+v", got)
	}
	// Delivered exactly once, then closed.
	if _, ok := <-answers; ok {
		t.Fatal("answer watch delivered twice")
	}
}

func TestWatchClosesOnCancel(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch := service.Watch(ctx, testRoom("watch cancel"), rendezvous.KindOffer)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("cancelled watch delivered a value")
		}
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("cancelled watch never closed")
	}
}

func TestWatchInvalidArgumentsClose(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	for name, ch := range map[string]<-chan rendezvous.Descriptor{
		"zero room":    service.Watch(ctx, ref.RoomID{}, rendezvous.KindOffer),
		"unknown kind": service.Watch(ctx, testRoom("x"), rendezvous.Kind("pranswer")),
	} {
		if _, ok := <-ch; ok {
			t.Errorf("%s: watch delivered a value", name)
		}
	}
}
