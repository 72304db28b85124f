// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"sync"

	"github.com/phrasepeer/phrasepeer/lib/ref"
	"github.com/phrasepeer/phrasepeer/rendezvous"
)

// Watch returns a channel that yields the offer or answer of room
// exactly once and then closes. If the descriptor is already stored it
// is delivered immediately; otherwise the channel waits for the next
// successful post of that kind in this process. The channel closes
// without a value when ctx is done or room is invalid.
//
// Watch sees only writes made through this Service. A relay sharing a
// persistent store with other processes still answers plain reads
// correctly, but its watchers only wake for local posts.
func (s *Service) Watch(ctx context.Context, room ref.RoomID, kind rendezvous.Kind) <-chan rendezvous.Descriptor {
	out := make(chan rendezvous.Descriptor, 1)
	if room.IsZero() || (kind != rendezvous.KindOffer && kind != rendezvous.KindAnswer) {
		close(out)
		return out
	}

	// Subscribe before reading so a post landing in between is not
	// missed.
	w := s.watches.subscribe(room, kind)

	record := s.load(ctx, room)
	current := record.Offer
	if kind == rendezvous.KindAnswer {
		current = record.Answer
	}
	if current != nil {
		s.watches.unsubscribe(w)
		out <- *current
		close(out)
		return out
	}

	go func() {
		defer close(out)
		defer s.watches.unsubscribe(w)
		select {
		case descriptor := <-w.ready:
			out <- descriptor
		case <-ctx.Done():
		}
	}()
	return out
}

// hubKey identifies what a watcher is waiting for.
type hubKey struct {
	room ref.RoomID
	kind rendezvous.Kind
}

type watcher struct {
	key   hubKey
	ready chan rendezvous.Descriptor
}

// hub fans successful posts out to watchers. Each watcher receives at
// most one descriptor.
type hub struct {
	mu       sync.Mutex
	watchers map[hubKey]map[*watcher]struct{}
}

func newHub() *hub {
	return &hub{watchers: make(map[hubKey]map[*watcher]struct{})}
}

func (h *hub) subscribe(room ref.RoomID, kind rendezvous.Kind) *watcher {
	w := &watcher{key: hubKey{room: room, kind: kind}, ready: make(chan rendezvous.Descriptor, 1)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.watchers[w.key]
	if set == nil {
		set = make(map[*watcher]struct{})
		h.watchers[w.key] = set
	}
	set[w] = struct{}{}
	return w
}

func (h *hub) unsubscribe(w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.watchers[w.key]
	delete(set, w)
	if len(set) == 0 {
		delete(h.watchers, w.key)
	}
}

// publish hands descriptor to every watcher of its room and kind and
// forgets them.
func (h *hub) publish(room ref.RoomID, descriptor rendezvous.Descriptor) {
	key := hubKey{room: room, kind: descriptor.Kind}

	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers[key] {
		select {
		case w.ready <- descriptor:
		default:
		}
	}
	delete(h.watchers, key)
}

// watcherCount returns the number of pending watchers.
func (h *hub) watcherCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	count := 0
	for _, set := range h.watchers {
		count += len(set)
	}
	return count
}
