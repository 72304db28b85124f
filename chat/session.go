// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/e2e"
	"github.com/phrasepeer/phrasepeer/lib/netutil"
)

// ErrEmptyMessage is returned by Send for a message that is blank after
// trimming. Nothing is sent.
var ErrEmptyMessage = errors.New("empty message")

// Channel carries opaque text frames between the two peers.
// [transport.TextChannel] satisfies it.
type Channel interface {
	Send(message string) error
	Receive(ctx context.Context) (string, error)
	Close() error
}

// Message is one inbound frame. Exactly one of Text and Err is set; Err
// is a *e2e.CryptoError when the frame failed to decrypt.
type Message struct {
	Text     string
	Err      error
	Received time.Time
}

// Session encrypts outbound text and decrypts inbound frames with the
// negotiated key. Send may be called concurrently with Run.
type Session struct {
	channel Channel
	key     *e2e.SharedKey
	clock   clock.Clock
	logger  *slog.Logger
}

// NewSession returns a Session over channel. The session does not take
// ownership of key.
func NewSession(channel Channel, key *e2e.SharedKey, clk clock.Clock, logger *slog.Logger) *Session {
	return &Session{channel: channel, key: key, clock: clk, logger: logger}
}

// Send trims text, encrypts it, and sends it as a single frame. It
// returns the trimmed text that was sent.
func (s *Session) Send(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	blob, err := e2e.Encrypt(s.key, text)
	if err != nil {
		return "", err
	}
	if err := s.channel.Send(blob); err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}
	return text, nil
}

// Run receives frames until the channel closes or ctx is done, calling
// deliver for each. A frame that fails to decrypt is delivered with Err
// set and the session keeps running. A normal close returns nil.
func (s *Session) Run(ctx context.Context, deliver func(Message)) error {
	for {
		frame, err := s.channel.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if netutil.IsExpectedCloseError(err) {
				s.logger.Debug("chat channel closed")
				return nil
			}
			return fmt.Errorf("receiving message: %w", err)
		}

		received := s.clock.Now()
		text, err := e2e.Decrypt(s.key, frame)
		if errors.Is(err, e2e.ErrKeyClosed) {
			return fmt.Errorf("decrypting message: %w", err)
		}
		if err != nil {
			s.logger.Warn("dropping undecryptable message", "error", err, "bytes", len(frame))
			deliver(Message{Err: err, Received: received})
			continue
		}
		deliver(Message{Text: text, Received: received})
	}
}

// Close closes the underlying channel. The key stays open; its owner
// closes it.
func (s *Session) Close() error {
	return s.channel.Close()
}
