// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

// messageBuffer is how many inbound messages queue before the pion
// read loop blocks.
const messageBuffer = 64

// TextChannel is a message-oriented view of a data channel carrying
// UTF-8 text frames. Binary frames are dropped.
type TextChannel struct {
	channel  *webrtc.DataChannel
	logger   *slog.Logger
	messages chan string

	closed    chan struct{}
	closeOnce sync.Once
}

func newTextChannel(channel *webrtc.DataChannel, logger *slog.Logger) *TextChannel {
	text := &TextChannel{
		channel:  channel,
		logger:   logger,
		messages: make(chan string, messageBuffer),
		closed:   make(chan struct{}),
	}
	channel.OnMessage(func(message webrtc.DataChannelMessage) {
		if !message.IsString {
			logger.Debug("dropping binary data channel frame",
				"label", channel.Label(),
				"bytes", len(message.Data),
			)
			return
		}
		select {
		case text.messages <- string(message.Data):
		case <-text.closed:
		}
	})
	channel.OnClose(text.markClosed)
	return text
}

// Label returns the data channel label.
func (t *TextChannel) Label() string {
	return t.channel.Label()
}

// Send transmits one text frame.
func (t *TextChannel) Send(message string) error {
	select {
	case <-t.closed:
		return io.ErrClosedPipe
	default:
	}
	if err := t.channel.SendText(message); err != nil {
		return fmt.Errorf("sending on data channel %s: %w", t.channel.Label(), err)
	}
	return nil
}

// Receive returns the next text frame. Frames that arrived before the
// channel closed are still delivered; after that it returns io.EOF.
func (t *TextChannel) Receive(ctx context.Context) (string, error) {
	select {
	case message := <-t.messages:
		return message, nil
	case <-t.closed:
		select {
		case message := <-t.messages:
			return message, nil
		default:
			return "", io.EOF
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Done is closed once the channel is closed by either side.
func (t *TextChannel) Done() <-chan struct{} {
	return t.closed
}

// Close closes the data channel.
func (t *TextChannel) Close() error {
	t.markClosed()
	return t.channel.Close()
}

func (t *TextChannel) markClosed() {
	t.closeOnce.Do(func() { close(t.closed) })
}
