// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phrasepeer/phrasepeer/chat"
	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/e2e"
	"github.com/phrasepeer/phrasepeer/lib/passphrase"
	"github.com/phrasepeer/phrasepeer/negotiate"
	"github.com/phrasepeer/phrasepeer/transport"
)

type role string

const (
	roleCreate role = "create"
	roleJoin   role = "join"
)

func (a *app) sessionCommand(r role) *cobra.Command {
	short := "Publish an offer and wait for the other side to join"
	if r == roleJoin {
		short = "Wait for the other side's offer and answer it"
	}
	return &cobra.Command{
		Use:   string(r),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSession(cmd.Context(), r, newPrinter(a.stdout))
		},
	}
}

func (a *app) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the room's offer and answer from the relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase, err := a.readPhrase()
			if err != nil {
				return err
			}
			room, err := passphrase.DeriveRoomID(phrase.String())
			phrase.Close()
			if err != nil {
				return err
			}
			client, err := a.signaling(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.Clear(cmd.Context(), room); err != nil {
				return err
			}
			newPrinter(a.stdout).ok("room %s cleared", room.Short())
			return nil
		},
	}
}

func (a *app) roomCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "room",
		Short: "Print the room ID a passphrase maps to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase, err := a.readPhrase()
			if err != nil {
				return err
			}
			room, err := passphrase.DeriveRoomID(phrase.String())
			phrase.Close()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, room.String())
			return nil
		},
	}
}

func (a *app) runSession(ctx context.Context, r role, out *printer) error {
	phrase, err := a.readPhrase()
	if err != nil {
		return err
	}
	defer phrase.Close()

	kdf, err := e2e.ParseKDF(a.config.Client.KDF)
	if err != nil {
		return err
	}
	client, err := a.signaling(ctx)
	if err != nil {
		return err
	}
	out.muted("relay %s", client.Endpoint())

	engine, err := transport.NewPeerEngine(transport.ICEConfigFromURLs(a.config.Client.ICEServers), a.logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	negotiation := negotiate.Config{
		GatherTimeout:      a.config.Client.GatherTimeout,
		AnswerPollInterval: a.config.Client.AnswerPollInterval,
		OfferPollInterval:  a.config.Client.OfferPollInterval,
		OfferAdvisoryAfter: a.config.Client.AdvisoryAfter,
		KDF:                kdf,
		OnStatus:           out.status,
		Clock:              clock.Real(),
		Logger:             a.logger,
	}

	var result *negotiate.Result
	if r == roleCreate {
		result, err = negotiate.NewInitiator(client, engine, negotiation).Run(ctx, phrase.String())
	} else {
		result, err = negotiate.NewResponder(client, engine, negotiation).Run(ctx, phrase.String())
	}
	if err != nil {
		return err
	}
	defer result.Key.Close()

	channel, err := engine.AwaitChannel(ctx)
	if err != nil {
		return fmt.Errorf("opening data channel: %w", err)
	}
	out.ok("connected, encrypted channel open in room %s", result.Room.Short())

	session := chat.NewSession(channel, result.Key, clock.Real(), a.logger)
	return a.converse(ctx, session, out)
}

// converse relays stdin lines to the peer and prints what arrives
// until either side closes or ctx ends.
func (a *app) converse(ctx context.Context, session *chat.Session, out *printer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for a.input.Scan() {
			text, err := session.Send(a.input.Text())
			switch {
			case errors.Is(err, chat.ErrEmptyMessage):
			case err != nil:
				out.warn("send failed: %v", err)
			default:
				out.message(false, text)
			}
		}
		session.Close()
	}()

	err := session.Run(ctx, func(message chat.Message) {
		if message.Err != nil {
			out.warn("could not decrypt a message: %v", message.Err)
			return
		}
		out.message(true, message.Text)
	})
	out.warn("connection closed")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
