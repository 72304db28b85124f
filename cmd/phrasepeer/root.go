// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phrasepeer/phrasepeer/lib/config"
	"github.com/phrasepeer/phrasepeer/lib/version"
	"github.com/phrasepeer/phrasepeer/relay"
)

// app is the state shared by every verb, filled in by the root
// command's flags and PersistentPreRunE.
type app struct {
	configPath string
	relayURL   string
	phraseFile string
	verbose    bool

	config *config.Config
	logger *slog.Logger

	// input is the single line reader over stdin. The passphrase (when
	// piped) and chat lines come from the same scanner so neither
	// steals buffered input from the other.
	input    *bufio.Scanner
	stdout   io.Writer
	stderr   io.Writer
	terminal terminal
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	state := &app{
		input:    bufio.NewScanner(stdin),
		stdout:   stdout,
		stderr:   stderr,
		terminal: detectTerminal(stdin),
	}

	root := &cobra.Command{
		Use:           "phrasepeer",
		Short:         "Encrypted peer-to-peer chat from a shared passphrase",
		Version:       version.Info(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.setup()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("phrasepeer {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&state.configPath, "config", "", "path to phrasepeer.yaml (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flags.StringVar(&state.relayURL, "relay", "", "relay URL, overriding client.relay_url")
	flags.StringVar(&state.phraseFile, "phrase-file", "", `read the passphrase from this file ("-" for the first line of stdin) instead of prompting`)
	flags.BoolVarP(&state.verbose, "verbose", "v", false, "log negotiation details to stderr")

	root.AddCommand(
		state.sessionCommand(roleCreate),
		state.sessionCommand(roleJoin),
		state.clearCommand(),
		state.roomCommand(),
	)
	return root
}

func (a *app) setup() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Resolve(a.configPath)
	if err != nil {
		return err
	}
	if a.relayURL != "" {
		cfg.Client.RelayURL = a.relayURL
	}
	a.config = cfg
	return nil
}

// signaling returns a relay client for the configured URL, or for the
// first relay found over mDNS when none is configured.
func (a *app) signaling(ctx context.Context) (*relay.Client, error) {
	endpoint := a.config.Client.RelayURL
	if endpoint == "" {
		discoverCtx, cancel := context.WithTimeout(ctx, a.config.Client.DiscoverTimeout)
		defer cancel()
		found, err := relay.Discover(discoverCtx, a.logger)
		if err != nil {
			return nil, fmt.Errorf("no relay configured (set client.relay_url or --relay): %w", err)
		}
		endpoint = found
	}
	return relay.NewClient(relay.ClientConfig{Endpoint: endpoint})
}
