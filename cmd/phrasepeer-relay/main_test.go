// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"log/slog"
	"net"
	"testing"

	"github.com/spf13/pflag"

	"github.com/phrasepeer/phrasepeer/lib/config"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"--config", "relay.yaml", "--listen", ":9000", "-v", "--advertise", "--log-format", "json"})
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	if opts.configPath != "relay.yaml" || opts.listen != ":9000" || !opts.verbose || !opts.advertise || opts.logFormat != "json" {
		t.Errorf("options = %+v", opts)
	}
}

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := parseOptions(nil)
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	if opts.logFormat != "text" || opts.verbose || opts.advertise || opts.showVersion {
		t.Errorf("defaults = %+v", opts)
	}
}

func TestParseOptionsRejects(t *testing.T) {
	tests := [][]string{
		{"--log-format", "xml"},
		{"stray"},
		{"--no-such-flag"},
	}
	for _, args := range tests {
		if _, err := parseOptions(args); err == nil {
			t.Errorf("parseOptions(%q) succeeded", args)
		}
	}
}

func TestParseOptionsHelp(t *testing.T) {
	if _, err := parseOptions([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("--help = %v, want pflag.ErrHelp", err)
	}
}

func TestAdvertiseRefusesLoopback(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	cfg := config.Default().Relay
	cfg.Instance = "test-relay"

	for _, ip := range []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback} {
		advertisement, err := advertise(cfg, &net.TCPAddr{IP: ip, Port: 8787}, logger)
		if !errors.Is(err, errLoopbackListener) {
			t.Errorf("advertise on %s = %v, want errLoopbackListener", ip, err)
		}
		if advertisement != nil {
			advertisement.Shutdown()
			t.Errorf("advertise on %s published a loopback endpoint", ip)
		}
	}
}

func TestAdvertiseRejectsNonTCP(t *testing.T) {
	cfg := config.Default().Relay
	_, err := advertise(cfg, &net.UnixAddr{Name: "/tmp/relay.sock", Net: "unix"}, slog.New(slog.DiscardHandler))
	if err == nil {
		t.Fatal("advertise on a unix socket succeeded")
	}
}
