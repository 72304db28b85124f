// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

// phrasepeer-relay serves the rendezvous endpoint two phrasepeer
// clients use to swap one offer and one answer. It never sees chat
// traffic: messages flow peer to peer over WebRTC, encrypted with a key
// the relay cannot derive.
//
// Configuration comes from the YAML file named by --config or
// PHRASEPEER_CONFIG, falling back to built-in defaults (127.0.0.1:8787,
// in-memory store). --listen overrides relay.listen; --advertise
// publishes the relay over mDNS so clients on the LAN can find it
// without a URL; it needs a non-loopback listen address.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/phrasepeer/phrasepeer/lib/clock"
	"github.com/phrasepeer/phrasepeer/lib/config"
	"github.com/phrasepeer/phrasepeer/lib/version"
	"github.com/phrasepeer/phrasepeer/relay"
	"github.com/phrasepeer/phrasepeer/rendezvous"
	"github.com/phrasepeer/phrasepeer/signaling"
)

// writeGrace is added to relay.max_wait for the response write timeout
// so a full-length long poll can still be answered.
const writeGrace = 30 * time.Second

// errLoopbackListener is returned by advertise when the relay listens
// only on loopback, where LAN clients could not reach the advertised
// port.
var errLoopbackListener = errors.New("listener is loopback-only; set relay.listen to a LAN or wildcard address to advertise")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	listen      string
	logFormat   string
	verbose     bool
	advertise   bool
	showVersion bool
}

func parseOptions(args []string) (*options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("phrasepeer-relay", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to phrasepeer.yaml (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&opts.listen, "listen", "", "listen address, overriding relay.listen")
	flagSet.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&opts.advertise, "advertise", false, "advertise the relay over mDNS, overriding relay.advertise")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", extra[0])
	}
	if opts.logFormat != "text" && opts.logFormat != "json" {
		return nil, fmt.Errorf("--log-format must be text or json, got %q", opts.logFormat)
	}
	return &opts, nil
}

func newLogger(format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOptions := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOptions))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOptions))
}

func run(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showVersion {
		version.Print("phrasepeer-relay")
		return nil
	}

	logger := newLogger(opts.logFormat, opts.verbose)

	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.Relay.Listen = opts.listen
	}
	if opts.advertise {
		cfg.Relay.Advertise = true
	}
	if err := cfg.EnsureStoreDir(); err != nil {
		return err
	}

	store, err := rendezvous.Open(cfg.Store, clock.Real(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	service := signaling.NewService(store, logger)
	mux := http.NewServeMux()
	mux.Handle(cfg.Relay.Path, relay.NewHandler(service, relay.HandlerConfig{
		MaxBody: cfg.Relay.MaxBody,
		MaxWait: cfg.Relay.MaxWait,
		Logger:  logger,
	}))

	server := relay.NewServer(relay.ServerConfig{
		Address:      cfg.Relay.Listen,
		Handler:      mux,
		WriteTimeout: cfg.Relay.MaxWait + writeGrace,
		Logger:       logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(ctx) }()

	select {
	case <-server.Ready():
	case err := <-serveDone:
		return err
	}

	logger.Info("relay running",
		"version", version.Version,
		"address", server.Addr().String(),
		"path", cfg.Relay.Path,
		"store", cfg.Store.Backend,
		"ttl", cfg.Store.TTL,
	)

	if cfg.Relay.Advertise {
		advertisement, err := advertise(cfg.Relay, server.Addr(), logger)
		if err != nil {
			// The relay stays usable by URL without mDNS.
			logger.Warn("mDNS advertisement failed", "error", err)
		} else {
			defer advertisement.Shutdown()
		}
	}

	return <-serveDone
}

func advertise(cfg config.RelayConfig, address net.Addr, logger *slog.Logger) (*relay.Advertisement, error) {
	tcpAddress, ok := address.(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("listen address %s is not TCP", address)
	}
	if tcpAddress.IP.IsLoopback() {
		return nil, fmt.Errorf("%s: %w", tcpAddress, errLoopbackListener)
	}
	instance := cfg.Instance
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("resolving hostname for the mDNS instance: %w", err)
		}
		instance = hostname
	}
	return relay.Advertise(instance, tcpAddress.Port, cfg.Path, logger)
}
