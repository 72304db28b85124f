// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"

	"github.com/phrasepeer/phrasepeer/lib/version"
)

const (
	// ServiceType is the mDNS service a relay advertises.
	ServiceType = "_phrasepeer._tcp"

	// Domain is the mDNS domain.
	Domain = "local."
)

// ErrNoRelay is returned by Discover when no relay answered before the
// context ended.
var ErrNoRelay = errors.New("no relay found on the local network")

// Advertisement is a running mDNS registration.
type Advertisement struct {
	server *zeroconf.Server
	logger *slog.Logger
}

// Advertise publishes the relay listening on port under the given
// instance name. The TXT record carries the endpoint path so clients
// can build the full URL.
func Advertise(instance string, port int, path string, logger *slog.Logger) (*Advertisement, error) {
	text := []string{
		"path=" + path,
		"version=" + version.Version,
	}
	server, err := zeroconf.Register(instance, ServiceType, Domain, port, text, nil)
	if err != nil {
		return nil, fmt.Errorf("registering mDNS service %s: %w", ServiceType, err)
	}
	logger.Info("relay advertised over mDNS",
		"instance", instance,
		"service", ServiceType,
		"port", port,
	)
	return &Advertisement{server: server, logger: logger}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	a.server.Shutdown()
	a.logger.Info("relay advertisement withdrawn")
}

// Discover browses the local network and returns the endpoint URL of
// the first relay that answers. Bound the search with a ctx deadline.
func Discover(ctx context.Context, logger *slog.Logger) (string, error) {
	if ctx.Err() != nil {
		return "", ErrNoRelay
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", fmt.Errorf("initializing mDNS resolver: %w", err)
	}

	browseCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(browseCtx, ServiceType, Domain, entries); err != nil {
		return "", fmt.Errorf("browsing for %s: %w", ServiceType, err)
	}

	for {
		select {
		case <-browseCtx.Done():
			return "", ErrNoRelay
		case entry, ok := <-entries:
			if !ok {
				return "", ErrNoRelay
			}
			endpoint, ok := entryEndpoint(entry)
			if !ok {
				logger.Debug("skipping relay without a usable address", "instance", entry.Instance)
				continue
			}
			logger.Info("relay discovered", "instance", entry.Instance, "endpoint", endpoint)
			return endpoint, nil
		}
	}
}

// entryEndpoint builds an http URL from a browse result. A global
// unicast IPv4 address is preferred, then any IPv4, then IPv6.
func entryEndpoint(entry *zeroconf.ServiceEntry) (string, bool) {
	var address net.IP
	for _, candidate := range entry.AddrIPv4 {
		if candidate.IsGlobalUnicast() && !candidate.IsLoopback() {
			address = candidate
			break
		}
	}
	if address == nil && len(entry.AddrIPv4) > 0 {
		address = entry.AddrIPv4[0]
	}
	if address == nil && len(entry.AddrIPv6) > 0 {
		address = entry.AddrIPv6[0]
	}
	if address == nil || entry.Port <= 0 {
		return "", false
	}

	path := "/"
	for _, field := range entry.Text {
		if value, ok := strings.CutPrefix(field, "path="); ok && strings.HasPrefix(value, "/") {
			path = value
		}
	}

	endpoint := url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(address.String(), strconv.Itoa(entry.Port)),
		Path:   path,
	}
	return endpoint.String(), true
}
