// Copyright 2026 The Phrasepeer Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "PHRASEPEER_CONFIG"

// Store backends understood by rendezvous.Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Key derivation modes understood by e2e.ParseKDF.
const (
	KDFRaw  = "raw"
	KDFHKDF = "hkdf"
)

// Config is the full configuration shared by the relay daemon and the
// CLI. Each binary reads the sections it needs.
type Config struct {
	// Relay configures the HTTP rendezvous endpoint.
	Relay RelayConfig `yaml:"relay"`

	// Store configures where rendezvous records live.
	Store StoreConfig `yaml:"store"`

	// Client configures the negotiating peer.
	Client ClientConfig `yaml:"client"`
}

// RelayConfig configures the relay daemon.
type RelayConfig struct {
	// Listen is the TCP address to bind. Default: 127.0.0.1:8787
	Listen string `yaml:"listen"`

	// Path is the URL path of the single signaling endpoint.
	// Default: /
	Path string `yaml:"path"`

	// MaxBody bounds request bodies in bytes. Default: 65536
	MaxBody int64 `yaml:"max_body"`

	// MaxWait caps the long-poll "wait" parameter. Zero disables
	// long-polling. Default: 30s
	MaxWait time.Duration `yaml:"max_wait"`

	// Advertise publishes the relay over mDNS on the local network.
	Advertise bool `yaml:"advertise"`

	// Instance is the mDNS instance name. Default: the hostname.
	Instance string `yaml:"instance"`
}

// StoreConfig selects and configures the rendezvous store.
type StoreConfig struct {
	// Backend is one of memory, sqlite, bolt. Default: memory
	Backend string `yaml:"backend"`

	// Path is the database file for the sqlite and bolt backends.
	// ${VAR} and ${VAR:-default} are expanded.
	Path string `yaml:"path"`

	// TTL is how long an untouched room survives. Default: 2h
	TTL time.Duration `yaml:"ttl"`
}

// ClientConfig configures the CLI peer.
type ClientConfig struct {
	// RelayURL is the signaling endpoint. Empty means discover a relay
	// over mDNS.
	RelayURL string `yaml:"relay_url"`

	// ICEServers lists STUN/TURN URLs.
	ICEServers []string `yaml:"ice_servers"`

	// GatherTimeout bounds the wait for ICE gathering. Default: 5s
	GatherTimeout time.Duration `yaml:"gather_timeout"`

	// AnswerPollInterval is the initiator's poll period. Default: 1.5s
	AnswerPollInterval time.Duration `yaml:"answer_poll_interval"`

	// OfferPollInterval is the responder's poll period. Default: 1.2s
	OfferPollInterval time.Duration `yaml:"offer_poll_interval"`

	// AdvisoryAfter is when the responder reports it is still waiting.
	// Default: 2m
	AdvisoryAfter time.Duration `yaml:"advisory_after"`

	// KDF is raw (browser compatible) or hkdf. Default: raw
	KDF string `yaml:"kdf"`

	// DiscoverTimeout bounds the mDNS browse when RelayURL is empty.
	// Default: 3s
	DiscoverTimeout time.Duration `yaml:"discover_timeout"`
}

// Default returns the configuration used when no file is given and the
// base that a file is merged onto.
func Default() *Config {
	return &Config{
		Relay: RelayConfig{
			Listen:  "127.0.0.1:8787",
			Path:    "/",
			MaxBody: 64 << 10,
			MaxWait: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    "${HOME}/.local/state/phrasepeer/rendezvous.db",
			TTL:     2 * time.Hour,
		},
		Client: ClientConfig{
			ICEServers:         []string{"stun:stun.l.google.com:19302"},
			GatherTimeout:      5 * time.Second,
			AnswerPollInterval: 1500 * time.Millisecond,
			OfferPollInterval:  1200 * time.Millisecond,
			AdvisoryAfter:      2 * time.Minute,
			KDF:                KDFRaw,
			DiscoverTimeout:    3 * time.Second,
		},
	}
}

// Resolve loads the file named by flagPath, or by PHRASEPEER_CONFIG
// when flagPath is empty. With neither set it returns Default with
// variables expanded. The result is validated.
func Resolve(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}

	var cfg *Config
	if path == "" {
		cfg = Default()
		cfg.expandVariables()
	} else {
		var err error
		cfg, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load loads the file named by PHRASEPEER_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a phrasepeer.yaml config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile merges the file at path onto Default. Files ending in .json
// or .jsonc may contain comments and trailing commas. Fields absent
// from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Plain JSON is valid YAML, so one decoder handles both once
		// the comments are stripped.
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Store.Path = expandVars(c.Store.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. Values from vars win
// over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Relay.Listen == "" {
		errs = append(errs, fmt.Errorf("relay.listen is required"))
	}
	if !strings.HasPrefix(c.Relay.Path, "/") {
		errs = append(errs, fmt.Errorf("relay.path must start with /, got %q", c.Relay.Path))
	}
	if c.Relay.MaxBody <= 0 {
		errs = append(errs, fmt.Errorf("relay.max_body must be positive"))
	}
	if c.Relay.MaxWait < 0 {
		errs = append(errs, fmt.Errorf("relay.max_wait must not be negative"))
	}

	backends := []string{BackendMemory, BackendSQLite, BackendBolt}
	if !slices.Contains(backends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("store.backend must be one of: %v", backends))
	}
	if c.Store.Backend != BackendMemory && c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required for the %s backend", c.Store.Backend))
	}
	if c.Store.TTL <= 0 {
		errs = append(errs, fmt.Errorf("store.ttl must be positive"))
	}

	if c.Client.RelayURL != "" {
		parsed, err := url.Parse(c.Client.RelayURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("client.relay_url must be an http or https URL, got %q", c.Client.RelayURL))
		}
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"client.gather_timeout", c.Client.GatherTimeout},
		{"client.answer_poll_interval", c.Client.AnswerPollInterval},
		{"client.offer_poll_interval", c.Client.OfferPollInterval},
		{"client.advisory_after", c.Client.AdvisoryAfter},
		{"client.discover_timeout", c.Client.DiscoverTimeout},
	}
	for _, duration := range durations {
		if duration.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", duration.name))
		}
	}
	kdfs := []string{KDFRaw, KDFHKDF}
	if !slices.Contains(kdfs, c.Client.KDF) {
		errs = append(errs, fmt.Errorf("client.kdf must be one of: %v", kdfs))
	}

	return errors.Join(errs...)
}

// EnsureStoreDir creates the parent directory of the store file for
// the persistent backends.
func (c *Config) EnsureStoreDir() error {
	if c.Store.Backend == BackendMemory {
		return nil
	}
	dir := filepath.Dir(c.Store.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
