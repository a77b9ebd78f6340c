// Package config handles the watcher configuration loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/streamermode/domwatch/anchor"
	"github.com/hazyhaar/streamermode/domwatch/event"
)

// Config is the top-level configuration.
type Config struct {
	Browser BrowserConfig                 `yaml:"browser"`
	Page    PageConfig                    `yaml:"page"`
	Anchors map[anchor.Name]anchor.Lookup `yaml:"anchors"`
	Relay   RelayConfig                   `yaml:"relay"`
	Sinks   []SinkConfig                  `yaml:"sinks"`
	MCP     MCPConfig                     `yaml:"mcp"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Bin              string   `yaml:"bin"`
	MemoryLimit      int64    `yaml:"memory_limit"`
	ResourceBlocking []string `yaml:"resource_blocking"`
	Stealth          string   `yaml:"stealth"` // headless | headful
	XvfbDisplay      string   `yaml:"xvfb_display"`
}

// PageConfig is the game page to drive.
type PageConfig struct {
	ID     string `yaml:"id"`
	URL    string `yaml:"url"`
	Buffer int    `yaml:"buffer"` // batches held while the translator is busy
}

// RelayConfig controls the local relay server.
type RelayConfig struct {
	Addr    string `yaml:"addr"` // empty disables the HTTP surface
	MaxBody int64  `yaml:"max_body"`
}

// Sink types.
const (
	SinkStdout  = "stdout"
	SinkWebhook = "webhook"
	SinkJournal = "journal"
)

// SinkConfig defines an output backend for domain events.
type SinkConfig struct {
	Type   string   `yaml:"type"`   // stdout | webhook | journal
	URL    string   `yaml:"url"`    // for webhook
	Path   string   `yaml:"path"`   // for journal (SQLite file)
	Topics []string `yaml:"topics"` // empty = every topic
}

// MCPConfig exposes the relay tools over MCP.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes, defaults and validates a YAML configuration. Unknown keys
// are rejected.
func Load(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Page.ID == "" {
		c.Page.ID = "skribbl"
	}
	if c.Page.URL == "" {
		c.Page.URL = "https://skribbl.io/"
	}
	if c.Page.Buffer <= 0 {
		c.Page.Buffer = 1024
	}
	if c.Relay.MaxBody <= 0 {
		c.Relay.MaxBody = 64 << 10
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Browser.Stealth) {
	case "headless", "headful":
	default:
		errs = append(errs, fmt.Errorf("config: browser.stealth %q: want headless or headful", c.Browser.Stealth))
	}
	for name, l := range c.Anchors {
		if !slices.Contains(anchor.Names, name) {
			errs = append(errs, fmt.Errorf("config: unknown anchor %q", name))
		}
		if l.Empty() {
			errs = append(errs, fmt.Errorf("config: anchor %q: id or selector required", name))
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case SinkStdout:
		case SinkWebhook:
			if s.URL == "" {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: webhook needs url", i))
			}
		case SinkJournal:
			if s.Path == "" {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: journal needs path", i))
			}
		default:
			errs = append(errs, fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type))
		}
		for _, t := range s.Topics {
			if !slices.Contains(event.Topics, event.Topic(t)) {
				errs = append(errs, fmt.Errorf("config: sinks[%d]: unknown topic %q", i, t))
			}
		}
	}
	return errors.Join(errs...)
}
