package domwatch

import (
	"github.com/hazyhaar/streamermode/domwatch/internal/config"
)

// Config is the top-level configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// PageConfig is the game page to drive.
type PageConfig = config.PageConfig

// RelayConfig controls the local relay server.
type RelayConfig = config.RelayConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	return config.Default()
}
