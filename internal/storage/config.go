package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration persisted in {dataDir}/config.yaml.
// The file is created with generated defaults on first run.
type Config struct {
	// APIKeys guard the capture and admin endpoints (x-api-key header).
	APIKeys struct {
		Capture string `yaml:"capture"`
		Admin   string `yaml:"admin"`
	} `yaml:"api_keys"`

	Quotas struct {
		// MaxPagesPerUser limits page creation; 0 disables the check.
		MaxPagesPerUser int `yaml:"max_pages_per_user"`
		// MaxBlocksPerPage limits block creation; 0 disables the check.
		MaxBlocksPerPage int `yaml:"max_blocks_per_page"`
	} `yaml:"quotas"`

	Editor struct {
		// DebounceMS is the edit-buffer save delay in milliseconds.
		DebounceMS int `yaml:"debounce_ms"`
		// DragThrottleMS bounds drag-over recomputation frequency.
		DragThrottleMS int `yaml:"drag_throttle_ms"`
	} `yaml:"editor"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rate_limit"`
}

// Debounce returns the edit-buffer save delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Editor.DebounceMS) * time.Millisecond
}

// DragThrottle returns the minimum interval between drag-over updates.
func (c *Config) DragThrottle() time.Duration {
	return time.Duration(c.Editor.DragThrottleMS) * time.Millisecond
}

// DefaultConfig returns a config with generated API keys and default limits.
func DefaultConfig() *Config {
	c := &Config{}
	c.APIKeys.Capture = randomKey()
	c.APIKeys.Admin = randomKey()
	c.Quotas.MaxPagesPerUser = 500
	c.Quotas.MaxBlocksPerPage = 5000
	c.Editor.DebounceMS = 500
	c.Editor.DragThrottleMS = 50
	c.RateLimit.RequestsPerSecond = 20
	c.RateLimit.Burst = 40
	return c
}

func randomKey() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// LoadConfig reads {dataDir}/config.yaml, creating it with defaults if
// missing. Zero-valued editor intervals are backfilled with defaults so an
// older config file keeps working.
func LoadConfig(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		c := DefaultConfig()
		if err := SaveConfig(dataDir, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if c.Editor.DebounceMS <= 0 {
		c.Editor.DebounceMS = 500
	}
	if c.Editor.DragThrottleMS <= 0 {
		c.Editor.DragThrottleMS = 50
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 40
	}
	return c, nil
}

// SaveConfig writes the config to {dataDir}/config.yaml.
func SaveConfig(dataDir string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dataDir, "config.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
