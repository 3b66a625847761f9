// Package config loads dashboard configuration from an optional YAML
// file with environment variable overrides, following defaults when
// neither is present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Environment variable names recognized as overrides.
const (
	envConfigFile  = "DASHBOARD_CONFIG"
	envAPIBaseURL  = "DASHBOARD_API_BASE_URL"
	envWSURL       = "DASHBOARD_WS_URL"
	envMaxAttempts = "DASHBOARD_MAX_RECONNECT_ATTEMPTS"
)

// Config is the full dashboard configuration.
type Config struct {
	// APIBaseURL is the base URL of the snapshot REST endpoints.
	APIBaseURL string `yaml:"apiBaseUrl"`
	// WSURL is the stream endpoint.
	WSURL string `yaml:"wsUrl"`

	// MaxReconnectAttempts bounds consecutive automatic reconnects
	// before the stream gives up.
	MaxReconnectAttempts int `yaml:"maxReconnectAttempts"`
	// ReconnectDelays is the backoff table; the last value repeats.
	ReconnectDelays []time.Duration `yaml:"reconnectDelays"`

	// SnapshotInterval is the baseline refresh period.
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	// SnapshotLimit is the page size requested from the listing
	// endpoint.
	SnapshotLimit int `yaml:"snapshotLimit"`

	// PageSize is the table page size.
	PageSize int `yaml:"pageSize"`

	// ListenAddr is where the mock feed server binds.
	ListenAddr string `yaml:"listenAddr"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when nothing is specified.
func Default() Config {
	return Config{
		APIBaseURL:           "http://localhost:8880/api",
		WSURL:                "ws://localhost:8880/ws",
		MaxReconnectAttempts: 5,
		ReconnectDelays: []time.Duration{
			1 * time.Second,
			2 * time.Second,
			5 * time.Second,
			10 * time.Second,
			30 * time.Second,
		},
		SnapshotInterval: 30 * time.Second,
		SnapshotLimit:    100,
		PageSize:         20,
		ListenAddr:       ":8880",
	}
}

// Load reads the file named by DASHBOARD_CONFIG (or the given path when
// non-empty), overlays environment overrides, validates and returns the
// result. A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, errors.Wrapf(err, "read config %s", path)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(envAPIBaseURL); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv(envWSURL); v != "" {
		cfg.WSURL = v
	}
	if v := os.Getenv(envMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxReconnectAttempts = n
		}
	}
}

// Validate checks invariants the rest of the system relies on.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("apiBaseUrl is required")
	}
	if c.WSURL == "" {
		return errors.New("wsUrl is required")
	}
	if c.MaxReconnectAttempts <= 0 {
		return errors.New("maxReconnectAttempts must be positive")
	}
	if len(c.ReconnectDelays) == 0 {
		return errors.New("reconnectDelays must not be empty")
	}
	for i := 1; i < len(c.ReconnectDelays); i++ {
		if c.ReconnectDelays[i] < c.ReconnectDelays[i-1] {
			return errors.New("reconnectDelays must be non-decreasing")
		}
	}
	if c.SnapshotInterval <= 0 {
		return errors.New("snapshotInterval must be positive")
	}
	if c.PageSize <= 0 {
		return errors.New("pageSize must be positive")
	}
	return nil
}
