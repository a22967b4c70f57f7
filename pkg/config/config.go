// Package config loads the agent configuration from a JSON file with
// environment overrides for deployment-injected values.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"
)

const (
	// PlaceholderNodeName is substituted when no node name is configured.
	PlaceholderNodeName = "unknown-node"

	defaultLocalRPCPort    = 8899
	defaultReferenceRPCURL = "https://api.mainnet-beta.solana.com"
	defaultListenAddr      = ":9100"
	defaultCheckInterval   = Duration(30 * time.Second)
	defaultRetryAttempts   = 3
)

var (
	errInvalidDuration = errors.New("invalid duration")
	errInvalidRPCPort  = errors.New("local_rpc_port must be between 1 and 65535")
	errInvalidInterval = errors.New("check_interval must be positive")
	errMissingListen   = errors.New("listen_addr must not be empty")
)

// Duration wraps time.Duration for JSON unmarshaling from either a number of
// nanoseconds or a human-readable string like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		tmp, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(tmp)

		return nil
	default:
		return errInvalidDuration
	}
}

// PushConfig controls push delivery to the monitoring server.
type PushConfig struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url,omitempty"`
	APIKey        string `json:"api_key,omitempty"`
	RetryAttempts int    `json:"retry_attempts,omitempty"`
}

// Config is the agent configuration, read once at startup.
type Config struct {
	NodeName        string     `json:"node_name"`
	NodeIdentity    string     `json:"node_identity,omitempty"`
	LocalRPCPort    int        `json:"local_rpc_port"`
	ReferenceRPCURL string     `json:"reference_rpc_url"`
	ListenAddr      string     `json:"listen_addr"`
	GRPCListenAddr  string     `json:"grpc_listen_addr,omitempty"`
	WSURL           string     `json:"ws_url,omitempty"`
	CheckInterval   Duration   `json:"check_interval"`
	Push            PushConfig `json:"push"`
}

// Load reads, overrides, defaults, and validates the configuration file.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	log.Printf("Configuration loaded: node=%s local_rpc_port=%d listen=%s interval=%v push=%v",
		cfg.NodeName, cfg.LocalRPCPort, cfg.ListenAddr,
		time.Duration(cfg.CheckInterval), cfg.Push.Enabled)

	return cfg, nil
}

// applyEnvOverrides lets the deployment inject identity and credentials
// without writing them into the config file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NODE_NAME"); v != "" {
		c.NodeName = v
	}

	if v := os.Getenv("NODE_IDENTITY"); v != "" {
		c.NodeIdentity = v
	}

	if v := os.Getenv("MONITORING_API_URL"); v != "" {
		c.Push.URL = v
	}

	if v := os.Getenv("MONITORING_API_KEY"); v != "" {
		c.Push.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.LocalRPCPort == 0 {
		c.LocalRPCPort = defaultLocalRPCPort
	}

	if c.ReferenceRPCURL == "" {
		c.ReferenceRPCURL = defaultReferenceRPCURL
	}

	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.CheckInterval == 0 {
		c.CheckInterval = defaultCheckInterval
	}

	if c.Push.RetryAttempts == 0 {
		c.Push.RetryAttempts = defaultRetryAttempts
	}
}

// Validate checks the configuration and substitutes the node name
// placeholder. A missing node name is a warning, not an error.
func (c *Config) Validate() error {
	if c.NodeName == "" {
		log.Printf("Warning: node_name not set, using %q", PlaceholderNodeName)

		c.NodeName = PlaceholderNodeName
	}

	if c.LocalRPCPort < 1 || c.LocalRPCPort > 65535 {
		return fmt.Errorf("%w: got %d", errInvalidRPCPort, c.LocalRPCPort)
	}

	if c.CheckInterval <= 0 {
		return errInvalidInterval
	}

	if c.ListenAddr == "" {
		return errMissingListen
	}

	return nil
}
