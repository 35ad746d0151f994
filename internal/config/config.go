package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file
const (
	EnvServerURL = "INVOICEFLOW_SERVER_URL"
	EnvLogLevel  = "INVOICEFLOW_LOG_LEVEL"
)

const (
	DefaultServerURL = "http://localhost:8000/api"
	DefaultTimeout   = 10 * time.Second
	DefaultLogLevel  = "info"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Config holds the agent configuration
type Config struct {
	Server struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout,omitempty"`
	} `yaml:"server"`
	Drafts struct {
		Path string `yaml:"path"`
	} `yaml:"drafts"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// GetConfigDir returns the directory holding the config file and local data
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".invoiceflow")
}

// GetConfigPath returns the path of the YAML config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// Default returns a config populated with default values
func Default() *Config {
	cfg := &Config{}
	cfg.Server.URL = DefaultServerURL
	cfg.Server.Timeout = DefaultTimeout
	cfg.Drafts.Path = filepath.Join(GetConfigDir(), "drafts.db")
	cfg.Logging.Level = DefaultLogLevel
	return cfg
}

// Load reads the config file if present, applies defaults for missing
// values, then applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(GetConfigPath())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if cfg.Server.URL == "" {
		cfg.Server.URL = DefaultServerURL
	}
	if cfg.Server.Timeout <= 0 {
		cfg.Server.Timeout = DefaultTimeout
	}
	if cfg.Drafts.Path == "" {
		cfg.Drafts.Path = filepath.Join(GetConfigDir(), "drafts.db")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}

	if v := os.Getenv(EnvServerURL); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("server URL cannot be empty")
	}

	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL must use http or https, got %q", c.Server.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("server URL must include a host, got %q", c.Server.URL)
	}

	if c.Logging.Level != "" && !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level %q (expected debug, info, warn or error)", c.Logging.Level)
	}

	return nil
}

// IsInsecure reports whether credentials would travel over plain http to a
// non-loopback host.
func (c *Config) IsInsecure() bool {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return false
	}
	return true
}

// Save writes the config file, creating the config directory if needed
func (c *Config) Save() error {
	if err := os.MkdirAll(GetConfigDir(), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
