package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/shareify/internal/filex"
	"github.com/dmitrijs2005/shareify/internal/logging"
)

// DefaultRelayURL is where the dev relay listens by default.
const DefaultRelayURL = "http://127.0.0.1:8080"

// Config holds runtime settings for the Shareify CLI.
type Config struct {
	Host                   string
	BridgeURL              string
	CommandURL             string
	DataDir                string
	RequestTimeout         time.Duration
	AllowPlaintextFallback bool
	LogLevel               string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Host = ""
	c.BridgeURL = DefaultRelayURL
	c.CommandURL = DefaultRelayURL
	c.DataDir = filex.DefaultDataDir()
	c.RequestTimeout = 60 * time.Second
	c.AllowPlaintextFallback = false
	c.LogLevel = "warn"
}

// Load applies defaults and overlays the JSON file at path, if any.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Endpoints returns the bridge and command relay base URLs.
func (c *Config) Endpoints() (bridge, command string) {
	if host := strings.TrimSpace(c.Host); host != "" {
		return "https://bridge." + host, "https://command." + host
	}
	return c.BridgeURL, c.CommandURL
}

func (c *Config) Validate() error {
	bridge, command := c.Endpoints()
	for _, u := range []string{bridge, command} {
		parsed, err := url.Parse(u)
		if err != nil {
			return fmt.Errorf("invalid endpoint %q: %w", u, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" || parsed.Host == "" {
			return fmt.Errorf("invalid endpoint %q: want http(s)://host", u)
		}
	}
	if c.DataDir == "" {
		return errors.New("data dir is empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
