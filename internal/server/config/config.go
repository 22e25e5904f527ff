// Package config handles configuration for the dev relay, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"os"
	"time"
)

// Config holds runtime settings for the dev relay.
//
// Fields:
//   - Addr: bind address of the HTTP listener.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - TokenValidityDuration: lifetime of bridge and server tokens.
//   - BridgeUsers / ServerUsers: login → password. A value starting with
//     "$2" is taken as a bcrypt hash, anything else is hashed at startup.
//   - FinderRoot: directory served by the "/finder" command.
//   - LogLevel: slog level name.
type Config struct {
	Addr                  string
	SecretKey             string
	TokenValidityDuration time.Duration
	BridgeUsers           map[string]string
	ServerUsers           map[string]string
	FinderRoot            string
	LogLevel              string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 15 * time.Minute
	c.BridgeUsers = map[string]string{"dev@shareify.local": "dev"}
	c.ServerUsers = map[string]string{"admin": "admin"}
	c.FinderRoot = "."
	c.LogLevel = "info"
}

// Validate reports settings the relay cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("empty listen address")
	case c.SecretKey == "":
		return errors.New("empty secret key")
	case c.TokenValidityDuration <= 0:
		return errors.New("token validity must be positive")
	}
	return nil
}

// Load builds a Config from args (without the program name): defaults,
// then the JSON file named by -c/-config, then flags.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
