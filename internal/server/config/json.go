package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/shareify/internal/flagx"
	"github.com/dmitrijs2005/shareify/internal/timex"
)

// JsonConfig is a DTO used only for reading JSON configuration files.
// Durations use timex.Duration, which accepts both "15m" and integer
// nanoseconds.
type JsonConfig struct {
	Addr                  *string           `json:"addr"`
	SecretKey             *string           `json:"secret_key"`
	TokenValidityDuration *timex.Duration   `json:"token_validity_duration"`
	BridgeUsers           map[string]string `json:"bridge_users"`
	ServerUsers           map[string]string `json:"server_users"`
	FinderRoot            *string           `json:"finder_root"`
	LogLevel              *string           `json:"log_level"`
}

// parseJson overlays config with the JSON file named by -c or -config in
// args. Without such a flag nothing is loaded. User maps in the file
// replace the defaults.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if c.Addr != nil {
		config.Addr = *c.Addr
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.BridgeUsers != nil {
		config.BridgeUsers = c.BridgeUsers
	}
	if c.ServerUsers != nil {
		config.ServerUsers = c.ServerUsers
	}
	if c.FinderRoot != nil {
		config.FinderRoot = *c.FinderRoot
	}
	if c.LogLevel != nil {
		config.LogLevel = *c.LogLevel
	}
	return nil
}
