package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/shareify/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell "absent" from "zero" so a file can override a single value.
type JsonConfig struct {
	Host                   *string         `json:"host"`
	BridgeURL              *string         `json:"bridge_url"`
	CommandURL             *string         `json:"command_url"`
	DataDir                *string         `json:"data_dir"`
	RequestTimeout         *timex.Duration `json:"request_timeout"`
	AllowPlaintextFallback *bool           `json:"allow_plaintext_fallback"`
	LogLevel               *string         `json:"log_level"`
}

// parseJson overlays cfg with the values present in the JSON file at path.
// An empty path is a no-op.
func parseJson(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setIf(&cfg.Host, jc.Host)
	setIf(&cfg.BridgeURL, jc.BridgeURL)
	setIf(&cfg.CommandURL, jc.CommandURL)
	setIf(&cfg.DataDir, jc.DataDir)
	setIf(&cfg.AllowPlaintextFallback, jc.AllowPlaintextFallback)
	setIf(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
