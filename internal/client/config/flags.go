package config

import (
	"time"

	"github.com/spf13/cobra"
)

// Flag names shared by every CLI command.
const (
	FlagConfig         = "config"
	FlagHost           = "host"
	FlagBridgeURL      = "bridge-url"
	FlagCommandURL     = "command-url"
	FlagDataDir        = "data-dir"
	FlagTimeout        = "timeout"
	FlagAllowPlaintext = "allow-plaintext"
	FlagLogLevel       = "log-level"
)

// Flags holds the raw persistent flag values of the CLI.
type Flags struct {
	ConfigPath     string
	Host           string
	BridgeURL      string
	CommandURL     string
	DataDir        string
	Timeout        time.Duration
	AllowPlaintext bool
	LogLevel       string
}

// Register declares the flags as persistent flags of cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVarP(&f.ConfigPath, FlagConfig, "c", "", "path to JSON config file")
	fs.StringVar(&f.Host, FlagHost, "", "relay host; uses https://bridge.<host> and https://command.<host>")
	fs.StringVar(&f.BridgeURL, FlagBridgeURL, "", "bridge base URL (default "+DefaultRelayURL+")")
	fs.StringVar(&f.CommandURL, FlagCommandURL, "", "command relay base URL (default "+DefaultRelayURL+")")
	fs.StringVar(&f.DataDir, FlagDataDir, "", "directory for the local database and keys")
	fs.DurationVar(&f.Timeout, FlagTimeout, 0, "HTTP request timeout (default 60s)")
	fs.BoolVar(&f.AllowPlaintext, FlagAllowPlaintext, false, "send commands unencrypted when no session can be established")
	fs.StringVar(&f.LogLevel, FlagLogLevel, "", "log level: debug, info, warn, error")
}

// Apply copies the flags the user actually set onto cfg.
func (f *Flags) Apply(cmd *cobra.Command, cfg *Config) {
	changed := cmd.Flags().Changed
	if changed(FlagHost) {
		cfg.Host = f.Host
	}
	if changed(FlagBridgeURL) {
		cfg.BridgeURL = f.BridgeURL
	}
	if changed(FlagCommandURL) {
		cfg.CommandURL = f.CommandURL
	}
	if changed(FlagDataDir) {
		cfg.DataDir = f.DataDir
	}
	if changed(FlagTimeout) {
		cfg.RequestTimeout = f.Timeout
	}
	if changed(FlagAllowPlaintext) {
		cfg.AllowPlaintextFallback = f.AllowPlaintext
	}
	if changed(FlagLogLevel) {
		cfg.LogLevel = f.LogLevel
	}
}

// Load builds the effective configuration for cmd: defaults, then the JSON
// file, then flags.
func (f *Flags) Load(cmd *cobra.Command) (*Config, error) {
	cfg, err := Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	f.Apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
