// Package config loads runtime configuration for the Shareify CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config / -c.
//  3. Command-line flags, which override earlier values (see Flags).
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "60s" or
// integer nanoseconds. Absent keys keep their defaults:
//
//	{
//	  "host": "example.org",
//	  "bridge_url": "http://127.0.0.1:8080",
//	  "command_url": "http://127.0.0.1:8080",
//	  "data_dir": "~/.config/shareify",
//	  "request_timeout": "60s",
//	  "allow_plaintext_fallback": false,
//	  "log_level": "warn"
//	}
//
// When host is set the endpoints are https://bridge.<host> and
// https://command.<host>, and the explicit URLs are ignored.
package config
