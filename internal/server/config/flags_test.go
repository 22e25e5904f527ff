package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:9090", "-s", "secret", "-t", "5", "-f", "/srv",
				"-l", "debug", "-u", "a@b.com:pw", "-u", "c@d.com:pw2", "-U", "root:toor",
				"--unrelated", "x",
			},
			expected: &Config{
				Addr:                  "127.0.0.1:9090",
				SecretKey:             "secret",
				TokenValidityDuration: 5 * time.Minute,
				BridgeUsers:           map[string]string{"a@b.com": "pw", "c@d.com": "pw2"},
				ServerUsers:           map[string]string{"root": "toor"},
				FinderRoot:            "/srv",
				LogLevel:              "debug",
			},
		},
		{
			name: "no flags keeps values",
			args: []string{},
			expected: &Config{
				TokenValidityDuration: 90 * time.Second,
				BridgeUsers:           map[string]string{},
				ServerUsers:           map[string]string{},
			},
		},
		{name: "bad user", args: []string{"-u", "nopassword"}, wantErr: true},
		{name: "bad minutes", args: []string{"-t", "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{TokenValidityDuration: 90 * time.Second}

			err := parseFlags(config, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
