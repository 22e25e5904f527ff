package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"addr":                    "www.example:9000",
		"secret_key":              "my_secret_key",
		"token_validity_duration": "90s",
		"bridge_users":            map[string]string{"a@b.com": "$2a$10$hash"},
		"finder_root":             "/data",
	})

	t.Run("overlays present fields", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, "www.example:9000", cfg.Addr)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 90*time.Second, cfg.TokenValidityDuration)
		assert.Equal(t, map[string]string{"a@b.com": "$2a$10$hash"}, cfg.BridgeUsers)
		assert.Equal(t, map[string]string{"admin": "admin"}, cfg.ServerUsers)
		assert.Equal(t, "/data", cfg.FinderRoot)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("no config flag, no changes", func(t *testing.T) {
		cfg := &Config{Addr: "defaults:1234"}
		require.NoError(t, parseJson(cfg, []string{"-a", ":1"}))
		assert.Equal(t, &Config{Addr: "defaults:1234"}, cfg)
	})

	t.Run("missing file", func(t *testing.T) {
		err := parseJson(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		require.Error(t, parseJson(&Config{}, []string{"-c", bad}))
	})
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"addr":                    ":7000",
		"token_validity_duration": "90s",
	})

	cfg, err := Load([]string{"-c", path, "-a", ":7001"})
	require.NoError(t, err)
	assert.Equal(t, ":7001", cfg.Addr)
	assert.Equal(t, 90*time.Second, cfg.TokenValidityDuration)
}
