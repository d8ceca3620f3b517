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

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"http_addr":                       "www.example:9000",
		"database_dsn":                    "postgres://db",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "1m",
		"refresh_token_validity_duration": "3m",
		"s3_bucket":                       "bucket",
		"s3_public_base_url":              "https://cdn.example.com/bucket",
		"owner_id":                        "uid-42",
		"page_cache_ttl":                  "30s",
		"allowed_origins":                 []string{"https://a.example", "https://b.example"},
		"secure_cookies":                  true,
		"trust_proxy":                     true,
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 1*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 3*time.Minute, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "https://cdn.example.com/bucket", cfg.S3PublicBaseURL)
		assert.Equal(t, "uid-42", cfg.OwnerID)
		assert.Equal(t, 30*time.Second, cfg.PageCacheTTL)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
		assert.True(t, cfg.SecureCookies)
		assert.True(t, cfg.TrustProxy)
	})

	t.Run("fields absent from the file keep their values", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", path})

		assert.Equal(t, "us-east-1", cfg.S3Region)
		assert.Equal(t, "slog", cfg.LogBackend)
	})

	t.Run("without a config flag nothing changes", func(t *testing.T) {
		cfg := &Config{HTTPAddr: "defaults:1234", SecretKey: "key"}
		parseJson(cfg, []string{"-a", ":1"})

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "key", cfg.SecretKey)
	})

	t.Run("missing file panics", func(t *testing.T) {
		cfg := &Config{}
		assert.Panics(t, func() { parseJson(cfg, []string{"-c", filepath.Join(t.TempDir(), "nope.json")}) })
	})

	t.Run("malformed file panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		cfg := &Config{}
		assert.Panics(t, func() { parseJson(cfg, []string{"-c", bad}) })
	})
}
