package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/portfolio/internal/flagx"
	"github.com/dmitrijs2005/portfolio/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// both strings such as "15m" and integer nanoseconds (see timex.Duration).
// Only fields present in the file (non-zero after decoding) override Config.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	RedisAddr                    string         `json:"redis_addr"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	S3PublicBaseURL              string         `json:"s3_public_base_url"`
	OwnerID                      string         `json:"owner_id"`
	OwnerEmail                   string         `json:"owner_email"`
	OwnerPasswordHash            string         `json:"owner_password_hash"`
	GeminiAPIKey                 string         `json:"gemini_api_key"`
	GeminiModel                  string         `json:"gemini_model"`
	RevalidationURL              string         `json:"revalidation_url"`
	RevalidationSecret           string         `json:"revalidation_secret"`
	PageCacheTTL                 timex.Duration `json:"page_cache_ttl"`
	AllowedOrigins               []string       `json:"allowed_origins"`
	SecureCookies                *bool          `json:"secure_cookies"`
	TrustProxy                   *bool          `json:"trust_proxy"`
	LogBackend                   string         `json:"log_backend"`
}

// parseJson overlays values from the JSON file named by -c/-config in args.
// Without that flag nothing is loaded. An unreadable or malformed file panics,
// as the server cannot start from a config the operator did not intend.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}

	setStr(&config.HTTPAddr, c.HTTPAddr)
	setStr(&config.DatabaseDSN, c.DatabaseDSN)
	setStr(&config.RedisAddr, c.RedisAddr)
	setStr(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setStr(&config.S3RootUser, c.S3RootUser)
	setStr(&config.S3RootPassword, c.S3RootPassword)
	setStr(&config.S3Bucket, c.S3Bucket)
	setStr(&config.S3Region, c.S3Region)
	setStr(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setStr(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setStr(&config.OwnerID, c.OwnerID)
	setStr(&config.OwnerEmail, c.OwnerEmail)
	setStr(&config.OwnerPasswordHash, c.OwnerPasswordHash)
	setStr(&config.GeminiAPIKey, c.GeminiAPIKey)
	setStr(&config.GeminiModel, c.GeminiModel)
	setStr(&config.RevalidationURL, c.RevalidationURL)
	setStr(&config.RevalidationSecret, c.RevalidationSecret)
	if c.PageCacheTTL.Duration > 0 {
		config.PageCacheTTL = c.PageCacheTTL.Duration
	}
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
	if c.TrustProxy != nil {
		config.TrustProxy = *c.TrustProxy
	}
	setStr(&config.LogBackend, c.LogBackend)
}
