package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envPrefix namespaces every variable read by parseEnv.
const envPrefix = "PORTFOLIO_"

// parseEnv loads an optional .env file from the working directory and then
// overlays any PORTFOLIO_* variables that are set. Variables already present
// in the process environment win over the file, as godotenv does not override.
//
// Durations are Go duration strings ("15m"); ALLOWED_ORIGINS is comma separated.
func parseEnv(c *Config) {
	_ = godotenv.Load()

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("HTTP_ADDR", &c.HTTPAddr)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("REDIS_ADDR", &c.RedisAddr)
	str("SECRET_KEY", &c.SecretKey)
	dur("ACCESS_TOKEN_TTL", &c.AccessTokenValidityDuration)
	dur("REFRESH_TOKEN_TTL", &c.RefreshTokenValidityDuration)
	str("S3_ROOT_USER", &c.S3RootUser)
	str("S3_ROOT_PASSWORD", &c.S3RootPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	str("S3_PUBLIC_BASE_URL", &c.S3PublicBaseURL)
	str("OWNER_ID", &c.OwnerID)
	str("OWNER_EMAIL", &c.OwnerEmail)
	str("OWNER_PASSWORD_HASH", &c.OwnerPasswordHash)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)
	str("REVALIDATION_URL", &c.RevalidationURL)
	str("REVALIDATION_SECRET", &c.RevalidationSecret)
	dur("PAGE_CACHE_TTL", &c.PageCacheTTL)
	str("LOG_BACKEND", &c.LogBackend)

	if v, ok := os.LookupEnv(envPrefix + "SECURE_COOKIES"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SecureCookies = b
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "TRUST_PROXY"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TrustProxy = b
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
