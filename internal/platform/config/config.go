package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment with development defaults so main stays lean.
type Config struct {
	Addr        string
	DatabaseURL string

	// RedisURL enables the inbound rate limiter when set.
	RedisURL           string
	RateLimitPerMinute int

	// KafkaBrokers enables the verification audit publisher when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	// SATEndpoint overrides the production consulta endpoint (staging, tests).
	SATEndpoint string

	JWTSigningKey  string
	AccessTokenTTL time.Duration

	// Bootstrap superadmin, created at startup when missing.
	AdminUsername string
	AdminPassword string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:               getenv("CONECTASAT_ADDR", ":8000"),
		DatabaseURL:        getenv("DATABASE_URL", ""),
		RedisURL:           getenv("REDIS_URL", ""),
		RateLimitPerMinute: getenvInt("RATE_LIMIT_PER_MINUTE", 120),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		AuditTopic:         getenv("AUDIT_TOPIC", "cfdi.verifications"),
		SATEndpoint:        getenv("SAT_ENDPOINT", ""),
		JWTSigningKey:      getenv("SECRET_KEY", "dev-secret-key-change-in-production"),
		AccessTokenTTL:     time.Duration(getenvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		AdminUsername:      getenv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getenv("ADMIN_PASSWORD", "changeme"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
