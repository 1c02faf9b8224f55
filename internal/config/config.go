package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env               string
	HTTPAddr          string
	MetricsAddr       string
	PostgresDSN       string
	RedisAddr         string
	KafkaBrokers      []string
	UserEventsTopic   string
	JWTSecret         string
	JWTTTL            time.Duration
	JWTIssuer         string
	AuthLookupTimeout time.Duration
	PrincipalCacheTTL time.Duration
	OTLPEndpoint      string
	LogLevel          string
	LogFormat         string
}

const devJWTSecret = "dev-only-secret"

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set in production")

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Env:             get("APP_ENV", "development"),
		HTTPAddr:        get("HTTP_ADDR", ":8080"),
		MetricsAddr:     get("METRICS_ADDR", ":9090"),
		PostgresDSN:     get("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=storefront sslmode=disable"),
		RedisAddr:       get("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    splitList(get("KAFKA_BROKERS", "localhost:9092")),
		UserEventsTopic: get("KAFKA_USERS_TOPIC", "user-events"),
		JWTSecret:       get("JWT_SECRET", ""),
		JWTIssuer:       get("JWT_ISSUER", "storefront-api"),
		OTLPEndpoint:    get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		LogLevel:        get("LOG_LEVEL", "info"),
		LogFormat:       get("LOG_FORMAT", "json"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"JWT_TTL", "90m", &cfg.JWTTTL},
		{"AUTH_LOOKUP_TIMEOUT", "2s", &cfg.AuthLookupTimeout},
		{"PRINCIPAL_CACHE_TTL", "30s", &cfg.PrincipalCacheTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(get(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", d.key)
		}
		*d.dst = v
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingJWTSecret
		}
		cfg.JWTSecret = devJWTSecret
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS must list at least one broker")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
