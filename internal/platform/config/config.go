package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv keeps main lean.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration

	EventLogPath string
	Debug        bool
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          getEnv("CONDUIT_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaTopic:    getEnv("KAFKA_EVENTS_TOPIC", "conduit.events"),
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("JWT_ISSUER", "conduit"),
		TokenTTL:      getDuration("JWT_TOKEN_TTL", 72*time.Hour),
		EventLogPath:  os.Getenv("EVENT_LOG_PATH"),
		Debug:         os.Getenv("DEBUG") == "true",
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
