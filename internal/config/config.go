package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	LogLevel    string
	DatabaseURL string

	SessionSecret string
	SessionExpiry time.Duration

	Redis RedisConfig

	InviteTTL           time.Duration
	InviteSweepInterval time.Duration
	CacheTTL            time.Duration
}

type RedisConfig struct {
	Addr string
	DB   int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnvOrPanic("DATABASE_URL"),

		SessionSecret: getEnvOrPanic("SESSION_SECRET"),
		SessionExpiry: getDuration("SESSION_EXPIRY", 24*time.Hour),

		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
			DB:   getInt("REDIS_DB", 0),
		},

		InviteTTL:           getDuration("INVITE_TTL", 168*time.Hour),
		InviteSweepInterval: getDuration("INVITE_SWEEP_INTERVAL", time.Hour),
		CacheTTL:            getDuration("CACHE_TTL", 5*time.Minute),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}

func getInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return value
}
